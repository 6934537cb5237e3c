// Package flow describes the loop structure of generated layer functions
// for worst-case execution time analysis.
package flow

const ForLoop = "for loop"

// Node is a function (Name set) or a loop (Kind set). Start and End are
// the inclusive iteration range; Bound is the C expression the loop tests
// against.
type Node struct {
	Name     string  `json:"name,omitempty"`
	Kind     string  `json:"type,omitempty"`
	Var      string  `json:"variable,omitempty"`
	Bound    string  `json:"bound,omitempty"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Children []*Node `json:"inner,omitempty"`
}

// Func is the root of one function's tree.
func Func(name string, loops ...*Node) *Node {
	return &Node{Name: name, Children: loops}
}

// Loop iterates v over [0, n).
func Loop(v, bound string, n int, inner ...*Node) *Node {
	return &Node{
		Kind:     ForLoop,
		Var:      v,
		Bound:    bound,
		Start:    0,
		End:      n - 1,
		Children: inner,
	}
}

// Nest is a perfect nest of loops, outermost first.
func Nest(loops ...*Node) *Node {
	if len(loops) == 0 {
		return nil
	}
	for i := len(loops) - 1; i > 0; i-- {
		loops[i-1].Children = append(loops[i-1].Children, loops[i])
	}
	return loops[0]
}

// Depth is the number of loops on the longest path below n.
func (n *Node) Depth() int {
	d := 0
	for _, c := range n.Children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	if n.Kind == ForLoop {
		d++
	}
	return d
}

// Iterations is the number of innermost body executions, assuming every
// loop runs its whole range.
func (n *Node) Iterations() int {
	inner := 0
	for _, c := range n.Children {
		inner += c.Iterations()
	}
	if len(n.Children) == 0 {
		inner = 1
	}
	if n.Kind == ForLoop {
		return (n.End - n.Start + 1) * inner
	}
	return inner
}
