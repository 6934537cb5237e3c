// Package act defines the scalar nonlinearities a layer can apply and their
// reference evaluators. The C text for each lives in author/act.
package act

import (
	"fmt"
	"math"
)

type Kind int

const (
	Linear Kind = iota
	ReLU
	Sigmoid
	TanH
)

// Strings are the C symbol names and the names accepted by Parse.
var Strings = []string{
	Linear:  "linear",
	ReLU:    "relu",
	Sigmoid: "sigmoid",
	TanH:    "hyperb_tan",
}

var aliases = map[string]Kind{
	"linear":     Linear,
	"relu":       ReLU,
	"sigmoid":    Sigmoid,
	"hyperb_tan": TanH,
	"tanh":       TanH,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(Strings) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return Strings[k]
}

func Parse(s string) (Kind, error) {
	if k, ok := aliases[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown activation %q", s)
}

// Eval is the reference value. Computation is in float64 like the C code,
// which calls exp from math.h.
func (k Kind) Eval(x float32) float32 {
	z := float64(x)
	switch k {
	case Linear:
		return x
	case ReLU:
		if z < 0 {
			return 0
		}
		return x
	case Sigmoid:
		return float32(1 / (1 + math.Exp(-z)))
	case TanH:
		return float32((math.Exp(z) - math.Exp(-z)) / (math.Exp(z) + math.Exp(-z)))
	default:
		panic("bug")
	}
}

// Apply evaluates elementwise into a new slice.
func (k Kind) Apply(xs []float32) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = k.Eval(x)
	}
	return out
}

// Set is the distinct activations of a network in first-use order.
type Set struct {
	seen  [kindCount]bool
	kinds []Kind
}

const kindCount = TanH + 1

func (s *Set) Add(k Kind) {
	if !s.seen[k] {
		s.seen[k] = true
		s.kinds = append(s.kinds, k)
	}
}

func (s *Set) Kinds() []Kind {
	return s.kinds
}
