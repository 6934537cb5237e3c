package layer

import (
	"fmt"

	"NNC/internal/tensor"
)

// TopologyError is a layer whose input does not match what its
// predecessor produces, or a chain that is out of order.
type TopologyError struct {
	Idx  int
	Name string
	Msg  string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("layer %d (%s): %s", e.Idx, e.Name, e.Msg)
}

func topologyError(l Layer, format string, args ...interface{}) error {
	return &TopologyError{
		Idx:  l.Index(),
		Name: l.Name(),
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Network is a single chain starting at an Input. It owns its layers.
type Network struct {
	layers []Layer
}

// NewNetwork checks the chain and links each layer to its neighbors.
func NewNetwork(layers ...Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, &TopologyError{Name: inputName, Msg: "network has no layers"}
	}
	for i, l := range layers {
		if l.Index() != i {
			return nil, topologyError(l, "at position %d", i)
		}
		_, isInput := l.(*Input)
		switch {
		case i == 0 && !isInput:
			return nil, topologyError(l, "first layer must be %s", inputName)
		case i != 0 && isInput:
			return nil, topologyError(l, "%s must come first", inputName)
		case i != 0:
			if err := fits(l, layers[i-1]); err != nil {
				return nil, err
			}
		}
	}
	for i, l := range layers {
		b := l.base()
		b.prevs, b.nexts = nil, nil
		if i > 0 {
			b.prevs = []Layer{layers[i-1]}
		}
		if i+1 < len(layers) {
			b.nexts = []Layer{layers[i+1]}
		}
	}
	return &Network{layers: append([]Layer(nil), layers...)}, nil
}

type spatial struct {
	h, w, c int
}

func spatialOut(l Layer) (spatial, bool) {
	switch l := l.(type) {
	case *Conv2D:
		return spatial{l.OutH, l.OutW, l.Filters}, true
	case *Pooling:
		return spatial{l.OutH, l.OutW, l.InC}, true
	}
	return spatial{}, false
}

func fits(l, prev Layer) error {
	var (
		in   int
		want spatial
		has  bool
	)
	switch l := l.(type) {
	case *Dense:
		in = l.In
	case *Conv2D:
		in = l.InSize()
		want, has = spatial{l.InH, l.InW, l.InC}, true
	case *Pooling:
		in = l.InSize()
		want, has = spatial{l.InH, l.InW, l.InC}, true
	case *Softmax:
		in = l.Size()
	default:
		panic("bug")
	}
	if in != prev.Size() {
		return topologyError(l, "takes %d inputs, layer %d (%s) produces %d",
			in, prev.Index(), prev.Name(), prev.Size())
	}
	if !has {
		return nil
	}
	if got, ok := spatialOut(prev); ok && got != want {
		return topologyError(l, "takes %d×%d×%d, layer %d (%s) produces %d×%d×%d",
			want.h, want.w, want.c, prev.Index(), prev.Name(), got.h, got.w, got.c)
	}
	return nil
}

// Layers is the chain in order. The slice is shared.
func (n *Network) Layers() []Layer { return n.layers }

func (n *Network) Len() int { return len(n.layers) }

// InSize is the element count of the network input.
func (n *Network) InSize() int { return n.layers[0].Size() }

// OutSize is the element count of the final layer.
func (n *Network) OutSize() int { return n.layers[len(n.layers)-1].Size() }

// MaxSize is the largest layer output, the size of the ping-pong buffers
// the generated code runs in.
func (n *Network) MaxSize() int {
	max := 0
	for _, l := range n.layers {
		if l.Size() > max {
			max = l.Size()
		}
	}
	return max
}

// Eval runs every layer on one sample and returns each layer's output,
// index by index.
func (n *Network) Eval(in tensor.Tensor) ([]tensor.Tensor, error) {
	outs := make([]tensor.Tensor, len(n.layers))
	x := in
	for i, l := range n.layers {
		y, err := l.Eval(x)
		if err != nil {
			return nil, err
		}
		outs[i], x = y, y
	}
	return outs, nil
}

// Output is the final layer's result flattened to a vector.
func (n *Network) Output(in tensor.Tensor) (tensor.Tensor, error) {
	outs, err := n.Eval(in)
	if err != nil {
		return tensor.Tensor{}, err
	}
	last := outs[len(outs)-1]
	return tensor.Vector(last.Data()...), nil
}
