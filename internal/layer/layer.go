// Package layer is the typed network IR: a closed set of layer kinds, each
// holding its shapes and trained parameters, linked into a Network, and
// each able to evaluate one sample as the reference for generated code.
package layer

import (
	"fmt"
	"math"

	"NNC/internal/shape"
	"NNC/internal/tensor"
)

// Layer is implemented by *Input, *Dense, *Conv2D, *Pooling, and
// *Softmax only.
type Layer interface {
	Index() int
	Size() int
	Name() string
	Prevs() []Layer
	Nexts() []Layer
	Eval(in tensor.Tensor) (tensor.Tensor, error)
	base() *Base
}

// Base is the part every layer shares. The Network sets the links; they
// do not own the layers they point to.
type Base struct {
	idx   int
	size  int
	prevs []Layer
	nexts []Layer
}

func (b *Base) Index() int     { return b.idx }
func (b *Base) Size() int      { return b.size }
func (b *Base) Prevs() []Layer { return b.prevs }
func (b *Base) Nexts() []Layer { return b.nexts }
func (b *Base) base() *Base    { return b }

// Prev is the single predecessor in a chain, or nil for the input.
func Prev(l Layer) Layer {
	if ps := l.Prevs(); len(ps) != 0 {
		return ps[0]
	}
	return nil
}

// Error ties a failure to the layer it happened in.
type Error struct {
	Idx  int
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("layer %d (%s): %s", e.Idx, e.Name, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func anError(idx int, name string, err error) error {
	return &Error{Idx: idx, Name: name, Err: err}
}

func shapeError(op, format string, args ...interface{}) error {
	return &shape.Error{Op: op, Msg: fmt.Sprintf(format, args...)}
}

type dim struct {
	name string
	val  int
}

func positive(op string, dims ...dim) error {
	for _, d := range dims {
		if d.val <= 0 {
			return shapeError(op, "%s must be positive, got %d", d.name, d.val)
		}
	}
	return nil
}

const (
	inputName   = "Input_layer"
	denseName   = "Dense"
	conv2DName  = "Conv2D"
	softmaxName = "Softmax"
)

// Input copies the network input.
type Input struct {
	Base
}

func NewInput(size int) (*Input, error) {
	if err := positive("input", dim{"size", size}); err != nil {
		return nil, anError(0, inputName, err)
	}
	return &Input{Base{idx: 0, size: size}}, nil
}

func (i *Input) Name() string { return inputName }

func (i *Input) Eval(in tensor.Tensor) (tensor.Tensor, error) {
	if in.Len() != i.size {
		return tensor.Tensor{}, anError(i.idx, inputName,
			shapeError("eval", "input has %d elements, want %d", in.Len(), i.size))
	}
	return in, nil
}

// Softmax is exp(x_i)/sum_j exp(x_j) over the whole vector. There is no
// max subtraction; the generated C does not do one either.
type Softmax struct {
	Base
}

func NewSoftmax(idx, size int) (*Softmax, error) {
	if err := positive("softmax", dim{"size", size}); err != nil {
		return nil, anError(idx, softmaxName, err)
	}
	return &Softmax{Base{idx: idx, size: size}}, nil
}

func (s *Softmax) Name() string { return softmaxName }

func (s *Softmax) Eval(in tensor.Tensor) (tensor.Tensor, error) {
	if in.Len() != s.size {
		return tensor.Tensor{}, anError(s.idx, softmaxName,
			shapeError("eval", "input has %d elements, want %d", in.Len(), s.size))
	}
	var (
		xs  = in.Data()
		sum float64
	)
	exps := make([]float64, len(xs))
	for i, x := range xs {
		exps[i] = math.Exp(float64(x))
		sum += exps[i]
	}
	out := make([]float32, len(xs))
	for i := range exps {
		out[i] = float32(exps[i] / sum)
	}
	return tensor.New(in.Shape(), out)
}
