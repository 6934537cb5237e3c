// Package tensor holds the immutable float32 arrays that carry weights,
// biases, and layer activations.
package tensor

import (
	"NNC/internal/shape"
	"strconv"
)

// Tensor is a flat row-major buffer with an explicit shape. The buffer is
// never modified once the Tensor is built.
type Tensor struct {
	shape []int
	data  []float32
}

// New copies data into a Tensor of the given shape.
func New(dims []int, data []float32) (Tensor, error) {
	vol, err := shape.Volume(dims)
	if err != nil {
		return Tensor{}, err
	}
	if vol != len(data) {
		return Tensor{}, &shape.Error{
			Op:  "tensor",
			Msg: "shape " + shape.String(dims) + " does not hold " + strconv.Itoa(len(data)) + " elements",
		}
	}
	t := Tensor{
		shape: append([]int(nil), dims...),
		data:  append([]float32(nil), data...),
	}
	return t, nil
}

// Must is New for literal tensors in tests and examples.
func Must(dims []int, data []float32) Tensor {
	t, err := New(dims, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Vector is a 1D tensor.
func Vector(data ...float32) Tensor {
	return Must([]int{len(data)}, data)
}

// Zeros is an all-zero tensor.
func Zeros(dims ...int) Tensor {
	return Must(dims, make([]float32, shape.MustVolume(dims)))
}

// Shape returns a copy of the dimensions.
func (t Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Len is the element count.
func (t Tensor) Len() int {
	return len(t.data)
}

// Data returns a copy of the row-major buffer.
func (t Tensor) Data() []float32 {
	return append([]float32(nil), t.data...)
}

// Flat is element i of the row-major buffer.
func (t Tensor) Flat(i int) float32 {
	return t.data[i]
}

// At reads the element at a multi-index.
func (t Tensor) At(indices ...int) (float32, error) {
	i, err := shape.LinearIndex(indices, t.shape)
	if err != nil {
		return 0, err
	}
	return t.data[i], nil
}

// Reshape views the same elements under another shape of equal volume.
func (t Tensor) Reshape(dims ...int) (Tensor, error) {
	vol, err := shape.Volume(dims)
	if err != nil {
		return Tensor{}, err
	}
	if vol != len(t.data) {
		return Tensor{}, &shape.Error{
			Op: "reshape",
			Msg: "cannot reshape " + shape.String(t.shape) + " to " +
				shape.String(dims),
		}
	}
	return Tensor{shape: append([]int(nil), dims...), data: t.data}, nil
}

// FlattenC is the row-major element order.
func (t Tensor) FlattenC() []float32 {
	return t.Data()
}

// FlattenF is the column-major element order (first index fastest).
func (t Tensor) FlattenF() []float32 {
	return t.Flatten(ColumnMajor)
}

// FlattenHybrid keeps the trailing ndim-2 dimensions, merges the leading
// ones into a single row-major dimension, and flattens the result
// column-major. A 4D KH×KW×C×F kernel is read as (KH*KW)×C×F.
func (t Tensor) FlattenHybrid() []float32 {
	return t.Flatten(Hybrid)
}

// Flatten places every element at its Offset under o.
func (t Tensor) Flatten(o Order) []float32 {
	if o == RowMajor {
		return t.Data()
	}
	var (
		out = make([]float32, len(t.data))
		idx = make([]int, len(t.shape))
	)
	for i, x := range t.data {
		if err := shape.MultiIndexInto(idx, i, t.shape); err != nil {
			panic(err)
		}
		at, err := o.Offset(idx, t.shape)
		if err != nil {
			panic(err)
		}
		out[at] = x
	}
	return out
}
