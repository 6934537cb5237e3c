package tensor

import (
	"fmt"

	"NNC/internal/shape"
)

// Order is how an array is laid out when it is written to C.
type Order int

const (
	RowMajor Order = iota
	ColumnMajor
	Hybrid
)

var OrderStrings = []string{
	RowMajor:    "row_major",
	ColumnMajor: "column_major",
	Hybrid:      "hybrid",
}

func (o Order) String() string {
	if o < 0 || int(o) >= len(OrderStrings) {
		return fmt.Sprintf("Order(%d)", int(o))
	}
	return OrderStrings[o]
}

// Merged is dims with the two leading dimensions merged into one, the
// shape Hybrid flattens column-major. Shapes of rank two or less are
// returned unchanged.
func Merged(dims []int) []int {
	if len(dims) <= 2 {
		return dims
	}
	return append([]int{dims[0] * dims[1]}, dims[2:]...)
}

// Offset is where the element at indices of a dims-shaped tensor lands
// when the tensor is flattened in order o.
func (o Order) Offset(indices, dims []int) (int, error) {
	switch o {
	case RowMajor:
		return shape.LinearIndex(indices, dims)
	case ColumnMajor:
		return shape.LinearIndex(reversed(indices), reversed(dims))
	case Hybrid:
		merged := Merged(dims)
		at, err := shape.Reindex(indices, dims, merged)
		if err != nil {
			return 0, err
		}
		return ColumnMajor.Offset(at, merged)
	default:
		panic("bug")
	}
}

func reversed(xs []int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}
