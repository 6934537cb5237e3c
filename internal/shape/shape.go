// Package shape does index arithmetic over N-dimensional row-major shapes.
package shape

import (
	"fmt"
	"strconv"
	"strings"
)

// Error reports an invalid shape, an out-of-bounds index, or a reindex
// between shapes of incompatible volume.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	return "shape: " + e.Op + ": " + e.Msg
}

func anError(op, format string, args ...interface{}) error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// String writes a shape like (2, 3, 4).
func String(shape []int) string {
	parts := make([]string, len(shape))
	for i, dim := range shape {
		parts[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Volume is the number of elements in an array of the given shape.
func Volume(shape []int) (int, error) {
	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return 0, anError("volume", "invalid shape %s", String(shape))
		}
		n *= dim
	}
	return n, nil
}

// MustVolume is Volume for shapes already known to be valid.
func MustVolume(shape []int) int {
	n, err := Volume(shape)
	if err != nil {
		panic("bug")
	}
	return n
}

// LinearIndex flattens indices in C order:
// ((i0*s1 + i1)*s2 + i2)*... + iN.
func LinearIndex(indices, shape []int) (int, error) {
	if len(indices) != len(shape) {
		return 0, anError("linear index", "%d indices %s for shape %s",
			len(indices), String(indices), String(shape))
	}
	if _, err := Volume(shape); err != nil {
		return 0, err
	}
	linear := 0
	for i, at := range indices {
		if at < 0 || at >= shape[i] {
			return 0, anError("linear index", "invalid indices %s for shape %s",
				String(indices), String(shape))
		}
		linear = linear*shape[i] + at
	}
	return linear, nil
}

// MultiIndex is the inverse of LinearIndex.
func MultiIndex(linear int, shape []int) ([]int, error) {
	indices := make([]int, len(shape))
	if err := MultiIndexInto(indices, linear, shape); err != nil {
		return nil, err
	}
	return indices, nil
}

// MultiIndexInto is MultiIndex writing into indices, which must have one
// element per dimension.
func MultiIndexInto(indices []int, linear int, shape []int) error {
	vol, err := Volume(shape)
	if err != nil {
		return err
	}
	if len(indices) != len(shape) {
		return anError("multi index", "%d indices for shape %s", len(indices), String(shape))
	}
	if linear < 0 || linear >= vol {
		return anError("multi index", "invalid index %d for shape %s (%d elements)",
			linear, String(shape), vol)
	}
	for i := len(shape) - 1; i >= 0; i-- {
		indices[i] = linear % shape[i]
		linear /= shape[i]
	}
	return nil
}

// Reindex maps indices valid in src to the indices of the same flattened
// position in dst. That reinterprets storage without copying it.
func Reindex(indices, src, dst []int) ([]int, error) {
	volSrc, err := Volume(src)
	if err != nil {
		return nil, err
	}
	volDst, err := Volume(dst)
	if err != nil {
		return nil, err
	}
	if volSrc > volDst {
		return nil, anError("reindex", "cannot index element of %s (%d elements) in %s (%d elements)",
			String(src), volSrc, String(dst), volDst)
	}
	linear, err := LinearIndex(indices, src)
	if err != nil {
		return nil, err
	}
	return MultiIndex(linear, dst)
}

// Strides are the row-major element strides of shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}

// Equal reports whether two shapes have the same dimensions.
func Equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
