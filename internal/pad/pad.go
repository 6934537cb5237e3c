// Package pad computes the asymmetric "same" padding of a 2D window
// operation the way TensorFlow does, so output shapes agree with the
// framework the weights were trained in.
package pad

import "fmt"

type Mode int

const (
	Valid Mode = iota
	Same
)

var ModeStrings = []string{
	Valid: "valid",
	Same:  "same",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(ModeStrings) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return ModeStrings[m]
}

// ParseMode accepts the names in ModeStrings.
func ParseMode(s string) (Mode, error) {
	for i, name := range ModeStrings {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown padding %q (expected valid or same)", s)
}

// Padding is the number of implicit zero rows/columns on each side.
type Padding struct {
	Right, Left, Bottom, Top int
}

// Extent is the span of a size-wide window with the given dilation.
func Extent(size, dilation int) int {
	return size + (size-1)*(dilation-1)
}

func along(length, extent, stride int) int {
	var total int
	if length%stride == 0 {
		total = extent - stride
	} else {
		total = extent - length%stride
	}
	if total < 0 {
		return 0
	}
	return total
}

// Compute is the padding of a square size×size window over an
// inHeight×inWidth map. The smaller half of each total goes top/left.
func Compute(mode Mode, inHeight, inWidth, size, stride, dilation int) Padding {
	if mode != Same {
		return Padding{}
	}
	extent := Extent(size, dilation)
	alongH := along(inHeight, extent, stride)
	alongW := along(inWidth, extent, stride)
	top := alongH / 2
	left := alongW / 2
	return Padding{
		Right:  alongW - left,
		Left:   left,
		Bottom: alongH - top,
		Top:    top,
	}
}

// Out is the output length along one axis.
func Out(mode Mode, length, size, stride, dilation int) int {
	switch mode {
	case Same:
		return (length + stride - 1) / stride
	case Valid:
		span := length - Extent(size, dilation) + 1
		if span <= 0 {
			return 0
		}
		return (span + stride - 1) / stride
	default:
		panic("bug")
	}
}
