// Package gemm computes 2D convolution as tiled matrix products over
// gathered weight and input slices (implicit GEMM), alongside the direct
// nested-loop formula it must agree with.
//
// Layouts are row-major: input IH×IW×C, weights KH×KW×C×F, output OH×OW×F.
package gemm

import (
	"fmt"
	"math"

	"NNC/internal/shape"

	"gonum.org/v1/gonum/mat"
)

// Conv is the shape of one convolution.
type Conv struct {
	F, C     int
	OH, OW   int
	KH, KW   int
	IH, IW   int
	Stride   int
	Dilation int
	PadTop   int
	PadLeft  int
}

// Tiling is the filter tile M, the output-position tile N, and the
// reduction tile K.
type Tiling struct {
	M, N, K int
}

var DefaultTiling = Tiling{M: 8, N: 8, K: 4}

func (t Tiling) Valid() error {
	if t.M <= 0 || t.N <= 0 || t.K <= 0 {
		return fmt.Errorf("gemm: invalid tiling %d×%d×%d", t.M, t.N, t.K)
	}
	return nil
}

// Reduce is the length of the combined KH×KW×C reduction dimension.
func (cv *Conv) Reduce() int {
	return cv.KH * cv.KW * cv.C
}

// Positions is the number of output pixels.
func (cv *Conv) Positions() int {
	return cv.OH * cv.OW
}

func (cv *Conv) check(input, weights, biases []float32) error {
	switch {
	case len(input) < cv.IH*cv.IW*cv.C:
		return fmt.Errorf("gemm: input has %d elements, want %d", len(input), cv.IH*cv.IW*cv.C)
	case len(weights) < cv.Reduce()*cv.F:
		return fmt.Errorf("gemm: weights have %d elements, want %d", len(weights), cv.Reduce()*cv.F)
	case len(biases) != cv.F:
		return fmt.Errorf("gemm: biases have %d elements, want %d", len(biases), cv.F)
	}
	return nil
}

// InputIndex maps an output coordinate and a kernel tap to an input
// coordinate along one axis. The result may fall in the padding.
func InputIndex(out, tap, stride, dilation, pad int) int {
	return out*stride + tap*dilation - pad
}

// tapReader reads the input element kernel position r (linear in KH×KW×C)
// sees from output position p (linear in OH×OW). The index buffers are
// reused across reads.
type tapReader struct {
	cv       *Conv
	in       []float32
	posDims  []int
	redDims  []int
	pos, red []int
}

func (cv *Conv) reader(input []float32) *tapReader {
	return &tapReader{
		cv:      cv,
		in:      input,
		posDims: []int{cv.OH, cv.OW},
		redDims: []int{cv.KH, cv.KW, cv.C},
		pos:     make([]int, 2),
		red:     make([]int, 3),
	}
}

// at is zero when the tap lands in the padding.
func (t *tapReader) at(p, r int) float64 {
	if shape.MultiIndexInto(t.pos, p, t.posDims) != nil ||
		shape.MultiIndexInto(t.red, r, t.redDims) != nil {
		panic("bug")
	}
	var (
		cv     = t.cv
		oh, ow = t.pos[0], t.pos[1]
		kh, kw = t.red[0], t.red[1]
		c      = t.red[2]
		ih     = InputIndex(oh, kh, cv.Stride, cv.Dilation, cv.PadTop)
		iw     = InputIndex(ow, kw, cv.Stride, cv.Dilation, cv.PadLeft)
	)
	if ih < 0 || ih >= cv.IH || iw < 0 || iw >= cv.IW {
		return 0
	}
	return float64(t.in[(ih*cv.IW+iw)*cv.C+c])
}

// Mma is D = A×B + C for row-major A (m×k), B (k×n), C (m×n).
func Mma(m, n, k int, a, b, c []float64) []float64 {
	d := mat.NewDense(m, n, nil)
	d.Mul(mat.NewDense(m, k, a), mat.NewDense(k, n, b))
	d.Add(d, mat.NewDense(m, n, c))
	return d.RawMatrix().Data
}

// Implicit is the tiled convolution. The output starts at the biases and
// accumulates one M×K by K×N tile product per reduction tile; tile slots
// past the edge of a dimension are zero.
func Implicit(cv Conv, t Tiling, input, weights, biases []float32) ([]float32, error) {
	if err := t.Valid(); err != nil {
		return nil, err
	}
	if err := cv.check(input, weights, biases); err != nil {
		return nil, err
	}
	var (
		positions = cv.Positions()
		reduce    = cv.Reduce()
		acc       = make([]float64, positions*cv.F)
		a         = make([]float64, t.M*t.K)
		b         = make([]float64, t.K*t.N)
		zero      = make([]float64, t.M*t.N)
		tp        = cv.reader(input)
	)
	for p := 0; p < positions; p++ {
		for f := 0; f < cv.F; f++ {
			acc[p*cv.F+f] = float64(biases[f])
		}
	}
	for g := 0; g < cv.F; g += t.M {
		for i := 0; i < positions; i += t.N {
			for k := 0; k < reduce; k += t.K {
				for ah := 0; ah < t.M; ah++ {
					for aw := 0; aw < t.K; aw++ {
						v := 0.0
						if g+ah < cv.F && k+aw < reduce {
							v = float64(weights[(k+aw)*cv.F+g+ah])
						}
						a[ah*t.K+aw] = v
					}
				}
				for bh := 0; bh < t.K; bh++ {
					for bw := 0; bw < t.N; bw++ {
						v := 0.0
						if i+bw < positions && k+bh < reduce {
							v = tp.at(i+bw, k+bh)
						}
						b[bh*t.N+bw] = v
					}
				}
				d := Mma(t.M, t.N, t.K, a, b, zero)
				for m := 0; m < t.M; m++ {
					for n := 0; n < t.N; n++ {
						if g+m < cv.F && i+n < positions {
							acc[(i+n)*cv.F+g+m] += d[m*t.N+n]
						}
					}
				}
			}
		}
	}
	return narrow(acc), nil
}

// Direct is the nested-loop convolution formula, skipping padding taps.
func Direct(cv Conv, input, weights, biases []float32) ([]float32, error) {
	if err := cv.check(input, weights, biases); err != nil {
		return nil, err
	}
	out := make([]float64, cv.Positions()*cv.F)
	for oh := 0; oh < cv.OH; oh++ {
		for ow := 0; ow < cv.OW; ow++ {
			for f := 0; f < cv.F; f++ {
				sum := 0.0
				for kh := 0; kh < cv.KH; kh++ {
					ih := InputIndex(oh, kh, cv.Stride, cv.Dilation, cv.PadTop)
					if ih < 0 || ih >= cv.IH {
						continue
					}
					for kw := 0; kw < cv.KW; kw++ {
						iw := InputIndex(ow, kw, cv.Stride, cv.Dilation, cv.PadLeft)
						if iw < 0 || iw >= cv.IW {
							continue
						}
						for c := 0; c < cv.C; c++ {
							x := input[(ih*cv.IW+iw)*cv.C+c]
							w := weights[((kh*cv.KW+kw)*cv.C+c)*cv.F+f]
							sum += float64(x) * float64(w)
						}
					}
				}
				out[(oh*cv.OW+ow)*cv.F+f] = sum + float64(biases[f])
			}
		}
	}
	return narrow(out), nil
}

func narrow(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(x)
	}
	return out
}

// RelTol is the agreement required between Implicit and Direct. It
// allows for accumulation-order drift only.
const RelTol = 1e-2

// MismatchError is an Implicit result that disagrees with Direct.
type MismatchError struct {
	Row, Col, Filter int
	Direct, Implicit float32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("gemm: implicit convolution mismatch at [%d, %d, %d]: direct %g, implicit %g",
		e.Row, e.Col, e.Filter, e.Direct, e.Implicit)
}

// Close compares relatively, with a small absolute floor for values that
// cancel to near zero.
func Close(a, b, rel float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= rel*math.Max(math.Abs(a), math.Abs(b)) || diff <= 1e-6
}

// Verify runs both formulations and reports the first disagreement.
func Verify(cv Conv, t Tiling, input, weights, biases []float32) error {
	want, err := Direct(cv, input, weights, biases)
	if err != nil {
		return err
	}
	got, err := Implicit(cv, t, input, weights, biases)
	if err != nil {
		return err
	}
	for i := range want {
		if !Close(float64(want[i]), float64(got[i]), RelTol) {
			at, err := shape.MultiIndex(i, []int{cv.OH, cv.OW, cv.F})
			if err != nil {
				return err
			}
			return &MismatchError{
				Row: at[0], Col: at[1], Filter: at[2],
				Direct: want[i], Implicit: got[i],
			}
		}
	}
	return nil
}
