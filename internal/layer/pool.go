package layer

import (
	"fmt"
	"math"

	"NNC/internal/pad"
	"NNC/internal/tensor"
)

// Reduction selects what a Pooling layer computes over its window.
type Reduction int

const (
	Average Reduction = iota
	Max
)

type reducer struct {
	name string
	init float64
	acc  func(s, x float64) float64
	fin  func(s float64, n int) float64
}

var reducers = [...]reducer{
	Average: {
		name: "AveragePooling2D",
		init: 0,
		acc:  func(s, x float64) float64 { return s + x },
		fin:  func(s float64, n int) float64 { return s / float64(n) },
	},
	Max: {
		name: "MaxPooling2D",
		init: math.Inf(-1),
		acc:  math.Max,
		fin:  func(s float64, _ int) float64 { return s },
	},
}

func (r Reduction) String() string {
	if r < 0 || int(r) >= len(reducers) {
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
	return reducers[r].name
}

// PoolingConfig describes a square-window pooling over H×W×C. OutH and
// OutW follow the same rule as Conv2DConfig.
type PoolingConfig struct {
	Reduction  Reduction
	Padding    pad.Mode
	Stride     int
	PoolSize   int
	InH, InW   int
	InC        int
	OutH, OutW int
}

// Pooling reduces each channel independently. Windows are placed like a
// convolution with dilation 1, and taps in the padding are skipped: an
// average divides by the number of taps actually read.
type Pooling struct {
	Base
	PoolingConfig
	Pad pad.Padding
}

func NewPooling(idx int, cfg PoolingConfig) (*Pooling, error) {
	if cfg.Reduction != Average && cfg.Reduction != Max {
		panic("bug")
	}
	name := cfg.Reduction.String()
	fail := func(err error) (*Pooling, error) {
		return nil, anError(idx, name, err)
	}
	err := positive("pooling",
		dim{"strides", cfg.Stride},
		dim{"pool_size", cfg.PoolSize},
		dim{"input_height", cfg.InH},
		dim{"input_width", cfg.InW},
		dim{"input_channels", cfg.InC},
	)
	if err != nil {
		return fail(err)
	}
	outH, err := outExtent("pooling", "output_height", cfg.Padding, cfg.InH,
		cfg.PoolSize, cfg.Stride, 1, cfg.OutH)
	if err != nil {
		return fail(err)
	}
	outW, err := outExtent("pooling", "output_width", cfg.Padding, cfg.InW,
		cfg.PoolSize, cfg.Stride, 1, cfg.OutW)
	if err != nil {
		return fail(err)
	}
	cfg.OutH, cfg.OutW = outH, outW
	return &Pooling{
		Base:          Base{idx: idx, size: outH * outW * cfg.InC},
		PoolingConfig: cfg,
		Pad:           pad.Compute(cfg.Padding, cfg.InH, cfg.InW, cfg.PoolSize, cfg.Stride, 1),
	}, nil
}

func (p *Pooling) Name() string { return p.Reduction.String() }

// InSize is InH*InW*InC.
func (p *Pooling) InSize() int { return p.InH * p.InW * p.InC }

func (p *Pooling) Eval(in tensor.Tensor) (tensor.Tensor, error) {
	if in.Len() != p.InSize() {
		return tensor.Tensor{}, anError(p.idx, p.Name(),
			shapeError("eval", "input has %d elements, want %d", in.Len(), p.InSize()))
	}
	var (
		r   = reducers[p.Reduction]
		xs  = in.Data()
		out = make([]float32, p.size)
	)
	for c := 0; c < p.InC; c++ {
		for oh := 0; oh < p.OutH; oh++ {
			for ow := 0; ow < p.OutW; ow++ {
				s, n := r.init, 0
				for m := 0; m < p.PoolSize; m++ {
					ih := oh*p.Stride + m - p.Pad.Top
					if ih < 0 || ih >= p.InH {
						continue
					}
					for k := 0; k < p.PoolSize; k++ {
						iw := ow*p.Stride + k - p.Pad.Left
						if iw < 0 || iw >= p.InW {
							continue
						}
						s = r.acc(s, float64(xs[(ih*p.InW+iw)*p.InC+c]))
						n++
					}
				}
				out[(oh*p.OutW+ow)*p.InC+c] = float32(r.fin(s, n))
			}
		}
	}
	return tensor.New([]int{p.OutH, p.OutW, p.InC}, out)
}
