package layer

import (
	"NNC/internal/act"
	"NNC/internal/gemm"
	"NNC/internal/pad"
	"NNC/internal/shape"
	"NNC/internal/tensor"
)

// Conv2DConfig describes a square-kernel convolution over an H×W×C input.
// OutH and OutW may be zero, in which case they are derived from the
// padding rule; otherwise they must agree with it.
type Conv2DConfig struct {
	Padding    pad.Mode
	Stride     int
	Kernel     int
	Dilation   int
	Filters    int
	InH, InW   int
	InC        int
	OutH, OutW int
	Weights    tensor.Tensor
	Biases     tensor.Tensor
	Act        act.Kind
}

// Conv2D holds weights KH×KW×C×F and produces OutH×OutW×Filters.
type Conv2D struct {
	Base
	Conv2DConfig
	Pad pad.Padding
}

func NewConv2D(idx int, cfg Conv2DConfig) (*Conv2D, error) {
	fail := func(err error) (*Conv2D, error) {
		return nil, anError(idx, conv2DName, err)
	}
	err := positive("conv2d",
		dim{"strides", cfg.Stride},
		dim{"kernel_size", cfg.Kernel},
		dim{"dilation_rate", cfg.Dilation},
		dim{"nb_filters", cfg.Filters},
		dim{"input_height", cfg.InH},
		dim{"input_width", cfg.InW},
		dim{"input_channels", cfg.InC},
	)
	if err != nil {
		return fail(err)
	}
	outH, err := outExtent("conv2d", "output_height", cfg.Padding, cfg.InH,
		cfg.Kernel, cfg.Stride, cfg.Dilation, cfg.OutH)
	if err != nil {
		return fail(err)
	}
	outW, err := outExtent("conv2d", "output_width", cfg.Padding, cfg.InW,
		cfg.Kernel, cfg.Stride, cfg.Dilation, cfg.OutW)
	if err != nil {
		return fail(err)
	}
	cfg.OutH, cfg.OutW = outH, outW
	want := []int{cfg.Kernel, cfg.Kernel, cfg.InC, cfg.Filters}
	if ws := cfg.Weights.Shape(); !shape.Equal(ws, want) {
		return fail(shapeError("conv2d", "weights have shape %v, want %v", ws, want))
	}
	if bs := cfg.Biases.Shape(); !shape.Equal(bs, []int{cfg.Filters}) {
		return fail(shapeError("conv2d", "biases have shape %v, want [%d]", bs, cfg.Filters))
	}
	return &Conv2D{
		Base:         Base{idx: idx, size: outH * outW * cfg.Filters},
		Conv2DConfig: cfg,
		Pad:          pad.Compute(cfg.Padding, cfg.InH, cfg.InW, cfg.Kernel, cfg.Stride, cfg.Dilation),
	}, nil
}

func outExtent(op, name string, mode pad.Mode, length, size, stride, dilation, given int) (int, error) {
	n := pad.Out(mode, length, size, stride, dilation)
	if n <= 0 {
		return 0, shapeError(op, "%s padding leaves no %s for input %d, window %d",
			mode, name, length, pad.Extent(size, dilation))
	}
	if given != 0 && given != n {
		return 0, shapeError(op, "%s is %d, %s padding gives %d", name, given, mode, n)
	}
	return n, nil
}

func (c *Conv2D) Name() string { return conv2DName }

// InSize is InH*InW*InC.
func (c *Conv2D) InSize() int { return c.InH * c.InW * c.InC }

// Conv is the shape handed to the implicit-GEMM algorithm.
func (c *Conv2D) Conv() gemm.Conv {
	return gemm.Conv{
		F: c.Filters, C: c.InC,
		OH: c.OutH, OW: c.OutW,
		KH: c.Kernel, KW: c.Kernel,
		IH: c.InH, IW: c.InW,
		Stride:   c.Stride,
		Dilation: c.Dilation,
		PadTop:   c.Pad.Top,
		PadLeft:  c.Pad.Left,
	}
}

func (c *Conv2D) checkIn(in tensor.Tensor) error {
	if in.Len() != c.InSize() {
		return anError(c.idx, conv2DName,
			shapeError("eval", "input has %d elements, want %d", in.Len(), c.InSize()))
	}
	return nil
}

func (c *Conv2D) shaped(out []float32) (tensor.Tensor, error) {
	return tensor.New([]int{c.OutH, c.OutW, c.Filters}, out)
}

func (c *Conv2D) Eval(in tensor.Tensor) (tensor.Tensor, error) {
	if err := c.checkIn(in); err != nil {
		return tensor.Tensor{}, err
	}
	out, err := gemm.Direct(c.Conv(), in.Data(), c.Weights.Data(), c.Biases.Data())
	if err != nil {
		return tensor.Tensor{}, anError(c.idx, conv2DName, err)
	}
	return c.shaped(c.Act.Apply(out))
}

// Implicit evaluates through the tiled algorithm instead of the direct
// formula.
func (c *Conv2D) Implicit(in tensor.Tensor, t gemm.Tiling) (tensor.Tensor, error) {
	if err := c.checkIn(in); err != nil {
		return tensor.Tensor{}, err
	}
	out, err := gemm.Implicit(c.Conv(), t, in.Data(), c.Weights.Data(), c.Biases.Data())
	if err != nil {
		return tensor.Tensor{}, anError(c.idx, conv2DName, err)
	}
	return c.shaped(c.Act.Apply(out))
}

// Verify runs the tiled algorithm against the direct formula on in.
func (c *Conv2D) Verify(in tensor.Tensor, t gemm.Tiling) error {
	if err := c.checkIn(in); err != nil {
		return err
	}
	err := gemm.Verify(c.Conv(), t, in.Data(), c.Weights.Data(), c.Biases.Data())
	if err != nil {
		return anError(c.idx, conv2DName, err)
	}
	return nil
}
