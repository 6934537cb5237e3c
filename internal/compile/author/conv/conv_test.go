package conv

import (
	"testing"

	"NNC/internal/act"
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/plan"
	"NNC/internal/gemm"
	"NNC/internal/layer"
	"NNC/internal/nmsrc"
	"NNC/internal/pad"
	"NNC/internal/raw"
	"NNC/internal/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(g cgen.Gen) string {
	return string(g.Append(nil))
}

// conv2D is a 2×2 kernel with weights 1..4 and one filter over a side×side
// single-channel input.
func conv2D(t *testing.T, side int, mode pad.Mode) *layer.Conv2D {
	l, err := layer.NewConv2D(1, layer.Conv2DConfig{
		Padding:  mode,
		Stride:   1,
		Kernel:   2,
		Dilation: 1,
		Filters:  1,
		InH:      side,
		InW:      side,
		InC:      1,
		Weights:  tensor.Must([]int{2, 2, 1, 1}, []float32{1, 2, 3, 4}),
		Biases:   tensor.Vector(0),
		Act:      act.Linear,
	})
	require.NoError(t, err)
	return l
}

func frag(s plan.Strategy, l *layer.Conv2D) *gctx.Frag {
	pl := &plan.Plan{
		Config:   &raw.Config{DataType: raw.Float, Tiling: gemm.DefaultTiling},
		Strategy: s,
	}
	return NewCtx(gctx.NewCtx(pl, nmsrc.New()), l).Frag()
}

func TestDefines(t *testing.T) {
	fr := frag(plan.Semi, conv2D(t, 3, pad.Valid))
	defs := text(cgen.Gens(fr.Defines))
	assert.Contains(t, defs, "#define l1_size 4\n")
	assert.Contains(t, defs, "#define l1_pad_right 0\n")
	assert.Contains(t, defs, "#define l1_kernel_size 2\n")
	assert.Contains(t, defs, "#define l1_output_width 2\n")
	assert.Len(t, fr.Defines, len(Attrs))
}

func TestGeneric(t *testing.T) {
	fr := frag(plan.Generic, conv2D(t, 3, pad.Valid))
	fn := text(fr.Shared)
	assert.Contains(t, fn, "int Conv2D(int layer_idx, float* input, float* output) {\n")
	assert.Contains(t, fn, "int ii = i*net[layer_idx].strides+m*net[layer_idx].dilation_rate-net[layer_idx].pad_top;\n")
	assert.Contains(t, fn, "int jj = j*net[layer_idx].strides+n*net[layer_idx].dilation_rate-net[layer_idx].pad_left;\n")
	assert.Contains(t, fn, "if (ii >= 0 && ii < net[layer_idx].input_height && jj >= 0 && jj < net[layer_idx].input_width) {\n")
	assert.Contains(t, fn, "output[(i*net[layer_idx].output_width+j)*net[layer_idx].nb_filters+f] = net[layer_idx].actv_function(sum);\n")
	row := text(fr.Row)
	assert.Contains(t, row, ".nb_filters = l1_nb_filters")
	assert.Contains(t, row, ".layer_size = l1_size")
	assert.Contains(t, row, ".actv_function = linear")
	assert.Empty(t, fr.Funcs)
	assert.Equal(t, 6, fr.Flow.Depth())
}

func TestSemi(t *testing.T) {
	fr := frag(plan.Semi, conv2D(t, 3, pad.Valid))
	body := text(fr.Body)
	assert.Contains(t, body, "// Conv2D_1\n{\n")
	assert.Contains(t, body, "int ii = i*l1_strides+m*l1_dilation_rate-l1_pad_top;\n")
	assert.Contains(t, body, "sum += output_pre[(ii*l1_input_width+jj)*l1_input_channels+c]*"+
		"weights_Conv2D_01[((m*l1_kernel_size+n)*l1_input_channels+c)*l1_nb_filters+f];\n")
	assert.Contains(t, body, "output_cur[(i*l1_output_width+j)*l1_nb_filters+f] = sum;\n")
	assert.Len(t, fr.Externs, 2)
}

func TestUnrolledValid(t *testing.T) {
	body := text(frag(plan.Unrolled, conv2D(t, 3, pad.Valid)).Body)
	assert.Contains(t, body, "sum = 0;\n"+
		"sum += nn_input[0]*1e+00f;\n"+
		"sum += nn_input[1]*2e+00f;\n"+
		"sum += nn_input[3]*3e+00f;\n"+
		"sum += nn_input[4]*4e+00f;\n"+
		"sum += 0e+00f;\n"+
		"output_cur[0] = sum;\n")
	assert.Contains(t, body, "output_cur[3] = sum;\n")
	assert.NotContains(t, body, "output_cur[4]")
}

// Padding taps do not appear at all in unrolled code.
func TestUnrolledSame(t *testing.T) {
	body := text(frag(plan.Unrolled, conv2D(t, 2, pad.Same)).Body)
	assert.Contains(t, body, "sum = 0;\n"+
		"sum += nn_input[3]*1e+00f;\n"+
		"sum += 0e+00f;\n"+
		"output_cur[3] = sum;\n")
	assert.NotContains(t, body, "if (")
}

func TestOptimized(t *testing.T) {
	fr := frag(plan.Optimized, conv2D(t, 3, pad.Valid))
	require.Len(t, fr.Funcs, 1)
	assert.Contains(t, text(fr.Funcs[0]),
		"static void conv2d_gemm_1(const float* input, float* output, const float* weights, const float* biases) {\n")
	assert.Nil(t, fr.Shared)
	assert.Equal(t, "int Conv2D(int layer_idx, float* input, float* output);\n", text(fr.SharedDecl))
	require.NotNil(t, fr.Row)
	require.Len(t, fr.Flow.Children, 2)
	assert.Equal(t, "conv2d_gemm_1", fr.Flow.Children[0].Name)
	assert.Equal(t, "layer_size", fr.Flow.Children[1].Bound)
	assert.Equal(t, 3, fr.Flow.Children[1].End)
}

func layoutFrag(s plan.Strategy, o tensor.Order, l *layer.Conv2D) *gctx.Frag {
	pl := &plan.Plan{
		Config:   &raw.Config{DataType: raw.Float, Tiling: gemm.DefaultTiling, WeightLayout: o},
		Strategy: s,
	}
	return NewCtx(gctx.NewCtx(pl, nmsrc.New()), l).Frag()
}

func TestWeightLayouts(t *testing.T) {
	l := conv2D(t, 3, pad.Valid)

	fr := layoutFrag(plan.Semi, tensor.ColumnMajor, l)
	assert.Contains(t, text(fr.Body),
		"weights_Conv2D_01[((f*l1_input_channels+c)*l1_kernel_size+n)*l1_kernel_size+m];\n")
	assert.Contains(t, text(fr.Data[0]), "{\n1e+00f, 3e+00f, 2e+00f, 4e+00f\n}")

	fr = layoutFrag(plan.Generic, tensor.Hybrid, l)
	assert.Contains(t, text(fr.Shared), "net[layer_idx].weights[(f*net[layer_idx].input_channels+c)*"+
		"net[layer_idx].kernel_size*net[layer_idx].kernel_size+(m*net[layer_idx].kernel_size+n)]")
	assert.Contains(t, text(fr.Data[0]), "{\n1e+00f, 2e+00f, 3e+00f, 4e+00f\n}")

	fr = layoutFrag(plan.Optimized, tensor.ColumnMajor, l)
	require.Len(t, fr.Funcs, 1)
	assert.Contains(t, text(fr.Funcs[0]),
		"weights[(((g1+x1)*1+(r1+y1)%1)*2+(r1+y1)/1%2)*2+(r1+y1)/2]")

	row := text(layoutFrag(plan.Unrolled, tensor.RowMajor, l).Body)
	assert.Equal(t, row, text(layoutFrag(plan.Unrolled, tensor.Hybrid, l).Body))
}
