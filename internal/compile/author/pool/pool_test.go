package pool

import (
	"testing"

	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
	"NNC/internal/nmsrc"
	"NNC/internal/pad"
	"NNC/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(g cgen.Gen) string {
	return string(g.Append(nil))
}

func pooling(t *testing.T, r layer.Reduction, mode pad.Mode, stride, side int) *layer.Pooling {
	l, err := layer.NewPooling(1, layer.PoolingConfig{
		Reduction: r,
		Padding:   mode,
		Stride:    stride,
		PoolSize:  2,
		InH:       side,
		InW:       side,
		InC:       1,
	})
	require.NoError(t, err)
	return l
}

func frag(s plan.Strategy, l *layer.Pooling) *gctx.Frag {
	pl := &plan.Plan{Config: &raw.Config{DataType: raw.Float}, Strategy: s}
	return NewCtx(gctx.NewCtx(pl, nmsrc.New()), l).Frag()
}

func TestGenericAverage(t *testing.T) {
	fr := frag(plan.Generic, pooling(t, layer.Average, pad.Valid, 2, 4))
	fn := text(fr.Shared)
	assert.Contains(t, fn, "int AveragePooling2D(int layer_idx, float* input, float* output) {\n"+
		"float sum;\n"+
		"int count;\n")
	assert.Contains(t, fn, "sum = 0;\ncount = 0;\n")
	assert.Contains(t, fn, "int ii = i*net[layer_idx].strides+m-net[layer_idx].pad_top;\n")
	assert.Contains(t, fn, "int jj = j*net[layer_idx].strides+n-net[layer_idx].pad_left;\n")
	assert.Contains(t, fn, "sum += input[(ii*net[layer_idx].input_width+jj)*net[layer_idx].input_channels+c];\n++count;\n")
	assert.Contains(t, fn, "output[(i*net[layer_idx].output_width+j)*net[layer_idx].input_channels+c] = sum/count;\n")
	row := text(fr.Row)
	assert.Contains(t, row, ".pool_size = l1_pool_size")
	assert.Contains(t, row, ".kernel_size = 0x0")
	assert.Contains(t, row, ".weights = 0x0")
	assert.Equal(t, 5, fr.Flow.Depth())
}

func TestSemiMax(t *testing.T) {
	fr := frag(plan.Semi, pooling(t, layer.Max, pad.Valid, 2, 4))
	body := text(fr.Body)
	assert.Contains(t, body, "// MaxPooling2D_1\n{\nfloat max;\n")
	assert.Contains(t, body, "max = -INFINITY;\n")
	assert.Contains(t, body, "if (output_pre[(ii*l1_input_width+jj)*l1_input_channels+c] > max) {\n"+
		"max = output_pre[(ii*l1_input_width+jj)*l1_input_channels+c];\n"+
		"}\n")
	assert.Contains(t, body, "output_cur[(i*l1_output_width+j)*l1_input_channels+c] = max;\n")
	defs := text(cgen.Gens(fr.Defines))
	assert.Contains(t, defs, "#define l1_size 4\n")
	assert.Contains(t, defs, "#define l1_pool_size 2\n")
	assert.Empty(t, fr.Data)
}

func TestUnrolledMax(t *testing.T) {
	body := text(frag(plan.Unrolled, pooling(t, layer.Max, pad.Valid, 2, 4)).Body)
	assert.Contains(t, body, "max = -INFINITY;\n"+
		"if (nn_input[0] > max) {\nmax = nn_input[0];\n}\n"+
		"if (nn_input[1] > max) {\nmax = nn_input[1];\n}\n"+
		"if (nn_input[4] > max) {\nmax = nn_input[4];\n}\n"+
		"if (nn_input[5] > max) {\nmax = nn_input[5];\n}\n"+
		"output_cur[0] = max;\n")
	assert.Contains(t, body, "max = nn_input[15];\n}\noutput_cur[3] = max;\n")
}

// Unrolled averages divide by the number of taps inside the input.
func TestUnrolledAverageSame(t *testing.T) {
	body := text(frag(plan.Unrolled, pooling(t, layer.Average, pad.Same, 1, 3)).Body)
	assert.NotContains(t, body, "count")
	assert.Contains(t, body, "sum = 0;\n"+
		"sum += nn_input[0];\n"+
		"sum += nn_input[1];\n"+
		"sum += nn_input[3];\n"+
		"sum += nn_input[4];\n"+
		"output_cur[0] = sum/4;\n")
	assert.Contains(t, body, "sum = 0;\nsum += nn_input[8];\noutput_cur[8] = sum/1;\n")
	assert.Contains(t, body, "sum = 0;\nsum += nn_input[2];\nsum += nn_input[5];\noutput_cur[2] = sum/2;\n")
}
