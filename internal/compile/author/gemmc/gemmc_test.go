package gemmc

import (
	"testing"

	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/plan"
	"NNC/internal/gemm"
	"NNC/internal/nmsrc"
	"NNC/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(g cgen.Gen) string {
	return string(g.Append(nil))
}

func ctx() *gctx.Ctx {
	pl := &plan.Plan{
		Config:   &raw.Config{DataType: raw.Float, Tiling: gemm.DefaultTiling},
		Strategy: plan.Optimized,
	}
	return gctx.NewCtx(pl, nmsrc.New())
}

// conv is a 2×2 kernel, one filter, over a 3×3 single-channel input.
var conv = gemm.Conv{
	F: 1, C: 1,
	OH: 2, OW: 2,
	KH: 2, KW: 2,
	IH: 3, IW: 3,
	Stride: 1, Dilation: 1,
}

func TestName(t *testing.T) {
	assert.Equal(t, "conv2d_gemm_4", Name(4))
}

func TestKernel(t *testing.T) {
	k := NewCtx(ctx(), conv, 1).Kernel()
	got := text(k)
	for _, want := range []string{
		"static void conv2d_gemm_1(const float* input, float* output, const float* weights, const float* biases) {\n" +
			"float a1[32];\n" +
			"float b1[32];\n",
		"output[p1*1+f1] = biases[f1];\n",
		"for (int g1 = 0; g1 < 1; g1 += 8) {\n",
		"for (int q1 = 0; q1 < 4; q1 += 8) {\n",
		"for (int r1 = 0; r1 < 4; r1 += 4) {\n",
		"a1[x1*4+y1] = g1+x1 < 1 && r1+y1 < 4 ? weights[(r1+y1)*1+g1+x1] : 0;\n",
		"int s1 = q1+z1;\n",
		"int u1 = r1+y1;\n",
		"int ih1 = s1/2*1+u1/2*1-0;\n",
		"int iw1 = s1%2*1+u1/1%2*1-0;\n",
		"if (ih1 >= 0 && ih1 < 3 && iw1 >= 0 && iw1 < 3) {\n",
		"v1 = input[(ih1*3+iw1)*1+u1%1];\n",
		"b1[y1*8+z1] = v1;\n",
		"d1 += a1[x1*4+y1]*b1[y1*8+z1];\n",
		"if (g1+x1 < 1 && q1+z1 < 4) {\noutput[(q1+z1)*1+g1+x1] += d1;\n}\n",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "net[")
}

// Two kernels in one generation get distinct local names.
func TestKernelNames(t *testing.T) {
	c := ctx()
	NewCtx(c, conv, 1)
	got := text(NewCtx(c, conv, 2).Kernel())
	assert.Contains(t, got, "float a2[32];\n")
	assert.Contains(t, got, "conv2d_gemm_2(")
}

func TestFlow(t *testing.T) {
	f := NewCtx(ctx(), conv, 1).Flow("Conv2D")
	assert.Equal(t, "Conv2D", f.Name)
	require.Len(t, f.Children, 2)
	kernel := f.Children[0]
	assert.Equal(t, "conv2d_gemm_1", kernel.Name)
	assert.Equal(t, 6, f.Depth())
	g := kernel.Children[1]
	assert.Equal(t, "g1", g.Var)
	assert.Equal(t, 0, g.End)
	act := f.Children[1]
	assert.Equal(t, "i", act.Var)
	assert.Equal(t, 3, act.End)
}

func TestWrapper(t *testing.T) {
	got := text(Wrapper(ctx(), "Conv2D", []int{1, 3}))
	assert.Equal(t, "int Conv2D(int layer_idx, float* input, float* output) {\n"+
		"switch (layer_idx) {\n"+
		"case 1: {\n"+
		"conv2d_gemm_1(input, output, net[layer_idx].weights, net[layer_idx].biases);\n"+
		"break;\n"+
		"}\n"+
		"case 3: {\n"+
		"conv2d_gemm_3(input, output, net[layer_idx].weights, net[layer_idx].biases);\n"+
		"break;\n"+
		"}\n"+
		"}\n"+
		"for (int i = 0; i < net[layer_idx].layer_size; ++i) {\n"+
		"output[i] = net[layer_idx].actv_function(output[i]);\n"+
		"}\n"+
		"return 0;\n"+
		"}\n", got)
}
