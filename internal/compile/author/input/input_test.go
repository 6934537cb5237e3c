package input

import (
	"testing"

	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
	"NNC/internal/nmsrc"
	"NNC/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(g cgen.Gen) string {
	return string(g.Append(nil))
}

func frag(t *testing.T, s plan.Strategy) *gctx.Frag {
	pl := &plan.Plan{Config: &raw.Config{DataType: raw.Float}, Strategy: s}
	l, err := layer.NewInput(4)
	require.NoError(t, err)
	return NewCtx(gctx.NewCtx(pl, nmsrc.New()), l).Frag()
}

func TestGeneric(t *testing.T) {
	fr := frag(t, plan.Generic)
	assert.Equal(t, "Input", fr.Key)
	assert.Equal(t, "int Input(int layer_idx, float* input, float* output) {\n"+
		"for (int i = 0; i < net[layer_idx].layer_size; ++i) {\n"+
		"output[i] = input[i];\n"+
		"}\n"+
		"return 0;\n"+
		"}\n", text(fr.Shared))
	assert.Equal(t, "int Input(int layer_idx, float* input, float* output);\n", text(fr.SharedDecl))
	assert.Contains(t, text(fr.Row), ".layer_size = l0_size")
	assert.Equal(t, "#define l0_size 4\n", text(cgen.Gens(fr.Defines)))
	require.NotNil(t, fr.Flow)
	assert.Nil(t, fr.Body)
}

func TestSemi(t *testing.T) {
	fr := frag(t, plan.Semi)
	assert.Nil(t, fr.Shared)
	assert.Nil(t, fr.Row)
	assert.Equal(t, "// Input_0\n{\n"+
		"for (int i = 0; i < l0_size; ++i) {\n"+
		"output_pre[i] = nn_input[i];\n"+
		"}\n"+
		"}\n", text(fr.Body))
}

func TestUnrolled(t *testing.T) {
	fr := frag(t, plan.Unrolled)
	assert.Equal(t, "// Input_0\n\n", text(fr.Body))
	assert.Nil(t, fr.Data)
}
