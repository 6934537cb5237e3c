package params

import (
	"strings"
	"testing"

	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"

	"github.com/stretchr/testify/assert"
)

func text(g cgen.Gen) string {
	return string(g.Append(nil))
}

func TestStructDef(t *testing.T) {
	got := text(StructDef(&gctx.Ctx{DataType: cgen.Float}))
	assert.True(t, strings.HasPrefix(got, "struct layer {\nint (*layer_type)(int, float*, float*);\nint layer_size;\n"))
	assert.Contains(t, got, "int output_width;\nconst float *weights;\nconst float *biases;\nfloat (*actv_function)(float);\n};\n")
}

func TestFieldOrder(t *testing.T) {
	got := text(StructDef(&gctx.Ctx{DataType: cgen.Double}))
	last := -1
	for _, name := range &Ints {
		at := strings.Index(got, "int "+name+";")
		assert.Greater(t, at, last, name)
		last = at
	}
}

func TestDecl(t *testing.T) {
	assert.Equal(t, "extern struct layer net[NB_LAYERS];\n", text(Decl()))
}

func TestRow(t *testing.T) {
	r := &Row{
		Idx:     1,
		Type:    "Dense",
		Attrs:   []string{"layer_size"},
		Weights: "weights_Dense_01",
		Biases:  "biases_Dense_01",
		Act:     cgen.Vb("relu"),
	}
	got := text(r.Gen())
	assert.True(t, strings.HasPrefix(got, "[1] = {\n.layer_type = Dense,\n.layer_size = l1_size,\n.pad_right = 0x0,\n"))
	assert.Contains(t, got, ".output_width = 0x0,\n.weights = weights_Dense_01,\n.biases = biases_Dense_01,\n.actv_function = relu\n}")

	empty := text((&Row{Idx: 0, Type: "Input_layer", Attrs: []string{"layer_size"}}).Gen())
	assert.Contains(t, empty, ".weights = 0x0,\n.biases = 0x0,\n.actv_function = 0x0\n}")
}

func TestRowUnknownAttr(t *testing.T) {
	r := &Row{Type: "Dense", Attrs: []string{"bogus"}}
	assert.Panics(t, func() { r.Gen() })
}

func TestDef(t *testing.T) {
	rows := []cgen.Gen{
		(&Row{Idx: 0, Type: "Input_layer", Attrs: []string{"layer_size"}}).Gen(),
		(&Row{Idx: 1, Type: "Softmax", Attrs: []string{"layer_size"}}).Gen(),
	}
	got := text(Def(rows))
	assert.True(t, strings.HasPrefix(got, "struct layer net[NB_LAYERS] = {\n[0] = {\n"))
	assert.Contains(t, got, "},\n[1] = {\n.layer_type = Softmax,")
	assert.True(t, strings.HasSuffix(got, "}\n};\n"))
}
