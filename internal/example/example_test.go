package example

import (
	"bytes"
	"testing"

	"NNC/internal/compile"
	"NNC/internal/compile/plan"
	"NNC/internal/raw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"MLP", "LeNetTiny"}, Names())
	assert.Nil(t, Generate("ResNet50"))
}

func TestGenerateIsRepeatable(t *testing.T) {
	for _, name := range Names() {
		assert.Equal(t, Generate(name), Generate(name), name)
	}
}

func TestGenerateParses(t *testing.T) {
	n, err := raw.Parse(Generate("LeNetTiny"))
	require.NoError(t, err)
	assert.Equal(t, "lenet", n.Config.Prefix)
	assert.Equal(t, "generic", n.Config.Strategy)
	require.Len(t, n.Layers, 6)
	_, ok := n.Layers[1].(*raw.Conv2D)
	assert.True(t, ok)
	net, err := n.Network()
	require.NoError(t, err)
	assert.Equal(t, 36, net.InSize())
	assert.Equal(t, 3, net.OutSize())
}

func TestMLPShape(t *testing.T) {
	n, err := raw.Parse(Generate("MLP"))
	require.NoError(t, err)
	net, err := n.Network()
	require.NoError(t, err)
	assert.Equal(t, 5, net.Len())
	assert.Equal(t, 8, net.InSize())
	assert.Equal(t, 4, net.OutSize())
	assert.Equal(t, 16, net.MaxSize())
}

// Every example compiles under every strategy, with the convolution
// check switched on.
func TestCompileEveryStrategy(t *testing.T) {
	for _, name := range Names() {
		for _, strategy := range plan.StrategyStrings {
			text := Generate(name)
			text = bytes.Replace(text, []byte("strategy: generic"), []byte("strategy: "+strategy), 1)
			text = bytes.Replace(text, []byte("verify: false"), []byte("verify: true"), 1)
			res, err := compile.Compile(text)
			require.NoError(t, err, "%s %s", name, strategy)
			assert.Contains(t, string(res.H), "int inference(", "%s %s", name, strategy)
			assert.NotEmpty(t, res.C)
			assert.NotEmpty(t, res.G)
		}
	}
}
