package tobuild

import (
	"testing"

	"NNC/internal/compile/plan"
	"NNC/internal/raw"

	"github.com/stretchr/testify/assert"
)

func TestGen(t *testing.T) {
	pl := &plan.Plan{Config: &raw.Config{Prefix: "lenet", DataType: raw.Double}}
	assert.Equal(t, []string{"lenet.c", "lenet_globals.c"}, Files(pl))
	assert.Equal(t,
		"// To build an object file:\n"+
			"// gcc -c -std=c99 -O2 lenet.c lenet_globals.c\n"+
			"// Data type: double.\n",
		string(Gen(pl).Append(nil)))
}
