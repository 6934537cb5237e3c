package tobuild

import (
	"strings"

	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/plan"
	"NNC/internal/raw"
)

// Files are the sources of one generated network.
func Files(pl *plan.Plan) []string {
	p := pl.Config.Prefix
	return []string{p + ".c", p + "_globals.c"}
}

// Gen is the comment telling how to build an object file.
func Gen(pl *plan.Plan) cgen.Gen {
	return cgen.Comment{
		"To build an object file:",
		strings.Join(append([]string{
			"gcc",
			"-c",
			"-std=c99",
			"-O2",
		}, Files(pl)...), " "),
		"Data type: " + raw.DataTypeStrings[pl.Config.DataType] + ".",
	}
}
