package include

import (
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/plan"
)

var alwaysC = [...]string{
	"math.h",
}

func inc(a cgen.Gen) cgen.Gen {
	return cgen.Preprocessor{Head: cgen.Include, Tail: a}
}

// C opens the source file: exp and INFINITY come from math.h, the size
// macros and the parameter table declaration from the header.
func C(pl *plan.Plan) cgen.Gen {
	var gs cgen.Gens
	for _, name := range &alwaysC {
		gs = append(gs, inc(cgen.AngleBracketed(name)))
	}
	return append(gs,
		cgen.Newline,
		inc(cgen.DoubleQuoted(pl.Config.Prefix+".h")),
	)
}

// G opens the globals file.
func G(pl *plan.Plan) cgen.Gen {
	return inc(cgen.DoubleQuoted(pl.Config.Prefix + ".h"))
}
