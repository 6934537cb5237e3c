package act

import (
	"NNC/internal/act"
	"NNC/internal/compile/author/cgen"
)

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

// Ref is the function designator stored in the parameter table.
func Ref(k act.Kind) cgen.Gen {
	return vb(k.String())
}

// Decl is the prototype, like: float relu(float);
func Decl(k act.Kind, dataType cgen.Gen) cgen.Gen {
	return cgen.FuncDecl{
		ReturnType: dataType,
		Name:       k.String(),
		Params:     dataType,
	}
}

// Def is the definition. Its body computes what act.Kind.Eval does.
func Def(k act.Kind, dataType cgen.Gen) cgen.Gen {
	x := vb("x")
	var body cgen.Stmts
	switch k {
	case act.ReLU:
		body = cgen.Stmts{
			cgen.If{
				Cond: cgen.CmpL{Expr1: x, Expr2: cgen.Zero},
				Then: cgen.Stmts{cgen.Return{Expr: cgen.Zero}},
				Else: cgen.Stmts{cgen.Return{Expr: x}},
			},
		}
	default:
		body = cgen.Stmts{cgen.Return{Expr: Expr(k, x)}}
	}
	return cgen.FuncDef{
		ReturnType: dataType,
		Name:       k.String(),
		Params:     cgen.Param{Type: dataType, What: x},
		Body:       body,
	}
}

func exp(arg cgen.Gen) cgen.Gen {
	return cgen.Call{Func: cgen.Exp, Args: arg}
}

// Expr is the activation inlined over v, which must be a name or an
// element reference (it may be repeated in the text).
func Expr(k act.Kind, v cgen.Gen) cgen.Gen {
	switch k {
	case act.Linear:
		return v
	case act.ReLU:
		return cgen.Ternary{
			Cond: cgen.CmpG{Expr1: v, Expr2: cgen.Zero},
			Then: v,
			Else: cgen.Zero,
		}
	case act.Sigmoid:
		return cgen.Quo{
			Expr1: cgen.One,
			Expr2: cgen.Paren{Inner: cgen.Add{
				Expr1: cgen.One,
				Expr2: exp(cgen.Neg{Expr: v}),
			}},
		}
	case act.TanH:
		var (
			pos = exp(v)
			neg = exp(cgen.Neg{Expr: v})
		)
		return cgen.Quo{
			Expr1: cgen.Paren{Inner: cgen.Sub{Expr1: pos, Expr2: neg}},
			Expr2: cgen.Paren{Inner: cgen.Add{Expr1: pos, Expr2: neg}},
		}
	default:
		panic("bug")
	}
}
