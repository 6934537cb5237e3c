package dense

import (
	"NNC/internal/compile/author/act"
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/author/params"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
)

const local = "dotproduct"

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

type Ctx struct {
	*gctx.Ctx
	l       *layer.Dense
	name    string
	idx     int
	weights string
	biases  string
}

func NewCtx(ctx *gctx.Ctx, l *layer.Dense) *Ctx {
	name, idx := l.Name(), l.Index()
	return &Ctx{
		Ctx:     ctx,
		l:       l,
		name:    name,
		idx:     idx,
		weights: gctx.WeightsName(name, idx),
		biases:  gctx.BiasesName(name, idx),
	}
}

func (c *Ctx) Frag() *gctx.Frag {
	fr := &gctx.Frag{
		Key:     c.name,
		Defines: gctx.Defines(c.idx, []string{gctx.SizeAttr}, []int{c.l.Size()}),
	}
	switch c.Strategy {
	case plan.Generic, plan.Optimized:
		fr.Shared = c.LayerDef(c.name, c.looped())
		fr.SharedDecl = c.LayerDecl(c.name)
		c.arrays(fr)
		row := &params.Row{
			Idx:     c.idx,
			Type:    c.name,
			Attrs:   []string{params.LayerSize},
			Weights: c.weights,
			Biases:  c.biases,
			Act:     act.Ref(c.l.Act),
		}
		fr.Row = row.Gen()
		fr.Flow = flow.Func(c.name, flow.Nest(
			flow.Loop("i", gctx.Macro(c.idx, gctx.SizeAttr), c.l.Size()),
			flow.Loop("j", gctx.Macro(c.idx-1, gctx.SizeAttr), c.l.In),
		))
	case plan.Semi:
		c.arrays(fr)
		fr.Body = gctx.Section(c.name, c.idx, c.looped())
	case plan.Unrolled:
		fr.Body = gctx.Section(c.name, c.idx, c.unrolled())
	default:
		panic("bug")
	}
	return fr
}

func (c *Ctx) arrays(fr *gctx.Frag) {
	wd, wx := c.Array(c.weights, c.l.Weights.Flatten(c.Layout))
	bd, bx := c.Array(c.biases, c.l.Biases.FlattenC())
	fr.Data = append(fr.Data, wd, bd)
	if c.Strategy == plan.Semi {
		fr.Externs = append(fr.Externs, wx, bx)
	}
}

// looped is shared by the generic function and the semi-specialized body;
// only the operand names differ.
func (c *Ctx) looped() cgen.Stmts {
	var (
		ac  = c.Access(c.name, c.idx, c.l.Act)
		dot = vb(local)
		i   = vb("i")
		j   = vb("j")
		out = ac.Param(params.LayerSize)
	)
	inner := gctx.For("j", ac.Prev(params.LayerSize), cgen.AddAssign{
		Expr1: dot,
		Expr2: cgen.Mul{
			Expr1: cgen.Elem{Arr: ac.In, Idx: j},
			Expr2: cgen.Elem{
				Arr: ac.Weights,
				Idx: gctx.Offset(c.Layout, []cgen.Gen{j, i}, []cgen.Gen{ac.Prev(params.LayerSize), out}),
			},
		},
	})
	return cgen.Stmts{
		cgen.Var{Type: c.DataType, What: dot},
		gctx.For("i", out,
			cgen.Assign{Expr1: dot, Expr2: cgen.Zero},
			inner,
			cgen.AddAssign{Expr1: dot, Expr2: cgen.Elem{Arr: ac.Biases, Idx: i}},
			cgen.Assign{Expr1: cgen.Elem{Arr: ac.Out, Idx: i}, Expr2: ac.Act(dot)},
		),
	}
}

func (c *Ctx) unrolled() cgen.Stmts {
	var (
		dot = vb(local)
		in  = c.In(c.idx)
		out = c.l.Size()
		w   = c.l.Weights
		b   = c.l.Biases
	)
	stmts := cgen.Stmts{cgen.Var{Type: c.DataType, What: dot}}
	for i := 0; i < out; i++ {
		stmts = append(stmts, cgen.Assign{Expr1: dot, Expr2: cgen.Zero})
		for j := 0; j < c.l.In; j++ {
			stmts = append(stmts, cgen.AddAssign{
				Expr1: dot,
				Expr2: cgen.Mul{
					Expr1: cgen.Elem{Arr: in, Idx: cgen.IntLit(j)},
					Expr2: c.Lit(gctx.At(w, j, i)),
				},
			})
		}
		stmts = append(stmts,
			cgen.AddAssign{Expr1: dot, Expr2: c.Lit(b.Flat(i))},
			cgen.Assign{
				Expr1: cgen.Elem{Arr: c.Out(), Idx: cgen.IntLit(i)},
				Expr2: act.Expr(c.l.Act, dot),
			},
		)
	}
	return stmts
}
