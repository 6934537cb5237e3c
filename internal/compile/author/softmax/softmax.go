package softmax

import (
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/author/params"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
)

const local = "sum"

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

func exp(x cgen.Gen) cgen.Gen {
	return cgen.Call{Func: cgen.Exp, Args: x}
}

type Ctx struct {
	*gctx.Ctx
	l    *layer.Softmax
	name string
	idx  int
}

func NewCtx(ctx *gctx.Ctx, l *layer.Softmax) *Ctx {
	return &Ctx{
		Ctx:  ctx,
		l:    l,
		name: l.Name(),
		idx:  l.Index(),
	}
}

// Frag emits exp(x[j])/sum exp(x[i]) with no max subtraction, matching
// the reference evaluator.
func (c *Ctx) Frag() *gctx.Frag {
	fr := &gctx.Frag{
		Key:     c.name,
		Defines: gctx.Defines(c.idx, []string{gctx.SizeAttr}, []int{c.l.Size()}),
	}
	switch c.Strategy {
	case plan.Generic, plan.Optimized:
		fr.Shared = c.LayerDef(c.name, c.looped())
		fr.SharedDecl = c.LayerDecl(c.name)
		row := &params.Row{Idx: c.idx, Type: c.name, Attrs: []string{params.LayerSize}}
		fr.Row = row.Gen()
		bound := gctx.Macro(c.idx, gctx.SizeAttr)
		fr.Flow = flow.Func(c.name,
			flow.Loop("i", bound, c.l.Size()),
			flow.Loop("j", bound, c.l.Size()),
		)
	case plan.Semi:
		fr.Body = gctx.Section(c.name, c.idx, c.looped())
	case plan.Unrolled:
		fr.Body = gctx.Section(c.name, c.idx, c.unrolled())
	default:
		panic("bug")
	}
	return fr
}

func (c *Ctx) looped() cgen.Stmts {
	var (
		ac  = c.Access(c.name, c.idx, 0)
		n   = ac.Param(params.LayerSize)
		sum = vb(local)
		i   = vb("i")
		j   = vb("j")
	)
	return cgen.Stmts{
		cgen.Var{Type: c.DataType, What: sum, Init: cgen.Zero},
		gctx.For("i", n, cgen.AddAssign{
			Expr1: sum,
			Expr2: exp(cgen.Elem{Arr: ac.In, Idx: i}),
		}),
		gctx.For("j", n, cgen.Assign{
			Expr1: cgen.Elem{Arr: ac.Out, Idx: j},
			Expr2: cgen.Quo{Expr1: exp(cgen.Elem{Arr: ac.In, Idx: j}), Expr2: sum},
		}),
	}
}

func (c *Ctx) unrolled() cgen.Stmts {
	var (
		sum = vb(local)
		in  = c.In(c.idx)
		n   = c.l.Size()
	)
	stmts := cgen.Stmts{cgen.Var{Type: c.DataType, What: sum, Init: cgen.Zero}}
	for i := 0; i < n; i++ {
		stmts = append(stmts, cgen.AddAssign{
			Expr1: sum,
			Expr2: exp(cgen.Elem{Arr: in, Idx: cgen.IntLit(i)}),
		})
	}
	for j := 0; j < n; j++ {
		stmts = append(stmts, cgen.Assign{
			Expr1: cgen.Elem{Arr: c.Out(), Idx: cgen.IntLit(j)},
			Expr2: cgen.Quo{Expr1: exp(cgen.Elem{Arr: in, Idx: cgen.IntLit(j)}), Expr2: sum},
		})
	}
	return stmts
}
