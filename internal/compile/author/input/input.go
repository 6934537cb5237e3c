package input

import (
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/author/params"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
)

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

type Ctx struct {
	*gctx.Ctx
	l    *layer.Input
	name string
	idx  int
}

func NewCtx(ctx *gctx.Ctx, l *layer.Input) *Ctx {
	return &Ctx{
		Ctx:  ctx,
		l:    l,
		name: l.Name(),
		idx:  l.Index(),
	}
}

// Frag copies the network input into the first buffer. Fully unrolled
// code reads nn_input in place, so its Input contributes only a marker.
func (c *Ctx) Frag() *gctx.Frag {
	fr := &gctx.Frag{
		Key:     c.name,
		Defines: gctx.Defines(c.idx, []string{gctx.SizeAttr}, []int{c.l.Size()}),
	}
	switch c.Strategy {
	case plan.Generic, plan.Optimized:
		fr.Shared = c.LayerDef(c.name, copyLoop(
			vb(gctx.InputName), vb(gctx.OutputName), gctx.Field(params.LayerSize, false),
		))
		fr.SharedDecl = c.LayerDecl(c.name)
		row := &params.Row{Idx: c.idx, Type: c.name, Attrs: []string{params.LayerSize}}
		fr.Row = row.Gen()
		fr.Flow = flow.Func(c.name, flow.Loop("i", gctx.Macro(c.idx, gctx.SizeAttr), c.l.Size()))
	case plan.Semi:
		fr.Body = gctx.Section(c.name, c.idx, copyLoop(
			vb(gctx.NNInputName), vb(gctx.PreName), vb(gctx.Macro(c.idx, gctx.SizeAttr)),
		))
	case plan.Unrolled:
		fr.Body = cgen.Gens{gctx.Banner(c.name, c.idx), cgen.Newline}
	default:
		panic("bug")
	}
	return fr
}

func copyLoop(from, to, n cgen.Gen) cgen.Stmts {
	i := vb("i")
	return cgen.Stmts{
		gctx.For("i", n, cgen.Assign{
			Expr1: cgen.Elem{Arr: to, Idx: i},
			Expr2: cgen.Elem{Arr: from, Idx: i},
		}),
	}
}
