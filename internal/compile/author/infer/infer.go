package infer

import (
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
)

const name = "inference"

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

type Ctx struct {
	*gctx.Ctx
	net *layer.Network
}

func NewCtx(ctx *gctx.Ctx, net *layer.Network) *Ctx {
	return &Ctx{Ctx: ctx, net: net}
}

func (c *Ctx) params() cgen.Gen {
	ptr := cgen.Ptr{Type: c.DataType}
	return cgen.CommaSpaced{
		cgen.Param{Type: ptr, What: vb(gctx.PredName)},
		cgen.Param{Type: ptr, What: vb(gctx.NNInputName)},
	}
}

// Decl is the prototype, like: int inference(float* prediction, float* nn_input);
func (c *Ctx) Decl() cgen.Gen {
	return cgen.FuncDecl{
		ReturnType: cgen.Int,
		Name:       name,
		Params:     c.params(),
	}
}

func (c *Ctx) buffers() cgen.Stmts {
	buf := func(s string) cgen.Gen {
		return cgen.Static{Tail: cgen.Var{
			Type: c.DataType,
			What: cgen.Elem{Arr: vb(s), Idx: vb(gctx.MaxSizeName)},
		}}
	}
	return cgen.Stmts{buf(gctx.PreName), buf(gctx.CurName)}
}

// copyOut is to[k] = from[k] for k below n, a loop unless unrolled.
func (c *Ctx) copyOut(from, to string, n cgen.Gen, count int) cgen.Stmts {
	elem := func(arr string, k cgen.Gen) cgen.Gen {
		return cgen.Elem{Arr: vb(arr), Idx: k}
	}
	if c.Strategy == plan.Unrolled {
		stmts := make(cgen.Stmts, count)
		for k := range stmts {
			stmts[k] = cgen.Assign{Expr1: elem(to, cgen.IntLit(k)), Expr2: elem(from, cgen.IntLit(k))}
		}
		return stmts
	}
	k := c.Nms.Name("k")
	return cgen.Stmts{
		gctx.For(k, n, cgen.Assign{Expr1: elem(to, vb(k)), Expr2: elem(from, vb(k))}),
	}
}

// Def is the inference entry point. Table-driven strategies run the layer
// functions through the parameter table; the others run bodies, the
// per-layer straight-line code in network order.
func (c *Ctx) Def(bodies []cgen.Gen) cgen.Gen {
	var stmts cgen.Stmts
	if c.Strategy.TableDriven() {
		stmts = c.dispatch()
	} else {
		stmts = c.straight(bodies)
	}
	return cgen.FuncDef{
		ReturnType: cgen.Int,
		Name:       name,
		Params:     c.params(),
		Body:       append(stmts, cgen.Return{Expr: cgen.Zero}),
	}
}

func (c *Ctx) dispatch() cgen.Stmts {
	var (
		i   = c.Nms.Name("i")
		pre = vb(gctx.PreName)
		cur = vb(gctx.CurName)
	)
	entry := func(idx cgen.Gen, field string) cgen.Gen {
		return cgen.Dot{Expr: cgen.Elem{Arr: vb(gctx.NetName), Idx: idx}, Name: field}
	}
	call := func(idx, in, out cgen.Gen) cgen.Gen {
		return cgen.Call{
			Func: entry(idx, "layer_type"),
			Args: cgen.CommaSpaced{idx, in, out},
		}
	}
	last := cgen.Sub{Expr1: vb(gctx.NbLayersName), Expr2: cgen.One}
	loop := cgen.For{
		Init: cgen.Var{Type: cgen.Int, What: vb(i), Init: cgen.One},
		Cond: cgen.CmpL{Expr1: vb(i), Expr2: vb(gctx.NbLayersName)},
		Post: cgen.IncPre{Expr: vb(i)},
		Body: append(
			cgen.Stmts{call(vb(i), pre, cur)},
			c.copyOut(gctx.CurName, gctx.PreName, entry(vb(i), "layer_size"), 0)...,
		),
	}
	stmts := c.buffers()
	stmts = append(stmts,
		call(cgen.Zero, vb(gctx.NNInputName), pre),
		loop,
	)
	return append(stmts, c.copyOut(gctx.PreName, gctx.PredName, entry(last, "layer_size"), 0)...)
}

func (c *Ctx) straight(bodies []cgen.Gen) cgen.Stmts {
	layers := c.net.Layers()
	if len(bodies) != len(layers) {
		panic("bug")
	}
	size := func(l layer.Layer) cgen.Gen {
		return vb(gctx.Macro(l.Index(), gctx.SizeAttr))
	}
	stmts := c.buffers()
	for i, l := range layers {
		stmts = append(stmts, bodies[i])
		if i != 0 {
			stmts = append(stmts, c.copyOut(gctx.CurName, gctx.PreName, size(l), l.Size())...)
		}
	}
	from := gctx.PreName
	if c.Strategy == plan.Unrolled && len(layers) == 1 {
		from = gctx.NNInputName
	}
	last := layers[len(layers)-1]
	return append(stmts, c.copyOut(from, gctx.PredName, size(last), last.Size())...)
}
