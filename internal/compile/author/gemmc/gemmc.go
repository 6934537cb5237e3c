// Package gemmc specializes the implicit-GEMM convolution for one Conv2D
// instance: every shape constant and the tiling are baked into a static C
// kernel, and one table-driven wrapper dispatches to the kernels by layer
// index.
package gemmc

import (
	"fmt"
	"strconv"

	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/gemm"
	"NNC/internal/tensor"
)

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

func il(i int) cgen.Gen {
	return cgen.IntLit(i)
}

func add(a, b cgen.Gen) cgen.Gen { return cgen.Add{Expr1: a, Expr2: b} }

func mul(a, b cgen.Gen) cgen.Gen { return cgen.Mul{Expr1: a, Expr2: b} }

func lt(a, b cgen.Gen) cgen.Gen { return cgen.CmpL{Expr1: a, Expr2: b} }

func elem(arr, idx cgen.Gen) cgen.Gen { return cgen.Elem{Arr: arr, Idx: idx} }

// Name is the kernel of the Conv2D at idx.
func Name(idx int) string {
	return fmt.Sprintf("conv2d_gemm_%d", idx)
}

type Ctx struct {
	*gctx.Ctx
	cv  gemm.Conv
	idx int

	a, b    string
	p, f    string
	g, q, r string
	x, y, z string
	v, d    string
	s, u    string
	ih, iw  string
}

func NewCtx(ctx *gctx.Ctx, cv gemm.Conv, idx int) *Ctx {
	nm := ctx.Nms.Name
	return &Ctx{
		Ctx: ctx,
		cv:  cv,
		idx: idx,
		a:   nm("a"),
		b:   nm("b"),
		p:   nm("p"),
		f:   nm("f"),
		g:   nm("g"),
		q:   nm("q"),
		r:   nm("r"),
		x:   nm("x"),
		y:   nm("y"),
		z:   nm("z"),
		v:   nm("v"),
		d:   nm("d"),
		s:   nm("s"),
		u:   nm("u"),
		ih:  nm("ih"),
		iw:  nm("iw"),
	}
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

func (c *Ctx) params() cgen.Gen {
	var (
		dt = c.DataType
		in = cgen.Ptr{Type: cgen.Const{Tail: dt}}
	)
	return cgen.CommaSpaced{
		cgen.Param{Type: in, What: vb(gctx.InputName)},
		cgen.Param{Type: cgen.Ptr{Type: dt}, What: vb(gctx.OutputName)},
		cgen.Param{Type: in, What: vb(weightsParam)},
		cgen.Param{Type: in, What: vb(biasesParam)},
	}
}

const (
	weightsParam = "weights"
	biasesParam  = "biases"
)

// stepped is for (int v = 0; v < n; v += step) {body}.
func stepped(v cgen.Gen, n, step int, body ...cgen.Gen) cgen.Gen {
	return cgen.For{
		Init: cgen.Var{Type: cgen.Int, What: v, Init: cgen.Zero},
		Cond: lt(v, il(n)),
		Post: cgen.AddAssign{Expr1: v, Expr2: il(step)},
		Body: cgen.Stmts(body),
	}
}

func loop(v cgen.Gen, n int, body ...cgen.Gen) cgen.Gen {
	return cgen.For{
		Init: cgen.Var{Type: cgen.Int, What: v, Init: cgen.Zero},
		Cond: lt(v, il(n)),
		Post: cgen.IncPre{Expr: v},
		Body: cgen.Stmts(body),
	}
}

// weightAt is the offset of the weight at reduction index u and filter f.
// The reduction index is linear in KH×KW×C.
func (c *Ctx) weightAt(u, f cgen.Gen) cgen.Gen {
	cv := c.cv
	u = cgen.Paren{Inner: u}
	if c.Layout == tensor.RowMajor {
		return add(mul(u, il(cv.F)), f)
	}
	return gctx.Offset(c.Layout,
		[]cgen.Gen{
			cgen.Quo{Expr1: u, Expr2: il(cv.KW * cv.C)},
			cgen.Rem{Expr1: cgen.Quo{Expr1: u, Expr2: il(cv.C)}, Expr2: il(cv.KW)},
			cgen.Rem{Expr1: u, Expr2: il(cv.C)},
			cgen.Paren{Inner: f},
		},
		[]cgen.Gen{il(cv.KH), il(cv.KW), il(cv.C), il(cv.F)},
	)
}

// Kernel writes output = conv(input) + biases with no activation. The
// output starts at the biases; each (filter tile, position tile) pair then
// accumulates one M×K by K×N product per reduction tile, with tile slots
// past the edge of a dimension read as zero.
func (c *Ctx) Kernel() cgen.Gen {
	var (
		cv     = c.cv
		t      = c.Tiling
		dt     = c.DataType
		input  = vb(gctx.InputName)
		output = vb(gctx.OutputName)
		wts    = vb(weightsParam)
		bias   = vb(biasesParam)
		posns  = cv.Positions()
		reduce = cv.Reduce()
	)
	var (
		a, b    = vb(c.a), vb(c.b)
		p, f    = vb(c.p), vb(c.f)
		g, q, r = vb(c.g), vb(c.q), vb(c.r)
		x, y, z = vb(c.x), vb(c.y), vb(c.z)
		v, d    = vb(c.v), vb(c.d)
		s, u    = vb(c.s), vb(c.u)
		ih, iw  = vb(c.ih), vb(c.iw)
	)
	init := loop(p, posns,
		loop(f, cv.F,
			cgen.Assign{
				Expr1: elem(output, add(mul(p, il(cv.F)), f)),
				Expr2: elem(bias, f),
			},
		),
	)
	gatherA := loop(x, t.M,
		loop(y, t.K,
			cgen.Assign{
				Expr1: elem(a, add(mul(x, il(t.K)), y)),
				Expr2: cgen.Ternary{
					Cond: cgen.Land{
						Expr1: lt(add(g, x), il(cv.F)),
						Expr2: lt(add(r, y), il(reduce)),
					},
					Then: elem(wts, c.weightAt(add(r, y), add(g, x))),
					Else: cgen.Zero,
				},
			},
		),
	)
	origin := func(pos, tap cgen.Gen, pad int) cgen.Gen {
		return cgen.Sub{
			Expr1: add(mul(pos, il(cv.Stride)), mul(tap, il(cv.Dilation))),
			Expr2: il(pad),
		}
	}
	inside := cgen.Land{
		Expr1: cgen.Land{
			Expr1: cgen.Land{
				Expr1: cgen.CmpGE{Expr1: ih, Expr2: cgen.Zero},
				Expr2: lt(ih, il(cv.IH)),
			},
			Expr2: cgen.CmpGE{Expr1: iw, Expr2: cgen.Zero},
		},
		Expr2: lt(iw, il(cv.IW)),
	}
	gatherB := loop(y, t.K,
		loop(z, t.N,
			cgen.Var{Type: dt, What: v, Init: cgen.Zero},
			cgen.Var{Type: cgen.Int, What: s, Init: add(q, z)},
			cgen.Var{Type: cgen.Int, What: u, Init: add(r, y)},
			cgen.If{
				Cond: cgen.Land{Expr1: lt(s, il(posns)), Expr2: lt(u, il(reduce))},
				Then: cgen.Stmts{
					cgen.Var{
						Type: cgen.Int, What: ih,
						Init: origin(cgen.Quo{Expr1: s, Expr2: il(cv.OW)}, cgen.Quo{Expr1: u, Expr2: il(cv.KW * cv.C)}, cv.PadTop),
					},
					cgen.Var{
						Type: cgen.Int, What: iw,
						Init: origin(
							cgen.Rem{Expr1: s, Expr2: il(cv.OW)},
							cgen.Rem{Expr1: cgen.Quo{Expr1: u, Expr2: il(cv.C)}, Expr2: il(cv.KW)},
							cv.PadLeft,
						),
					},
					cgen.If{
						Cond: inside,
						Then: cgen.Stmts{cgen.Assign{
							Expr1: v,
							Expr2: elem(input, add(
								mul(cgen.Paren{Inner: add(mul(ih, il(cv.IW)), iw)}, il(cv.C)),
								cgen.Rem{Expr1: u, Expr2: il(cv.C)},
							)),
						}},
					},
				},
			},
			cgen.Assign{Expr1: elem(b, add(mul(y, il(t.N)), z)), Expr2: v},
		),
	)
	product := loop(x, t.M,
		loop(z, t.N,
			cgen.Var{Type: dt, What: d, Init: cgen.Zero},
			loop(y, t.K, cgen.AddAssign{
				Expr1: d,
				Expr2: mul(elem(a, add(mul(x, il(t.K)), y)), elem(b, add(mul(y, il(t.N)), z))),
			}),
			cgen.If{
				Cond: cgen.Land{Expr1: lt(add(g, x), il(cv.F)), Expr2: lt(add(q, z), il(posns))},
				Then: cgen.Stmts{cgen.AddAssign{
					Expr1: elem(output, add(add(mul(cgen.Paren{Inner: add(q, z)}, il(cv.F)), g), x)),
					Expr2: d,
				}},
			},
		),
	)
	body := cgen.Stmts{
		cgen.Var{Type: dt, What: elem(a, il(t.M*t.K))},
		cgen.Var{Type: dt, What: elem(b, il(t.K*t.N))},
		init,
		stepped(g, cv.F, t.M,
			stepped(q, posns, t.N,
				stepped(r, reduce, t.K, gatherA, gatherB, product),
			),
		),
	}
	return cgen.StaticFuncDef{
		ReturnType: cgen.Void,
		Name:       Name(c.idx),
		Params:     c.params(),
		Body:       body,
	}
}

// Flow is the loop tree of the wrapper running this kernel: the kernel
// call followed by the activation pass over the layer output.
func (c *Ctx) Flow(wrapper string) *flow.Node {
	var (
		cv     = c.cv
		t      = c.Tiling
		posns  = cv.Positions()
		reduce = cv.Reduce()
		itoa   = strconv.Itoa
	)
	var (
		x = func() *flow.Node { return flow.Loop(c.x, itoa(t.M), t.M) }
		y = func() *flow.Node { return flow.Loop(c.y, itoa(t.K), t.K) }
		z = func() *flow.Node { return flow.Loop(c.z, itoa(t.N), t.N) }
	)
	tile := flow.Loop(c.r, itoa(reduce), ceilDiv(reduce, t.K),
		flow.Nest(x(), y()),
		flow.Nest(y(), z()),
		flow.Nest(x(), z(), y()),
	)
	kernel := flow.Func(Name(c.idx),
		flow.Nest(flow.Loop(c.p, itoa(posns), posns), flow.Loop(c.f, itoa(cv.F), cv.F)),
		flow.Nest(
			flow.Loop(c.g, itoa(cv.F), ceilDiv(cv.F, t.M)),
			flow.Loop(c.q, itoa(posns), ceilDiv(posns, t.N)),
			tile,
		),
	)
	return flow.Func(wrapper, kernel, flow.Loop("i", "layer_size", posns*cv.F))
}

// Wrapper is the table-driven Conv2D: it runs the kernel of the instance
// at layer_idx and then applies that instance's activation in place.
func Wrapper(ctx *gctx.Ctx, name string, idxs []int) cgen.Gen {
	var (
		output = vb(gctx.OutputName)
		i      = vb("i")
		cases  = make(cgen.Stmts, len(idxs))
	)
	for n, idx := range idxs {
		cases[n] = cgen.Case{
			Expr: il(idx),
			Body: cgen.Stmts{
				cgen.Call{
					Func: vb(Name(idx)),
					Args: cgen.CommaSpaced{
						vb(gctx.InputName), output,
						gctx.Field(weightsParam, false), gctx.Field(biasesParam, false),
					},
				},
				cgen.Break,
			},
		}
	}
	return ctx.LayerDef(name, cgen.Stmts{
		cgen.Switch{Expr: vb(gctx.LayerIdxName), Cases: cases},
		gctx.For("i", gctx.Field("layer_size", false), cgen.Assign{
			Expr1: elem(output, i),
			Expr2: cgen.Call{Func: gctx.Field("actv_function", false), Args: elem(output, i)},
		}),
	})
}
