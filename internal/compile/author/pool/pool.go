package pool

import (
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/author/params"
	"NNC/internal/compile/plan"
	"NNC/internal/gemm"
	"NNC/internal/layer"
)

// Attrs are the table fields a pooling row fills, in table order.
var Attrs = []string{
	params.LayerSize,
	"pad_right", "pad_left", "pad_bottom", "pad_top",
	"strides", "pool_size",
	"input_height", "input_width", "input_channels",
	"output_height", "output_width",
}

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

// reduction is the C text of one way of reducing a window: the locals it
// declares, how they reset per output, how a tap folds in, and the value
// stored. Unrolled code knows the number of taps n; looped code passes -1
// and counts at run time.
type reduction struct {
	locals func(dt cgen.Gen, n int) cgen.Stmts
	reset  func(n int) cgen.Stmts
	acc    func(x cgen.Gen, n int) cgen.Stmts
	result func(n int) cgen.Gen
}

var (
	sumVar   = vb("sum")
	countVar = vb("count")
	maxVar   = vb("max")
)

const counted = -1

var reductions = [...]reduction{
	layer.Average: {
		locals: func(dt cgen.Gen, n int) cgen.Stmts {
			stmts := cgen.Stmts{cgen.Var{Type: dt, What: sumVar}}
			if n == counted {
				stmts = append(stmts, cgen.Var{Type: cgen.Int, What: countVar})
			}
			return stmts
		},
		reset: func(n int) cgen.Stmts {
			stmts := cgen.Stmts{cgen.Assign{Expr1: sumVar, Expr2: cgen.Zero}}
			if n == counted {
				stmts = append(stmts, cgen.Assign{Expr1: countVar, Expr2: cgen.Zero})
			}
			return stmts
		},
		acc: func(x cgen.Gen, n int) cgen.Stmts {
			stmts := cgen.Stmts{cgen.AddAssign{Expr1: sumVar, Expr2: x}}
			if n == counted {
				stmts = append(stmts, cgen.IncPre{Expr: countVar})
			}
			return stmts
		},
		result: func(n int) cgen.Gen {
			if n == counted {
				return cgen.Quo{Expr1: sumVar, Expr2: countVar}
			}
			return cgen.Quo{Expr1: sumVar, Expr2: cgen.IntLit(n)}
		},
	},
	layer.Max: {
		locals: func(dt cgen.Gen, _ int) cgen.Stmts {
			return cgen.Stmts{cgen.Var{Type: dt, What: maxVar}}
		},
		reset: func(int) cgen.Stmts {
			return cgen.Stmts{cgen.Assign{Expr1: maxVar, Expr2: cgen.Neg{Expr: cgen.Infinity}}}
		},
		acc: func(x cgen.Gen, _ int) cgen.Stmts {
			return cgen.Stmts{cgen.If{
				Cond: cgen.CmpG{Expr1: x, Expr2: maxVar},
				Then: cgen.Stmts{cgen.Assign{Expr1: maxVar, Expr2: x}},
			}}
		},
		result: func(int) cgen.Gen { return maxVar },
	},
}

type Ctx struct {
	*gctx.Ctx
	l    *layer.Pooling
	name string
	idx  int
	red  *reduction
}

func NewCtx(ctx *gctx.Ctx, l *layer.Pooling) *Ctx {
	return &Ctx{
		Ctx:  ctx,
		l:    l,
		name: l.Name(),
		idx:  l.Index(),
		red:  &reductions[l.Reduction],
	}
}

func (c *Ctx) values() []int {
	l := c.l
	return []int{
		l.Size(),
		l.Pad.Right, l.Pad.Left, l.Pad.Bottom, l.Pad.Top,
		l.Stride, l.PoolSize,
		l.InH, l.InW, l.InC,
		l.OutH, l.OutW,
	}
}

func macroAttrs() []string {
	attrs := make([]string, len(Attrs))
	copy(attrs, Attrs)
	attrs[0] = gctx.SizeAttr
	return attrs
}

func (c *Ctx) Frag() *gctx.Frag {
	fr := &gctx.Frag{
		Key:     c.name,
		Defines: gctx.Defines(c.idx, macroAttrs(), c.values()),
	}
	switch c.Strategy {
	case plan.Generic, plan.Optimized:
		fr.Shared = c.LayerDef(c.name, c.looped())
		fr.SharedDecl = c.LayerDecl(c.name)
		row := &params.Row{Idx: c.idx, Type: c.name, Attrs: Attrs}
		fr.Row = row.Gen()
		fr.Flow = c.flow()
	case plan.Semi:
		fr.Body = gctx.Section(c.name, c.idx, c.looped())
	case plan.Unrolled:
		fr.Body = gctx.Section(c.name, c.idx, c.unrolled())
	default:
		panic("bug")
	}
	return fr
}

func (c *Ctx) flow() *flow.Node {
	l := c.l
	k := l.PoolSize
	return flow.Func(c.name, flow.Nest(
		flow.Loop("c", "input_channels", l.InC),
		flow.Loop("i", "output_height", l.OutH),
		flow.Loop("j", "output_width", l.OutW),
		flow.Loop("m", "pool_size", k),
		flow.Loop("n", "pool_size", k),
	))
}

func add(a, b cgen.Gen) cgen.Gen { return cgen.Add{Expr1: a, Expr2: b} }

func mul(a, b cgen.Gen) cgen.Gen { return cgen.Mul{Expr1: a, Expr2: b} }

func paren(a cgen.Gen) cgen.Gen { return cgen.Paren{Inner: a} }

func (c *Ctx) looped() cgen.Stmts {
	var (
		ac = c.Access(c.name, c.idx, 0)
		p  = ac.Param
		ch = vb("c")
		i  = vb("i")
		j  = vb("j")
		m  = vb("m")
		n  = vb("n")
		ii = vb("ii")
		jj = vb("jj")
	)
	origin := func(out, tap cgen.Gen, pad string) cgen.Gen {
		return cgen.Sub{Expr1: add(mul(out, p("strides")), tap), Expr2: p(pad)}
	}
	inside := cgen.Land{
		Expr1: cgen.Land{
			Expr1: cgen.Land{
				Expr1: cgen.CmpGE{Expr1: ii, Expr2: cgen.Zero},
				Expr2: cgen.CmpL{Expr1: ii, Expr2: p("input_height")},
			},
			Expr2: cgen.CmpGE{Expr1: jj, Expr2: cgen.Zero},
		},
		Expr2: cgen.CmpL{Expr1: jj, Expr2: p("input_width")},
	}
	inIdx := add(mul(paren(add(mul(ii, p("input_width")), jj)), p("input_channels")), ch)
	outIdx := add(mul(paren(add(mul(i, p("output_width")), j)), p("input_channels")), ch)
	window := gctx.For("m", p("pool_size"),
		gctx.For("n", p("pool_size"),
			cgen.Var{Type: cgen.Int, What: ii, Init: origin(i, m, "pad_top")},
			cgen.Var{Type: cgen.Int, What: jj, Init: origin(j, n, "pad_left")},
			cgen.If{
				Cond: inside,
				Then: c.red.acc(cgen.Elem{Arr: ac.In, Idx: inIdx}, counted),
			},
		),
	)
	body := []cgen.Gen(c.red.reset(counted))
	body = append(body,
		window,
		cgen.Assign{Expr1: cgen.Elem{Arr: ac.Out, Idx: outIdx}, Expr2: c.red.result(-1)},
	)
	stmts := c.red.locals(c.DataType, counted)
	return append(stmts,
		gctx.For("c", p("input_channels"),
			gctx.For("i", p("output_height"),
				gctx.For("j", p("output_width"), body...),
			),
		),
	)
}

// unrolled folds in only the taps inside the input; averages divide by the
// number of such taps, known here.
func (c *Ctx) unrolled() cgen.Stmts {
	var (
		l  = c.l
		k  = l.PoolSize
		in = c.In(c.idx)
	)
	stmts := c.red.locals(c.DataType, 0)
	for ch := 0; ch < l.InC; ch++ {
		for i := 0; i < l.OutH; i++ {
			for j := 0; j < l.OutW; j++ {
				var taps []cgen.Gen
				for m := 0; m < k; m++ {
					for n := 0; n < k; n++ {
						ii := gemm.InputIndex(i, m, l.Stride, 1, l.Pad.Top)
						jj := gemm.InputIndex(j, n, l.Stride, 1, l.Pad.Left)
						if ii < 0 || ii >= l.InH || jj < 0 || jj >= l.InW {
							continue
						}
						x := cgen.Elem{Arr: in, Idx: cgen.IntLit((ii*l.InW+jj)*l.InC + ch)}
						taps = append(taps, x)
					}
				}
				n := len(taps)
				stmts = append(stmts, c.red.reset(n)...)
				for _, x := range taps {
					stmts = append(stmts, c.red.acc(x, n)...)
				}
				stmts = append(stmts, cgen.Assign{
					Expr1: cgen.Elem{Arr: c.Out(), Idx: cgen.IntLit((i*l.OutW+j)*l.InC + ch)},
					Expr2: c.red.result(n),
				})
			}
		}
	}
	return stmts
}
