package conv

import (
	"NNC/internal/compile/author/act"
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/author/gemmc"
	"NNC/internal/compile/author/params"
	"NNC/internal/compile/plan"
	"NNC/internal/gemm"
	"NNC/internal/layer"
)

const local = "sum"

// Attrs are the table fields a Conv2D row fills, in table order.
var Attrs = []string{
	params.LayerSize,
	"pad_right", "pad_left", "pad_bottom", "pad_top",
	"strides", "kernel_size", "dilation_rate", "nb_filters",
	"input_height", "input_width", "input_channels",
	"output_height", "output_width",
}

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

type Ctx struct {
	*gctx.Ctx
	l       *layer.Conv2D
	name    string
	idx     int
	weights string
	biases  string
}

func NewCtx(ctx *gctx.Ctx, l *layer.Conv2D) *Ctx {
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

func (c *Ctx) values() []int {
	l := c.l
	return []int{
		l.Size(),
		l.Pad.Right, l.Pad.Left, l.Pad.Bottom, l.Pad.Top,
		l.Stride, l.Kernel, l.Dilation, l.Filters,
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

// Frag emits the Conv2D instance. Under the optimized strategy the shared
// Conv2D function is the dispatching wrapper the driver builds from every
// instance kernel in Funcs.
func (c *Ctx) Frag() *gctx.Frag {
	fr := &gctx.Frag{
		Key:     c.name,
		Defines: gctx.Defines(c.idx, macroAttrs(), c.values()),
	}
	switch c.Strategy {
	case plan.Generic:
		fr.Shared = c.LayerDef(c.name, c.looped())
		fr.SharedDecl = c.LayerDecl(c.name)
		c.table(fr)
		fr.Flow = c.flow()
	case plan.Optimized:
		k := gemmc.NewCtx(c.Ctx, c.l.Conv(), c.idx)
		fr.Funcs = append(fr.Funcs, k.Kernel())
		fr.SharedDecl = c.LayerDecl(c.name)
		c.table(fr)
		fr.Flow = k.Flow(c.name)
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

func (c *Ctx) table(fr *gctx.Frag) {
	c.arrays(fr)
	row := &params.Row{
		Idx:     c.idx,
		Type:    c.name,
		Attrs:   Attrs,
		Weights: c.weights,
		Biases:  c.biases,
		Act:     act.Ref(c.l.Act),
	}
	fr.Row = row.Gen()
}

func (c *Ctx) arrays(fr *gctx.Frag) {
	wd, wx := c.Array(c.weights, c.l.Weights.Flatten(c.Layout))
	bd, bx := c.Array(c.biases, c.l.Biases.FlattenC())
	fr.Data = append(fr.Data, wd, bd)
	if c.Strategy == plan.Semi {
		fr.Externs = append(fr.Externs, wx, bx)
	}
}

func (c *Ctx) flow() *flow.Node {
	l := c.l
	return flow.Func(c.name, flow.Nest(
		flow.Loop("f", "nb_filters", l.Filters),
		flow.Loop("i", "output_height", l.OutH),
		flow.Loop("j", "output_width", l.OutW),
		flow.Loop("c", "input_channels", l.InC),
		flow.Loop("m", "kernel_size", l.Kernel),
		flow.Loop("n", "kernel_size", l.Kernel),
	))
}

func add(a, b cgen.Gen) cgen.Gen { return cgen.Add{Expr1: a, Expr2: b} }

func mul(a, b cgen.Gen) cgen.Gen { return cgen.Mul{Expr1: a, Expr2: b} }

func paren(a cgen.Gen) cgen.Gen { return cgen.Paren{Inner: a} }

// looped is the direct convolution with kernel taps landing in the
// padding skipped at run time.
func (c *Ctx) looped() cgen.Stmts {
	var (
		ac  = c.Access(c.name, c.idx, c.l.Act)
		p   = ac.Param
		sum = vb(local)
		f   = vb("f")
		i   = vb("i")
		j   = vb("j")
		ch  = vb("c")
		m   = vb("m")
		n   = vb("n")
		ii  = vb("ii")
		jj  = vb("jj")
	)
	origin := func(out, tap cgen.Gen, pad string) cgen.Gen {
		return cgen.Sub{
			Expr1: add(mul(out, p("strides")), mul(tap, p("dilation_rate"))),
			Expr2: p(pad),
		}
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
	wIdx := gctx.Offset(c.Layout,
		[]cgen.Gen{m, n, ch, f},
		[]cgen.Gen{p("kernel_size"), p("kernel_size"), p("input_channels"), p("nb_filters")},
	)
	outIdx := add(mul(paren(add(mul(i, p("output_width")), j)), p("nb_filters")), f)
	taps := gctx.For("c", p("input_channels"),
		gctx.For("m", p("kernel_size"),
			gctx.For("n", p("kernel_size"),
				cgen.Var{Type: cgen.Int, What: ii, Init: origin(i, m, "pad_top")},
				cgen.Var{Type: cgen.Int, What: jj, Init: origin(j, n, "pad_left")},
				cgen.If{
					Cond: inside,
					Then: cgen.Stmts{cgen.AddAssign{
						Expr1: sum,
						Expr2: mul(
							cgen.Elem{Arr: ac.In, Idx: inIdx},
							cgen.Elem{Arr: ac.Weights, Idx: wIdx},
						),
					}},
				},
			),
		),
	)
	return cgen.Stmts{
		cgen.Var{Type: c.DataType, What: sum},
		gctx.For("f", p("nb_filters"),
			gctx.For("i", p("output_height"),
				gctx.For("j", p("output_width"),
					cgen.Assign{Expr1: sum, Expr2: cgen.Zero},
					taps,
					cgen.AddAssign{Expr1: sum, Expr2: cgen.Elem{Arr: ac.Biases, Idx: f}},
					cgen.Assign{Expr1: cgen.Elem{Arr: ac.Out, Idx: outIdx}, Expr2: ac.Act(sum)},
				),
			),
		),
	}
}

// unrolled writes only the taps that land inside the input.
func (c *Ctx) unrolled() cgen.Stmts {
	var (
		l   = c.l
		cv  = l.Conv()
		sum = vb(local)
		in  = c.In(c.idx)
		w   = l.Weights
		b   = l.Biases
	)
	stmts := cgen.Stmts{cgen.Var{Type: c.DataType, What: sum}}
	for f := 0; f < cv.F; f++ {
		for i := 0; i < cv.OH; i++ {
			for j := 0; j < cv.OW; j++ {
				stmts = append(stmts, cgen.Assign{Expr1: sum, Expr2: cgen.Zero})
				for ch := 0; ch < cv.C; ch++ {
					for m := 0; m < cv.KH; m++ {
						for n := 0; n < cv.KW; n++ {
							ii := gemm.InputIndex(i, m, cv.Stride, cv.Dilation, cv.PadTop)
							jj := gemm.InputIndex(j, n, cv.Stride, cv.Dilation, cv.PadLeft)
							if ii < 0 || ii >= cv.IH || jj < 0 || jj >= cv.IW {
								continue
							}
							stmts = append(stmts, cgen.AddAssign{
								Expr1: sum,
								Expr2: mul(
									cgen.Elem{Arr: in, Idx: cgen.IntLit((ii*cv.IW+jj)*cv.C + ch)},
									c.Lit(gctx.At(w, m, n, ch, f)),
								),
							})
						}
					}
				}
				stmts = append(stmts,
					cgen.AddAssign{Expr1: sum, Expr2: c.Lit(b.Flat(f))},
					cgen.Assign{
						Expr1: cgen.Elem{Arr: c.Out(), Idx: cgen.IntLit((i*cv.OW+j)*cv.F + f)},
						Expr2: act.Expr(l.Act, sum),
					},
				)
			}
		}
	}
	return stmts
}
