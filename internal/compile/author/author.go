package author

import (
	"NNC/internal/act"
	actc "NNC/internal/compile/author/act"
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/conv"
	"NNC/internal/compile/author/dense"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/gctx"
	"NNC/internal/compile/author/gemmc"
	"NNC/internal/compile/author/hc"
	"NNC/internal/compile/author/include"
	"NNC/internal/compile/author/infer"
	"NNC/internal/compile/author/input"
	"NNC/internal/compile/author/params"
	"NNC/internal/compile/author/pool"
	"NNC/internal/compile/author/softmax"
	"NNC/internal/compile/author/tobuild"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
	"NNC/internal/nmsrc"
)

// Output is the header, source, and globals files of one network, with
// the loop trees of its table-driven layer functions.
type Output struct {
	H, C, G []byte
	Flows   []*flow.Node
}

func Implement(pl *plan.Plan) *Output {
	st := state{pl: pl, nms: nmsrc.New()}
	st.stages()
	h, c, g := st.hc.Join()
	return &Output{H: h, C: c, G: g, Flows: st.flows}
}

type state struct {
	pl    *plan.Plan
	hc    hc.Sections
	nms   nmsrc.Src
	ctx   *gctx.Ctx
	frags []*gctx.Frag
	acts  act.Set
	flows []*flow.Node
}

func (st *state) stages() {
	st.stage1()
	st.stage2()
	st.stage3()
	st.stage4()
	st.stage5()
	st.stage6()
	st.stage7()
}

func (st *state) stage1() {
	st.hc.Append(hc.HPragmaOnce, cgen.PragmaOnce, cgen.Newline)
	st.hc.Append(hc.HLinkage1, cgen.Linkage1, cgen.Newline)
	st.hc.Append(hc.HLinkage2, cgen.Linkage2)
	st.hc.Append(hc.CToBuild, tobuild.Gen(st.pl), cgen.Newline)
	st.hc.Append(hc.CInclude, include.C(st.pl), cgen.Newline)
	st.hc.Append(hc.GInclude, include.G(st.pl), cgen.Newline)
}

// stage2 turns every layer into its fragment. The switch is exhaustive
// over the layer kinds.
func (st *state) stage2() {
	st.ctx = gctx.NewCtx(st.pl, st.nms)
	for _, l := range st.pl.Net.Layers() {
		var fr *gctx.Frag
		switch l := l.(type) {
		case *layer.Input:
			fr = input.NewCtx(st.ctx, l).Frag()
		case *layer.Dense:
			st.acts.Add(l.Act)
			fr = dense.NewCtx(st.ctx, l).Frag()
		case *layer.Conv2D:
			st.acts.Add(l.Act)
			fr = conv.NewCtx(st.ctx, l).Frag()
		case *layer.Pooling:
			fr = pool.NewCtx(st.ctx, l).Frag()
		case *layer.Softmax:
			fr = softmax.NewCtx(st.ctx, l).Frag()
		default:
			panic("bug")
		}
		st.frags = append(st.frags, fr)
	}
}

func (st *state) stage3() {
	net := st.pl.Net
	st.hc.Append(hc.HDefines,
		cgen.Macro{Name: gctx.NbLayersName, Value: cgen.IntLit(net.Len())},
		cgen.Macro{Name: gctx.MaxSizeName, Value: cgen.IntLit(net.MaxSize())},
		cgen.Newline,
	)
	for _, fr := range st.frags {
		for _, def := range fr.Defines {
			st.hc.Append(hc.HDefines, def)
		}
		st.hc.Append(hc.HDefines, cgen.Newline)
	}
}

func (st *state) stage4() {
	dt := st.ctx.DataType
	for _, k := range st.acts.Kinds() {
		st.hc.Append(hc.HActivation, actc.Decl(k, dt))
		st.hc.Append(hc.CActivation, actc.Def(k, dt), cgen.Newline)
	}
	if !st.hc.Empty(hc.HActivation) {
		st.hc.Append(hc.HActivation, cgen.Newline)
	}
}

// stage5 emits each layer type's shared function once, after the static
// instance functions it may call. Under the optimized strategy the Conv2D
// function is the wrapper over every instance kernel.
func (st *state) stage5() {
	var (
		done  = make(map[string]bool)
		convs []int
		name  string
	)
	for i, fr := range st.frags {
		for _, fn := range fr.Funcs {
			st.hc.Append(hc.CLayers, fn, cgen.Newline)
		}
		if len(fr.Funcs) != 0 {
			convs = append(convs, i)
			name = fr.Key
		}
		for _, g := range fr.Data {
			st.hc.Append(hc.GData, g, cgen.Newline)
		}
		for _, g := range fr.Externs {
			st.hc.Append(hc.HData, g)
		}
		if fr.Flow != nil {
			st.flows = append(st.flows, fr.Flow)
		}
		if done[fr.Key] || fr.SharedDecl == nil {
			continue
		}
		done[fr.Key] = true
		st.hc.Append(hc.HLayers, fr.SharedDecl)
		if fr.Shared != nil {
			st.hc.Append(hc.CLayers, fr.Shared, cgen.Newline)
		}
	}
	if convs != nil {
		st.hc.Append(hc.CLayers, gemmc.Wrapper(st.ctx, name, convs), cgen.Newline)
	}
	for _, at := range [...]hc.Section{hc.HData, hc.HLayers} {
		if !st.hc.Empty(at) {
			st.hc.Append(at, cgen.Newline)
		}
	}
}

func (st *state) stage6() {
	if !st.pl.Strategy.TableDriven() {
		return
	}
	rows := make([]cgen.Gen, len(st.frags))
	for i, fr := range st.frags {
		if fr.Row == nil {
			panic("bug")
		}
		rows[i] = fr.Row
	}
	st.hc.Append(hc.HTable, params.StructDef(st.ctx), cgen.Newline, params.Decl(), cgen.Newline)
	st.hc.Append(hc.GTable, params.Def(rows))
}

func (st *state) stage7() {
	ctx := infer.NewCtx(st.ctx, st.pl.Net)
	var bodies []cgen.Gen
	if !st.pl.Strategy.TableDriven() {
		bodies = make([]cgen.Gen, len(st.frags))
		for i, fr := range st.frags {
			bodies[i] = fr.Body
		}
	}
	st.hc.Append(hc.HInference, ctx.Decl(), cgen.Newline)
	st.hc.Append(hc.CInference, ctx.Def(bodies))
}
