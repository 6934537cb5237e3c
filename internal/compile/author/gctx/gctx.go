// Package gctx holds what every layer emitter needs to agree on: the
// strategy, the data type, and the names of buffers, parameters, and
// arrays in the generated C.
package gctx

import (
	"fmt"

	"NNC/internal/act"
	actc "NNC/internal/compile/author/act"
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/plan"
	"NNC/internal/gemm"
	"NNC/internal/nmsrc"
	"NNC/internal/raw"
	"NNC/internal/tensor"
)

const (
	NetName      = "net"
	LayerIdxName = "layer_idx"
	InputName    = "input"
	OutputName   = "output"
	NNInputName  = "nn_input"
	PreName      = "output_pre"
	CurName      = "output_cur"
	PredName     = "prediction"
	NbLayersName = "NB_LAYERS"
	MaxSizeName  = "MAX_LAYER_SIZE"

	// SizeAttr is the attribute of the l<idx>_size macro.
	SizeAttr = "size"

	layerSizeField = "layer_size"
	weightsField   = "weights"
	biasesField    = "biases"
	actvField      = "actv_function"
)

type Ctx struct {
	Strategy plan.Strategy
	DataType cgen.Gen
	Double   bool
	Tiling   gemm.Tiling
	Layout   tensor.Order
	Nms      nmsrc.Src
}

func NewCtx(pl *plan.Plan, nms nmsrc.Src) *Ctx {
	ctx := &Ctx{
		Strategy: pl.Strategy,
		DataType: cgen.Float,
		Tiling:   pl.Config.Tiling,
		Layout:   pl.Config.WeightLayout,
		Nms:      nms,
	}
	if pl.Config.DataType == raw.Double {
		ctx.DataType = cgen.Double
		ctx.Double = true
	}
	return ctx
}

// Lit is a literal of the generated data type.
func (c *Ctx) Lit(x float32) cgen.Gen {
	if c.Double {
		return cgen.DoubleLit(x)
	}
	return cgen.FloatLit(x)
}

// LayerParams is the parameter list shared by every table-driven layer
// function: (int layer_idx, dt *input, dt *output).
func (c *Ctx) LayerParams() cgen.Gen {
	return cgen.CommaSpaced{
		cgen.Param{Type: cgen.Int, What: cgen.Vb(LayerIdxName)},
		cgen.Param{Type: cgen.Ptr{Type: c.DataType}, What: cgen.Vb(InputName)},
		cgen.Param{Type: cgen.Ptr{Type: c.DataType}, What: cgen.Vb(OutputName)},
	}
}

func (c *Ctx) LayerDecl(name string) cgen.Gen {
	return cgen.FuncDecl{
		ReturnType: cgen.Int,
		Name:       name,
		Params:     c.LayerParams(),
	}
}

// LayerDef appends "return 0;" to body.
func (c *Ctx) LayerDef(name string, body cgen.Stmts) cgen.Gen {
	return cgen.FuncDef{
		ReturnType: cgen.Int,
		Name:       name,
		Params:     c.LayerParams(),
		Body:       append(body, cgen.Return{Expr: cgen.Zero}),
	}
}

// Field is net[layer_idx].name, or net[layer_idx-1].name when prev is set.
func Field(name string, prev bool) cgen.Gen {
	var idx cgen.Gen = cgen.Vb(LayerIdxName)
	if prev {
		idx = cgen.Sub{Expr1: idx, Expr2: cgen.One}
	}
	return cgen.Dot{
		Expr: cgen.Elem{Arr: cgen.Vb(NetName), Idx: idx},
		Name: name,
	}
}

// In is what a per-instance layer body reads. Fully unrolled code reads
// the network input directly in the first layer after Input.
func (c *Ctx) In(idx int) cgen.Gen {
	if c.Strategy == plan.Unrolled && idx == 1 {
		return cgen.Vb(NNInputName)
	}
	return cgen.Vb(PreName)
}

// Out is what a per-instance layer body writes.
func (c *Ctx) Out() cgen.Gen {
	return cgen.Vb(CurName)
}

func ArrayName(kind, layer string, idx int) string {
	return fmt.Sprintf("%s_%s_%02d", kind, layer, idx)
}

func WeightsName(layer string, idx int) string { return ArrayName("weights", layer, idx) }

func BiasesName(layer string, idx int) string { return ArrayName("biases", layer, idx) }

// Macro is the header constant for one layer attribute, like l3_size.
func Macro(idx int, attr string) string {
	return fmt.Sprintf("l%d_%s", idx, attr)
}

// FieldMacro is the macro holding a parameter table field's value; the
// layer_size field is held by l<idx>_size.
func FieldMacro(idx int, field string) string {
	if field == layerSizeField {
		return Macro(idx, SizeAttr)
	}
	return Macro(idx, field)
}

// Frag is everything one layer contributes to the output.
type Frag struct {
	// Shared is the per-type function, emitted once per distinct Key.
	Key        string
	Shared     cgen.Gen
	SharedDecl cgen.Gen

	// Funcs are per-instance static functions, placed before Shared.
	Funcs []cgen.Gen

	Defines []cgen.Gen
	Externs []cgen.Gen
	Data    []cgen.Gen

	// Body is the layer's part of a straight-line inference function.
	Body cgen.Gen

	Row  cgen.Gen
	Flow *flow.Node
}

// Defines turns attribute/value pairs into l<idx>_<attr> macros.
func Defines(idx int, attrs []string, vals []int) []cgen.Gen {
	if len(attrs) != len(vals) {
		panic("bug")
	}
	gs := make([]cgen.Gen, len(attrs))
	for i := range attrs {
		gs[i] = cgen.Macro{Name: Macro(idx, attrs[i]), Value: cgen.IntLit(vals[i])}
	}
	return gs
}

// Array is a const weight array definition and its extern declaration.
func (c *Ctx) Array(name string, data []float32) (def, decl cgen.Gen) {
	items := make([]cgen.Gen, len(data))
	for i, x := range data {
		items[i] = c.Lit(x)
	}
	elem := cgen.Elem{Arr: cgen.Vb(name), Idx: cgen.IntLit(len(data))}
	def = cgen.Var{
		Type: cgen.Const{Tail: c.DataType},
		What: elem,
		Init: cgen.Wrapped{Items: items, PerLine: 8},
	}
	decl = cgen.Gens{
		cgen.Extern{Tail: cgen.Var{Type: cgen.Const{Tail: c.DataType}, What: elem}},
		cgen.Newline,
	}
	return cgen.Gens{def, cgen.Newline}, decl
}

// At is the weight at a multi-index already bounded by the layer's shape.
func At(t tensor.Tensor, indices ...int) float32 {
	x, err := t.At(indices...)
	if err != nil {
		panic(err)
	}
	return x
}

// Offset is the C expression for where element idx of an array shaped
// dims sits once flattened in order o. Compound idx elements must come
// parenthesized.
func Offset(o tensor.Order, idx, dims []cgen.Gen) cgen.Gen {
	if len(idx) != len(dims) || len(idx) == 0 {
		panic("bug")
	}
	switch o {
	case tensor.RowMajor:
		return horner(idx, dims)
	case tensor.ColumnMajor:
		return horner(reversed(idx), reversed(dims))
	case tensor.Hybrid:
		if len(idx) > 2 {
			lead := cgen.Paren{Inner: cgen.Add{Expr1: cgen.Mul{Expr1: idx[0], Expr2: dims[1]}, Expr2: idx[1]}}
			idx = append([]cgen.Gen{lead}, idx[2:]...)
			dims = append([]cgen.Gen{cgen.Mul{Expr1: dims[0], Expr2: dims[1]}}, dims[2:]...)
		}
		return Offset(tensor.ColumnMajor, idx, dims)
	default:
		panic("bug")
	}
}

// horner is ((i0*d1 + i1)*d2 + i2)*... + iN.
func horner(idx, dims []cgen.Gen) cgen.Gen {
	acc := idx[0]
	for k := 1; k < len(idx); k++ {
		if k > 1 {
			acc = cgen.Paren{Inner: acc}
		}
		acc = cgen.Add{Expr1: cgen.Mul{Expr1: acc, Expr2: dims[k]}, Expr2: idx[k]}
	}
	return acc
}

func reversed(gs []cgen.Gen) []cgen.Gen {
	out := make([]cgen.Gen, len(gs))
	for i, g := range gs {
		out[len(gs)-1-i] = g
	}
	return out
}

// Banner is the comment that opens a layer's straight-line code.
func Banner(name string, idx int) cgen.Gen {
	return cgen.Comment{fmt.Sprintf("%s_%d", name, idx)}
}

// For is for (int v = 0; v < bound; ++v) {body}.
func For(v string, bound cgen.Gen, body ...cgen.Gen) cgen.Gen {
	x := cgen.Vb(v)
	return cgen.For{
		Init: cgen.Var{Type: cgen.Int, What: x, Init: cgen.Zero},
		Cond: cgen.CmpL{Expr1: x, Expr2: bound},
		Post: cgen.IncPre{Expr: x},
		Body: cgen.Stmts(body),
	}
}

// Section wraps one layer's straight-line code in its own scope.
func Section(name string, idx int, stmts cgen.Stmts) cgen.Gen {
	return cgen.Gens{
		Banner(name, idx),
		cgen.Block{Inner: stmts},
		cgen.Newline,
	}
}

// Access names the operands of a looped layer body. Generic code reaches
// everything through the parameter table; semi-specialized code uses the
// instance's macros and arrays and inlines the activation.
type Access struct {
	In, Out         cgen.Gen
	Weights, Biases cgen.Gen
	Param           func(attr string) cgen.Gen
	Prev            func(attr string) cgen.Gen
	Act             func(x cgen.Gen) cgen.Gen
}

func (c *Ctx) Access(name string, idx int, kind act.Kind) *Access {
	if c.Strategy.TableDriven() {
		return &Access{
			In:      cgen.Vb(InputName),
			Out:     cgen.Vb(OutputName),
			Weights: Field(weightsField, false),
			Biases:  Field(biasesField, false),
			Param:   func(attr string) cgen.Gen { return Field(attr, false) },
			Prev:    func(attr string) cgen.Gen { return Field(attr, true) },
			Act: func(x cgen.Gen) cgen.Gen {
				return cgen.Call{Func: Field(actvField, false), Args: x}
			},
		}
	}
	return &Access{
		In:      c.In(idx),
		Out:     c.Out(),
		Weights: cgen.Vb(WeightsName(name, idx)),
		Biases:  cgen.Vb(BiasesName(name, idx)),
		Param:   func(attr string) cgen.Gen { return cgen.Vb(FieldMacro(idx, attr)) },
		Prev:    func(attr string) cgen.Gen { return cgen.Vb(FieldMacro(idx-1, attr)) },
		Act:     func(x cgen.Gen) cgen.Gen { return actc.Expr(kind, x) },
	}
}
