package params

import (
	"NNC/internal/compile/author/cgen"
	"NNC/internal/compile/author/gctx"
)

const (
	structName = "layer"
	unused     = "0x0"
)

// Ints are the integer fields of struct layer in table order. The runtime
// dispatch loop depends on this order.
var Ints = [...]string{
	LayerSize,
	"pad_right",
	"pad_left",
	"pad_bottom",
	"pad_top",
	"strides",
	"pool_size",
	"kernel_size",
	"dilation_rate",
	"nb_filters",
	"input_height",
	"input_width",
	"input_channels",
	"output_height",
	"output_width",
}

const (
	LayerSize = "layer_size"
	LayerType = "layer_type"
	Weights   = "weights"
	Biases    = "biases"
	ActvFunc  = "actv_function"
)

func vb(s string) cgen.Gen {
	return cgen.Vb(s)
}

// StructDef is struct layer, one record of the parameter table.
func StructDef(ctx *gctx.Ctx) cgen.Gen {
	dt := ctx.DataType
	fields := cgen.Stmts{
		cgen.FuncPtr{
			ReturnType: cgen.Int,
			Name:       LayerType,
			Params: cgen.CommaSpaced{
				cgen.Int, cgen.Ptr{Type: dt}, cgen.Ptr{Type: dt},
			},
		},
	}
	for _, name := range &Ints {
		fields = append(fields, cgen.Field{Type: cgen.Int, What: vb(name)})
	}
	fields = append(fields,
		cgen.Field{Type: cgen.Const{Tail: dt}, What: cgen.At{Expr: vb(Weights)}},
		cgen.Field{Type: cgen.Const{Tail: dt}, What: cgen.At{Expr: vb(Biases)}},
		cgen.FuncPtr{ReturnType: dt, Name: ActvFunc, Params: dt},
	)
	return cgen.Gens{
		cgen.StructDef{Name: structName, Fields: fields},
		cgen.Newline,
	}
}

func table() cgen.Gen {
	return cgen.Elem{Arr: vb(gctx.NetName), Idx: vb(gctx.NbLayersName)}
}

// Decl is the extern declaration of the table for the header.
func Decl() cgen.Gen {
	return cgen.Gens{
		cgen.Extern{Tail: cgen.Var{Type: cgen.StructTag(structName), What: table()}},
		cgen.Newline,
	}
}

// Row is one layer's record. Attrs name the Ints that take the layer's
// l<idx>_<attr> macro; every other integer field is 0x0, as are the
// pointers left empty.
type Row struct {
	Idx     int
	Type    string
	Attrs   []string
	Weights string
	Biases  string
	Act     cgen.Gen
}

func orUnused(name string) cgen.Gen {
	if name == "" {
		return vb(unused)
	}
	return vb(name)
}

func (r *Row) Gen() cgen.Gen {
	set := make(map[string]bool, len(r.Attrs))
	for _, attr := range r.Attrs {
		set[attr] = true
	}
	inits := cgen.CommaLines{cgen.FieldInit{Name: LayerType, Init: vb(r.Type)}}
	for _, name := range &Ints {
		var val cgen.Gen = vb(unused)
		if set[name] {
			val = vb(gctx.FieldMacro(r.Idx, name))
			delete(set, name)
		}
		inits = append(inits, cgen.FieldInit{Name: name, Init: val})
	}
	if len(set) != 0 {
		panic("bug")
	}
	act := r.Act
	if act == nil {
		act = vb(unused)
	}
	inits = append(inits,
		cgen.FieldInit{Name: Weights, Init: orUnused(r.Weights)},
		cgen.FieldInit{Name: Biases, Init: orUnused(r.Biases)},
		cgen.FieldInit{Name: ActvFunc, Init: act},
	)
	return cgen.Designated{Idx: cgen.IntLit(r.Idx), Init: cgen.Brace{Inner: inits}}
}

// Def is the table itself, rows in layer order.
func Def(rows []cgen.Gen) cgen.Gen {
	return cgen.Gens{
		cgen.Var{
			Type: cgen.StructTag(structName),
			What: table(),
			Init: cgen.Brace{Inner: cgen.CommaLines(rows)},
		},
		cgen.Newline,
	}
}
