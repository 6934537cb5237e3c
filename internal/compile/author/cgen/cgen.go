package cgen

import "strconv"

const (
	assign         = "="
	asterisk       = "*"
	brace1         = "{"
	brace2         = "}"
	break_         = "break"
	case_          = "case"
	cmpG           = ">"
	cmpGE          = ">="
	cmpL           = "<"
	colon          = ":"
	comma          = ","
	const_         = "const"
	cplusplus      = "__cplusplus"
	default_       = "default"
	define         = "define"
	dot            = "."
	double         = "double"
	doubleQuote    = "\""
	else_          = "else"
	empty          = ""
	endif          = "endif"
	exp            = "exp"
	extern         = "extern"
	float          = "float"
	floatSuffix    = "f"
	for_           = "for"
	gap            = "/**/"
	hash           = "#"
	ifdef          = "ifdef"
	if_            = "if"
	inc            = "++"
	include        = "include"
	infinity       = "INFINITY"
	int_           = "int"
	land           = "&&"
	linkageC       = "C"
	minus          = "-"
	newline        = "\n"
	once           = "once"
	one            = "1"
	paren1         = "("
	paren2         = ")"
	percent        = "%"
	plus           = "+"
	pragma         = "pragma"
	questionMark   = "?"
	return_        = "return"
	semicolon      = ";"
	slash          = "/"
	slashes        = "//"
	space          = " "
	squareBracket1 = "["
	squareBracket2 = "]"
	static         = "static"
	struct_        = "struct"
	switch_        = "switch"
	void           = "void"
	zero           = "0"
)

type Add struct {
	Expr1, Expr2 Gen
}

func (a Add) Append(to []byte) []byte {
	to = a.Expr1.Append(to)
	to = append(to, plus...)
	to = a.Expr2.Append(to)
	return to
}

type AddAssign struct {
	Expr1, Expr2 Gen
}

func (a AddAssign) Append(to []byte) []byte {
	to = a.Expr1.Append(to)
	to = append(to, space+plus+assign+space...)
	to = a.Expr2.Append(to)
	return to
}

type AngleBracketed string

func (a AngleBracketed) Append(to []byte) []byte {
	to = append(to, cmpL...)
	to = append(to, a...)
	to = append(to, cmpG...)
	return to
}

type Assign struct {
	Expr1, Expr2 Gen
}

func (a Assign) Append(to []byte) []byte {
	to = a.Expr1.Append(to)
	to = append(to, space+assign+space...)
	to = a.Expr2.Append(to)
	return to
}

type At struct {
	Expr Gen
}

func (a At) Append(to []byte) []byte {
	to = append(to, asterisk...)
	to = a.Expr.Append(to)
	return to
}

type Block struct {
	Inner Gen
}

func (b Block) Append(to []byte) []byte {
	to = append(to, brace1+newline...)
	to = Maybe{b.Inner}.Append(to)
	to = append(to, brace2...)
	return to
}

type Brace struct {
	Inner Gen
}

func (b Brace) Append(to []byte) []byte {
	to = append(to, brace1...)
	to = Maybe{b.Inner}.Append(to)
	to = append(to, brace2...)
	return to
}

type Call struct {
	Func, Args Gen
}

func (c Call) Append(to []byte) []byte {
	to = c.Func.Append(to)
	to = Paren{c.Args}.Append(to)
	return to
}

type Case struct {
	Expr, Body Gen
}

func (c Case) Append(to []byte) []byte {
	if c.Expr == nil {
		to = append(to, default_...)
	} else {
		to = append(to, case_+space...)
		to = c.Expr.Append(to)
	}
	to = append(to, colon...)
	if c.Body != nil {
		to = append(to, space...)
		to = Block{c.Body}.Append(to)
	}
	return to
}

type CmpG struct {
	Expr1, Expr2 Gen
}

func (c CmpG) Append(to []byte) []byte {
	to = c.Expr1.Append(to)
	to = append(to, space+cmpG+space...)
	to = c.Expr2.Append(to)
	return to
}

type CmpGE struct {
	Expr1, Expr2 Gen
}

func (c CmpGE) Append(to []byte) []byte {
	to = c.Expr1.Append(to)
	to = append(to, space+cmpGE+space...)
	to = c.Expr2.Append(to)
	return to
}

type CmpL struct {
	Expr1, Expr2 Gen
}

func (c CmpL) Append(to []byte) []byte {
	to = c.Expr1.Append(to)
	to = append(to, space+cmpL+space...)
	to = c.Expr2.Append(to)
	return to
}

type CommaLines []Gen

func (c CommaLines) Append(to []byte) []byte {
	first := true
	for _, gen := range c {
		if gen == nil {
			continue
		}
		if first {
			first = false
		} else {
			to = append(to, comma...)
		}
		to = append(to, newline...)
		to = gen.Append(to)
	}
	if !first {
		to = append(to, newline...)
	}
	return to
}

type CommaSpaced []Gen

func (c CommaSpaced) Append(to []byte) []byte {
	first := true
	for _, gen := range c {
		if gen == nil {
			continue
		}
		if first {
			first = false
		} else {
			to = append(to, comma+space...)
		}
		to = gen.Append(to)
	}
	return to
}

type Comment []string

func (c Comment) Append(to []byte) []byte {
	for _, line := range c {
		switch line {
		case empty:
			to = append(to, slashes+newline...)
		default:
			to = append(to, slashes+space...)
			to = append(to, line...)
			to = append(to, newline...)
		}
	}
	return to
}

type Directive string

const (
	Define  Directive = define
	Endif   Directive = endif
	Ifdef   Directive = ifdef
	Include Directive = include
	Pragma  Directive = pragma
)

type Dot struct {
	Expr Gen
	Name string
}

func (d Dot) Append(to []byte) []byte {
	to = d.Expr.Append(to)
	to = append(to, dot...)
	to = append(to, d.Name...)
	return to
}

type DoubleQuoted string

func (d DoubleQuoted) Append(to []byte) []byte {
	to = append(to, doubleQuote...)
	to = append(to, d...)
	to = append(to, doubleQuote...)
	return to
}

type Elem struct {
	Arr, Idx Gen
}

func (e Elem) Append(to []byte) []byte {
	to = e.Arr.Append(to)
	to = append(to, squareBracket1...)
	to = Maybe{e.Idx}.Append(to)
	to = append(to, squareBracket2...)
	return to
}

type Extern struct {
	Tail Gen
}

func (e Extern) Append(to []byte) []byte {
	to = append(to, extern+space...)
	to = e.Tail.Append(to)
	return to
}

type Field struct {
	Type, What Gen
}

func (f Field) Append(to []byte) []byte {
	to = f.Type.Append(to)
	to = append(to, space...)
	to = f.What.Append(to)
	to = append(to, semicolon...)
	return to
}

type FloatLit float64

func (f FloatLit) Append(to []byte) []byte {
	to = strconv.AppendFloat(to, float64(f), 'e', -1, 32)
	to = append(to, floatSuffix...)
	return to
}

// DoubleLit prints the shortest decimal that reads back as the same
// float32, without a suffix.
type DoubleLit float64

func (d DoubleLit) Append(to []byte) []byte {
	to = strconv.AppendFloat(to, float64(d), 'e', -1, 32)
	return to
}

type For struct {
	Init, Cond, Post, Body Gen
}

func (f For) Append(to []byte) []byte {
	to = append(to, for_+space+paren1...)
	to = Maybe{f.Init}.Append(to)
	if to[len(to)-1] != semicolon[0] {
		to = append(to, semicolon...)
	}
	to = append(to, space...)
	to = Maybe{f.Cond}.Append(to)
	to = append(to, semicolon+space...)
	to = Maybe{f.Post}.Append(to)
	to = append(to, paren2...)
	if f.Body != nil {
		to = append(to, space...)
		to = Block{f.Body}.Append(to)
	}
	return to
}

type FuncDecl struct {
	ReturnType Gen
	Name       string
	Params     Gen
}

func (f FuncDecl) Append(to []byte) []byte {
	to = f.ReturnType.Append(to)
	to = append(to, space...)
	to = Call{Vb(f.Name), f.Params}.Append(to)
	to = append(to, semicolon+newline...)
	return to
}

type FuncDef struct {
	ReturnType Gen
	Name       string
	Params     Gen
	Body       Gen
}

func (f FuncDef) Append(to []byte) []byte {
	var g1, g2, g3 Gen
	g1 = f.ReturnType
	g2 = Call{Vb(f.Name), f.Params}
	g3 = Block{f.Body}
	to = Spaced{g1, g2, g3}.Append(to)
	to = append(to, newline...)
	return to
}

type Gen interface {
	Append(to []byte) []byte
}

type Gens []Gen

func (gs Gens) Append(to []byte) []byte {
	for _, gen := range gs {
		if gen != nil {
			to = gen.Append(to)
		}
	}
	return to
}

type If struct {
	Cond Gen
	Then Stmts
	Else Stmts
}

func (i If) Append(to []byte) []byte {
	to = append(to, if_+space...)
	to = Paren{i.Cond}.Append(to)
	to = append(to, space...)
	to = Block{i.Then}.Append(to)
	if n := len(i.Else); n != 0 {
		to = append(to, space+else_+space...)
		chain := false
		if n == 1 {
			_, chain = i.Else[0].(If)
		}
		if chain {
			to = i.Else[0].Append(to)
		} else {
			to = Block{i.Else}.Append(to)
		}
	}
	return to
}

type IncPre struct {
	Expr Gen
}

func (i IncPre) Append(to []byte) []byte {
	to = append(to, inc...)
	to = i.Expr.Append(to)
	return to
}

type IntLit int

func (i IntLit) Append(to []byte) []byte {
	to = strconv.AppendInt(to, int64(i), 10)
	return to
}

type Land struct {
	Expr1, Expr2 Gen
}

func (l Land) Append(to []byte) []byte {
	to = l.Expr1.Append(to)
	to = append(to, space+land+space...)
	to = l.Expr2.Append(to)
	return to
}

type Maybe struct {
	What Gen
}

func (m Maybe) Append(to []byte) []byte {
	if m.What != nil {
		to = m.What.Append(to)
	}
	return to
}

type MaybeSpace struct {
	What Gen
}

func (m MaybeSpace) Append(to []byte) []byte {
	if m.What != nil {
		to = append(to, space...)
		to = m.What.Append(to)
	}
	return to
}

type Mul struct {
	Expr1, Expr2 Gen
}

func (m Mul) Append(to []byte) []byte {
	to = m.Expr1.Append(to)
	to = append(to, asterisk...)
	to = m.Expr2.Append(to)
	return to
}

type Neg struct {
	Expr Gen
}

func (n Neg) Append(to []byte) []byte {
	to = append(to, minus...)
	to = n.Expr.Append(to)
	return to
}

type Param struct {
	Type, What Gen
}

func (p Param) Append(to []byte) []byte {
	to = p.Type.Append(to)
	to = append(to, space...)
	to = p.What.Append(to)
	return to
}

type Paren struct {
	Inner Gen
}

func (p Paren) Append(to []byte) []byte {
	to = append(to, paren1...)
	to = Maybe{p.Inner}.Append(to)
	to = append(to, paren2...)
	return to
}

type Preprocessor struct {
	Head Directive
	Tail Gen
}

func (p Preprocessor) Append(to []byte) []byte {
	to = append(to, hash...)
	to = append(to, p.Head...)
	to = MaybeSpace{p.Tail}.Append(to)
	to = append(to, newline...)
	return to
}

type Ptr struct {
	Type Gen
}

func (p Ptr) Append(to []byte) []byte {
	to = p.Type.Append(to)
	to = append(to, asterisk...)
	return to
}

type Quo struct {
	Expr1, Expr2 Gen
}

func (q Quo) Append(to []byte) []byte {
	to = q.Expr1.Append(to)
	to = append(to, slash...)
	to = q.Expr2.Append(to)
	return to
}

type Rem struct {
	Expr1, Expr2 Gen
}

func (r Rem) Append(to []byte) []byte {
	to = r.Expr1.Append(to)
	to = append(to, percent...)
	to = r.Expr2.Append(to)
	return to
}

type Return struct {
	Expr Gen
}

func (r Return) Append(to []byte) []byte {
	to = append(to, return_...)
	to = MaybeSpace{r.Expr}.Append(to)
	return to
}

type Spaced []Gen

func (s Spaced) Append(to []byte) []byte {
	first := true
	for _, gen := range s {
		if gen == nil {
			continue
		}
		if first {
			first = false
		} else {
			to = append(to, space...)
		}
		to = gen.Append(to)
	}
	return to
}

type Static struct {
	Tail Gen
}

func (s Static) Append(to []byte) []byte {
	to = append(to, static+space...)
	to = s.Tail.Append(to)
	return to
}

type StaticFuncDef FuncDef

func (s StaticFuncDef) Append(to []byte) []byte {
	to = Static{FuncDef(s)}.Append(to)
	return to
}

type Stmts []Gen

func (s Stmts) Append(to []byte) []byte {
	for _, gen := range s {
		if gen == nil {
			continue
		}
		n1 := len(to)
		to = gen.Append(to)
		n2 := len(to)
		if n1 >= n2 {
			continue
		}
		switch to[n2-1] {
		case newline[0]:
		case brace2[0], semicolon[0]:
			to = append(to, newline...)
		default:
			to = append(to, semicolon+newline...)
		}
	}
	return to
}

type StructDef struct {
	Name   string
	Fields Gen
}

func (s StructDef) Append(to []byte) []byte {
	to = Spaced{StructTag(s.Name), Block{s.Fields}}.Append(to)
	to = append(to, semicolon+newline...)
	return to
}

type StructTag string

func (s StructTag) Append(to []byte) []byte {
	to = append(to, struct_+space...)
	to = append(to, s...)
	return to
}

type Sub struct {
	Expr1, Expr2 Gen
}

func (s Sub) Append(to []byte) []byte {
	to = s.Expr1.Append(to)
	to = append(to, minus...)
	to = s.Expr2.Append(to)
	return to
}

type Switch struct {
	Expr, Cases Gen
}

func (s Switch) Append(to []byte) []byte {
	to = append(to, switch_+space...)
	to = Paren{s.Expr}.Append(to)
	to = append(to, space...)
	to = Block{s.Cases}.Append(to)
	return to
}

type Ternary struct {
	Cond, Then, Else Gen
}

func (t Ternary) Append(to []byte) []byte {
	to = t.Cond.Append(to)
	to = append(to, space+questionMark+space...)
	to = t.Then.Append(to)
	to = append(to, space+colon+space...)
	to = t.Else.Append(to)
	return to
}

type Var struct {
	Type, What, Init Gen
}

func (v Var) Append(to []byte) []byte {
	to = v.Type.Append(to)
	to = append(to, space...)
	to = v.What.Append(to)
	if v.Init != nil {
		to = append(to, space+assign+space...)
		to = v.Init.Append(to)
	}
	to = append(to, semicolon...)
	return to
}

type Vb string

func (v Vb) Append(to []byte) []byte {
	to = append(to, v...)
	return to
}

type Const struct {
	Tail Gen
}

func (c Const) Append(to []byte) []byte {
	to = append(to, const_+space...)
	to = c.Tail.Append(to)
	return to
}

// Designated is an array element initializer: [Idx] = Init.
type Designated struct {
	Idx, Init Gen
}

func (d Designated) Append(to []byte) []byte {
	to = Elem{Vb(empty), d.Idx}.Append(to)
	to = append(to, space+assign+space...)
	to = d.Init.Append(to)
	return to
}

// FieldInit is a struct member initializer: .Name = Init.
type FieldInit struct {
	Name string
	Init Gen
}

func (f FieldInit) Append(to []byte) []byte {
	to = append(to, dot...)
	to = append(to, f.Name...)
	to = append(to, space+assign+space...)
	to = f.Init.Append(to)
	return to
}

// FuncPtr declares a pointer to function: Ret (*Name)(Params).
type FuncPtr struct {
	ReturnType Gen
	Name       string
	Params     Gen
}

func (f FuncPtr) Append(to []byte) []byte {
	to = f.ReturnType.Append(to)
	to = append(to, space+paren1+asterisk...)
	to = append(to, f.Name...)
	to = append(to, paren2...)
	to = Paren{f.Params}.Append(to)
	return to
}

// Macro is #define Name Value.
type Macro struct {
	Name  string
	Value Gen
}

func (m Macro) Append(to []byte) []byte {
	return Preprocessor{Define, Spaced{Vb(m.Name), m.Value}}.Append(to)
}

// Wrapped is a brace initializer list broken after every PerLine items.
type Wrapped struct {
	Items   []Gen
	PerLine int
}

func (w Wrapped) Append(to []byte) []byte {
	per := w.PerLine
	if per <= 0 {
		per = len(w.Items)
	}
	to = append(to, brace1...)
	for i, item := range w.Items {
		if i%per == 0 {
			to = append(to, newline...)
		} else {
			to = append(to, space...)
		}
		to = item.Append(to)
		if i != len(w.Items)-1 {
			to = append(to, comma...)
		}
	}
	to = append(to, newline+brace2...)
	return to
}

var (
	Break      Gen = Vb(break_)
	Double     Gen = Vb(double)
	Exp        Gen = Vb(exp)
	Float      Gen = Vb(float)
	Infinity   Gen = Vb(infinity)
	Int        Gen = Vb(int_)
	LinkageC   Gen = DoubleQuoted(linkageC)
	Newline    Gen = Vb(newline)
	Once       Gen = Vb(once)
	One        Gen = Vb(one)
	PragmaOnce Gen = Preprocessor{Pragma, Once}
	Void       Gen = Vb(void)
	Zero       Gen = Vb(zero)
)

var Linkage1 Gen = Gens{
	Preprocessor{Ifdef, Vb(cplusplus)},
	Extern{Spaced{LinkageC, Vb(brace1), Vb(gap)}}, Newline,
	Preprocessor{Endif, nil},
}

var Linkage2 Gen = Gens{
	Preprocessor{Ifdef, Vb(cplusplus)},
	Spaced{Vb(gap), Vb(brace2)}, Newline,
	Preprocessor{Endif, nil},
}
