package cgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func text(g Gen) string {
	return string(g.Append(nil))
}

func TestFor(t *testing.T) {
	i := Vb("i")
	g := For{
		Init: Var{Type: Int, What: i, Init: Zero},
		Cond: CmpL{Expr1: i, Expr2: IntLit(3)},
		Post: IncPre{Expr: i},
		Body: Stmts{Assign{Expr1: Elem{Arr: Vb("x"), Idx: i}, Expr2: Zero}},
	}
	assert.Equal(t, "for (int i = 0; i < 3; ++i) {\nx[i] = 0;\n}", text(g))
}

func TestStmts(t *testing.T) {
	a := Vb("a")
	g := Stmts{
		Assign{Expr1: a, Expr2: One},
		nil,
		If{Cond: a, Then: Stmts{Return{}}},
		Comment{"done"},
		Break,
	}
	assert.Equal(t, "a = 1;\nif (a) {\nreturn;\n}\n// done\nbreak;\n", text(g))
}

func TestLiterals(t *testing.T) {
	assert.Equal(t, "5e-01f", text(FloatLit(0.5)))
	assert.Equal(t, "5e-01", text(DoubleLit(0.5)))
	assert.Equal(t, "-3", text(IntLit(-3)))
}

func TestWrapped(t *testing.T) {
	g := Wrapped{Items: []Gen{IntLit(1), IntLit(2), IntLit(3)}, PerLine: 2}
	assert.Equal(t, "{\n1, 2,\n3\n}", text(g))
}

func TestDeclarations(t *testing.T) {
	assert.Equal(t, "#define N 4\n", text(Macro{Name: "N", Value: IntLit(4)}))
	assert.Equal(t, "int (*f)(int, float*)",
		text(FuncPtr{ReturnType: Int, Name: "f", Params: CommaSpaced{Int, Ptr{Type: Float}}}))
	assert.Equal(t, "[2] = {.n = 1}",
		text(Designated{Idx: IntLit(2), Init: Brace{Inner: FieldInit{Name: "n", Init: One}}}))
	assert.Equal(t, "static void f(void) {\n}\n",
		text(StaticFuncDef{ReturnType: Void, Name: "f", Params: Void}))
}

func TestSwitch(t *testing.T) {
	g := Switch{Expr: Vb("k"), Cases: Stmts{Case{Expr: One, Body: Stmts{Break}}}}
	assert.Equal(t, "switch (k) {\ncase 1: {\nbreak;\n}\n}", text(g))
}

func TestLinkage(t *testing.T) {
	assert.Equal(t, "#ifdef __cplusplus\nextern \"C\" { /**/\n#endif\n", text(Linkage1))
	assert.Equal(t, "#ifdef __cplusplus\n/**/ }\n#endif\n", text(Linkage2))
	assert.Equal(t, "#pragma once\n", text(PragmaOnce))
}
