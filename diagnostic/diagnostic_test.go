package diagnostic_test

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"github.com/smasher164/mlcheck/parser"
	"github.com/smasher164/mlcheck/statics"
)

func span(line, col int) lexer.Span {
	p := lexer.Pos{Line: line, Column: col}
	return lexer.Span{Start: p, End: p}
}

func TestString(t *testing.T) {
	d := diagnostic.Diagnostic{File: "a.sml", Loc: span(3, 14), Msg: "no suitable overload found"}
	if got, want := d.String(), "a.sml:3:14: no suitable overload found"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	d.File = ""
	if got, want := d.String(), "3:14: no suitable overload found"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	_, err := parser.Parse("bad.sml", "val = 1", intern.NewStoreMut())
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	d, ok := diagnostic.Parse("bad.sml", err)
	if !ok {
		t.Fatalf("%v is not a syntax error", err)
	}
	if d.Loc.Start.Line != 1 || d.Loc.Start.Column != 5 {
		t.Errorf("syntax error at %v, want 1:5", d.Loc)
	}
	if _, ok := diagnostic.Parse("x.sml", &statics.TodoError{}); ok {
		t.Error("statics error reported as a syntax error")
	}
}

func TestMessage(t *testing.T) {
	store := intern.NewStoreMut()
	x, lab := store.Insert("x"), store.Insert("lab")
	gen := &statics.TyVarGen{}
	a, b := gen.New(), gen.New()
	fixed := gen.NewFixed()
	tests := []struct {
		err  statics.Error
		want string
	}{
		{&statics.UndefinedError{Item: statics.ItemTyVar, Name: x}, "undefined type variable identifier: x"},
		{&statics.UndefinedError{Item: statics.ItemConstructor, Name: x}, "undefined constructor identifier: x"},
		{&statics.RedefinedError{Name: x}, "redefined identifier: x"},
		{&statics.DuplicateLabelError{Label: ast.Label{Name: lab}}, "duplicate label: lab"},
		{&statics.DuplicateLabelError{Label: ast.NumLabel(2)}, "duplicate label: 2"},
		{&statics.CircularityError{Var: b, Ty: statics.ArrowTy{Dom: a, Rng: b}}, "circularity: 'a in ('b) -> ('a)"},
		{&statics.HeadMismatchError{Lhs: statics.Con(statics.SymList, fixed), Rhs: statics.IntTy}, "mismatched types: ('a) list vs int"},
		{&statics.MissingLabelError{Label: ast.NumLabel(1)}, "type is missing label 1"},
		{&statics.ValAsPatError{}, "value binding used as pattern"},
		{&statics.WrongNumTyArgsError{Want: 2, Got: 0}, "wrong number of type arguments: expected 2, found 0"},
		{&statics.NonVarInAsError{Name: x}, "pattern to left of `as` is not a variable: x"},
		{&statics.ForbiddenBindingError{Name: intern.Cons}, "forbidden identifier in binding: ::"},
		{&statics.NoSuitableOverloadError{}, "no suitable overload found"},
		{&statics.TodoError{}, "unimplemented language construct"},
	}
	for _, tt := range tests {
		if got := diagnostic.Message(store, tt.err); got != tt.want {
			t.Errorf("%T: got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestShowTy(t *testing.T) {
	store := intern.NewStoreMut()
	x, y := store.Insert("x"), store.Insert("y")
	gen := &statics.TyVarGen{}
	a, b := gen.New(), gen.New()
	rest := gen.New()
	tests := []struct {
		ty   statics.Ty
		want string
	}{
		{statics.IntTy, "int"},
		{statics.UnitTy, "{}"},
		{statics.Tuple(statics.IntTy, statics.StringTy), "{ 1 : int, 2 : string }"},
		{statics.RecordTy{Rows: map[ast.Label]statics.Ty{{Name: y}: a, {Name: x}: b}, Rest: &rest}, "{ x : 'a, y : 'b, ... }"},
		{statics.ArrowTy{Dom: b, Rng: statics.ArrowTy{Dom: a, Rng: b}}, "('a) -> (('b) -> ('a))"},
		{statics.Con(statics.SymList, statics.Con(statics.SymRef, a)), "(('a) ref) list"},
	}
	var got, want []string
	for _, tt := range tests {
		got = append(got, diagnostic.ShowTy(store, tt.ty))
		want = append(want, tt.want)
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Errorf("rendered types differ:\n%s", diff)
	}
}

func TestStatics(t *testing.T) {
	store := intern.NewStoreMut()
	tops, err := parser.Parse("m.sml", "val a = 1\nval b = a andalso true", store)
	if err != nil {
		t.Fatal(err)
	}
	_, err = statics.Check(statics.NewState(), store, tops)
	serr, ok := err.(statics.Error)
	if !ok {
		t.Fatalf("got %v, want a statics error", err)
	}
	got := diagnostic.Statics(store, "m.sml", serr).String()
	if want := "m.sml:2:9: mismatched types: bool vs int"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
