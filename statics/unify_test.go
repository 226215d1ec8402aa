package statics_test

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"github.com/smasher164/mlcheck/statics"
)

var noLoc lexer.Span

func fn(dom, rng statics.Ty) statics.Ty { return statics.ArrowTy{Dom: dom, Rng: rng} }

func list(ty statics.Ty) statics.Ty { return statics.Con(statics.SymList, ty) }

func record(rest *statics.TyVar, rows map[string]statics.Ty, store *intern.StoreMut) statics.RecordTy {
	r := statics.RecordTy{Rows: make(map[ast.Label]statics.Ty), Rest: rest}
	for name, ty := range rows {
		r.Rows[ast.NameLabel(store.Insert(name))] = ty
	}
	return r
}

// newStore returns a store in which the labels used by these tests sort
// alphabetically.
func newStore() *intern.StoreMut {
	store := intern.NewStoreMut()
	for _, name := range []string{"x", "y", "z"} {
		store.Insert(name)
	}
	return store
}

func show(store intern.Getter, s *statics.Subst, ty statics.Ty) string {
	return diagnostic.ShowTy(store, s.Apply(ty))
}

func TestUnify(t *testing.T) {
	store := newStore()
	tests := []struct {
		name string
		mk   func(st *statics.State) (a, b, probe statics.Ty)
		want string
		err  bool
	}{
		{
			name: "var with ctor",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				a := st.NewTyVar()
				return a, statics.IntTy, a
			},
			want: "int",
		},
		{
			name: "arrow",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				a, b := st.NewTyVar(), st.NewTyVar()
				return fn(a, list(b)), fn(statics.StringTy, list(statics.BoolTy)), fn(b, a)
			},
			want: "(bool) -> (string)",
		},
		{
			name: "chain of vars",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				a, b, c := st.NewTyVar(), st.NewTyVar(), st.NewTyVar()
				return statics.Tuple(a, b, c), statics.Tuple(b, c, statics.CharTy), a
			},
			want: "char",
		},
		{
			name: "ctor mismatch",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				return list(statics.IntTy), list(statics.RealTy), statics.UnitTy
			},
			err: true,
		},
		{
			name: "tuple arity",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				return statics.Tuple(statics.IntTy), statics.Tuple(statics.IntTy, statics.IntTy), statics.UnitTy
			},
			err: true,
		},
		{
			name: "fixed var with itself",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				a := st.NewFixedTyVar()
				return fn(a, a), fn(a, a), statics.UnitTy
			},
			want: "{}",
		},
		{
			name: "fixed var with ctor",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				return st.NewFixedTyVar(), statics.IntTy, statics.UnitTy
			},
			err: true,
		},
		{
			name: "fixed var with another",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				return st.NewFixedTyVar(), st.NewFixedTyVar(), statics.UnitTy
			},
			err: true,
		},
		{
			name: "flexible var with fixed",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				a, b := st.NewTyVar(), st.NewFixedTyVar()
				return list(a), list(b), fn(a, a)
			},
			want: "('a) -> ('a)",
		},
		{
			name: "open record with closed",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				a, rest := st.NewTyVar(), st.NewTyVar()
				open := record(&rest, map[string]statics.Ty{"x": a}, store)
				closed := record(nil, map[string]statics.Ty{"x": statics.IntTy, "y": statics.StringTy}, store)
				return open, closed, open
			},
			want: "{ x : int, y : string }",
		},
		{
			name: "open record with open",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				r1, r2 := st.NewTyVar(), st.NewTyVar()
				a := record(&r1, map[string]statics.Ty{"x": statics.IntTy}, store)
				b := record(&r2, map[string]statics.Ty{"y": statics.BoolTy}, store)
				return a, b, a
			},
			want: "{ x : int, y : bool, ... }",
		},
		{
			name: "closed record missing label",
			mk: func(st *statics.State) (statics.Ty, statics.Ty, statics.Ty) {
				rest := st.NewTyVar()
				open := record(&rest, map[string]statics.Ty{"z": statics.IntTy}, store)
				closed := record(nil, map[string]statics.Ty{"x": statics.IntTy}, store)
				return open, closed, statics.UnitTy
			},
			err: true,
		},
	}
	for _, tt := range tests {
		for _, flip := range []bool{false, true} {
			name := tt.name
			if flip {
				name += " flipped"
			}
			t.Run(name, func(t *testing.T) {
				st := statics.NewState()
				a, b, probe := tt.mk(st)
				if flip {
					a, b = b, a
				}
				err := statics.Unify(noLoc, st.Subst, a, b)
				if tt.err {
					if err == nil {
						t.Fatalf("unified %s with %s", show(store, st.Subst, a), show(store, st.Subst, b))
					}
					return
				}
				if err != nil {
					t.Fatal(err)
				}
				if got := show(store, st.Subst, probe); got != tt.want {
					t.Errorf("got %s, want %s", got, tt.want)
				}
				if got, want := show(store, st.Subst, a), show(store, st.Subst, b); got != want {
					t.Errorf("sides differ after unification: %s vs %s", got, want)
				}
			})
		}
	}
}

func TestOccursCheck(t *testing.T) {
	store := newStore()
	tests := []struct {
		name string
		mk   func(a statics.TyVar) statics.Ty
	}{
		{"list", func(a statics.TyVar) statics.Ty { return list(a) }},
		{"arrow", func(a statics.TyVar) statics.Ty { return fn(statics.IntTy, a) }},
		{"tuple", func(a statics.TyVar) statics.Ty { return statics.Tuple(statics.IntTy, list(list(a))) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := statics.NewState()
			a := st.NewTyVar()
			err := statics.Unify(noLoc, st.Subst, a, tt.mk(a))
			circ, ok := err.(*statics.CircularityError)
			if !ok {
				t.Fatalf("got %v, want circularity", err)
			}
			if circ.Var != a {
				t.Errorf("circularity on %s, want %s", diagnostic.ShowTy(store, circ.Var), diagnostic.ShowTy(store, a))
			}
			if _, bound := st.Subst.Lookup(a); bound {
				t.Error("variable bound despite circularity")
			}
		})
	}

	t.Run("through binding", func(t *testing.T) {
		st := statics.NewState()
		a, b := st.NewTyVar(), st.NewTyVar()
		if err := statics.Unify(noLoc, st.Subst, b, list(a)); err != nil {
			t.Fatal(err)
		}
		if _, ok := statics.Unify(noLoc, st.Subst, a, b).(*statics.CircularityError); !ok {
			t.Fatal("expected circularity through b")
		}
	})

	t.Run("row variable", func(t *testing.T) {
		st := statics.NewState()
		rest := st.NewTyVar()
		r := record(&rest, map[string]statics.Ty{"x": statics.IntTy}, store)
		err := statics.Unify(noLoc, st.Subst, rest, record(nil, map[string]statics.Ty{"y": r}, store))
		if _, ok := err.(*statics.CircularityError); !ok {
			t.Fatalf("got %v, want circularity", err)
		}
	})
}

func TestUnifyErrors(t *testing.T) {
	store := newStore()
	loc := lexer.Span{Start: lexer.Pos{Offset: 4, Line: 1, Column: 5}, End: lexer.Pos{Offset: 6, Line: 1, Column: 7}}
	st := statics.NewState()
	err := statics.Unify(loc, st.Subst, fn(statics.IntTy, statics.BoolTy), fn(statics.IntTy, statics.StringTy))
	want := &statics.HeadMismatchError{Loc: loc, Lhs: statics.BoolTy, Rhs: statics.StringTy}
	if diff := pretty.Diff(err, want); len(diff) > 0 {
		t.Errorf("%# v", pretty.Formatter(diff))
	}

	x := ast.NameLabel(store.Insert("x"))
	err = statics.Unify(loc, st.Subst, statics.UnitTy, record(nil, map[string]statics.Ty{"x": statics.IntTy}, store))
	if diff := pretty.Diff(err, &statics.MissingLabelError{Loc: loc, Label: x}); len(diff) > 0 {
		t.Errorf("%# v", pretty.Formatter(diff))
	}
}

func TestSnapshot(t *testing.T) {
	store := newStore()
	st := statics.NewState()
	a, b := st.NewTyVar(), st.NewTyVar()
	if err := statics.Unify(noLoc, st.Subst, a, statics.IntTy); err != nil {
		t.Fatal(err)
	}
	snap := st.Subst.Snapshot()
	if err := statics.Unify(noLoc, st.Subst, statics.Tuple(b, a), statics.Tuple(statics.RealTy, statics.RealTy)); err == nil {
		t.Fatal("expected mismatch")
	}
	st.Subst.Restore(snap)
	if got := show(store, st.Subst, statics.Tuple(a, b)); got != "{ 1 : int, 2 : 'a }" {
		t.Errorf("after restore: %s", got)
	}
}
