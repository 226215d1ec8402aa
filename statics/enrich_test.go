package statics_test

import (
	"sort"
	"testing"

	"github.com/hashicorp/go-set/v3"
	"github.com/kr/pretty"
	"github.com/smasher164/mlcheck/diagnostic"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"github.com/smasher164/mlcheck/parser"
	"github.com/smasher164/mlcheck/statics"
	"golang.org/x/exp/maps"
)

func at(line, col int) lexer.Span {
	pos := lexer.Pos{Offset: line*100 + col, Line: line, Column: col}
	return lexer.Span{Start: pos, End: pos}
}

func sortedNames[V any](m map[intern.StrRef]V) []intern.StrRef {
	keys := maps.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func noSyms() *set.TreeSet[statics.Sym] {
	return set.NewTreeSet(statics.Sym.Compare)
}

func mustCheck(t *testing.T, src string) (*statics.State, *intern.StoreMut, statics.Basis) {
	t.Helper()
	store := intern.NewStoreMut()
	tops, err := parser.Parse("test.sml", src, store)
	if err != nil {
		t.Fatal(err)
	}
	st := statics.NewState()
	bs, err := statics.Check(st, store, tops)
	if err != nil {
		t.Fatalf("%s", diagnostic.Statics(store, "test.sml", err.(statics.Error)))
	}
	return st, store, bs
}

const enrichSrc = `
datatype 'a tree = Leaf | Node of 'a tree * 'a * 'a tree
type point = {x : int, y : int}
exception Empty
fun size Leaf = 0
  | size (Node (l, _, r)) = size l + 1 + size r
val origin : point = {x = 0, y = 0}
structure S = struct
  type t = int list
  val empty : t = []
  fun push (x, s) = x :: s
end
`

func TestEnrichReflexive(t *testing.T) {
	st, _, bs := mustCheck(t, enrichSrc)
	if err := statics.Enrich(noLoc, st.Tys, nil, &st.Gen, bs.Env, bs.Env); err != nil {
		t.Fatal(err)
	}
	s := bs.Env.StrEnv[sortedNames(bs.Env.StrEnv)[0]].Env
	if err := statics.Enrich(noLoc, st.Tys, statics.TyRealization{}, &st.Gen, s, s); err != nil {
		t.Fatal(err)
	}
}

func TestEnrichMonotonic(t *testing.T) {
	st, store, bs := mustCheck(t, enrichSrc)
	bigger := bs.Env.Extend(statics.Env{
		ValEnv: statics.ValEnv{
			store.Insert("extra"): {Scheme: statics.Mono(statics.RealTy)},
		},
		TyEnv: statics.TyEnv{
			store.Insert("other"): {Sym: statics.SymChar},
		},
		StrEnv: statics.StrEnv{
			store.Insert("T"): {Env: statics.NewEnv()},
		},
	})
	if err := statics.Enrich(noLoc, st.Tys, nil, &st.Gen, bigger, bs.Env); err != nil {
		t.Fatal(err)
	}
	if err := statics.Enrich(noLoc, st.Tys, nil, &st.Gen, bs.Env, bigger); err == nil {
		t.Fatal("smaller environment enriched a larger one")
	}
}

func TestEnrichErrors(t *testing.T) {
	store := intern.NewStoreMut()
	x, tName := store.Insert("x"), store.Insert("t")
	st := statics.NewState()
	a := st.NewTyVar()
	poly := st.NewSym(tName)
	st.Tys[poly] = statics.TyInfo{TyFcn: statics.TyFcn{TyVars: []statics.TyVar{a}, Ty: statics.Con(poly, a)}}
	tests := []struct {
		name         string
		cand, target statics.Env
		want         error
	}{
		{
			name:   "missing value",
			cand:   statics.NewEnv(),
			target: statics.Env{ValEnv: statics.ValEnv{x: {Scheme: statics.Mono(statics.IntTy), Loc: at(2, 7)}}},
			want:   &statics.UndefinedError{Loc: at(2, 7), Item: statics.ItemValue, Name: x},
		},
		{
			name:   "status mismatch",
			cand:   statics.Env{ValEnv: statics.ValEnv{x: {Scheme: statics.Mono(statics.ExnTy)}}},
			target: statics.Env{ValEnv: statics.ValEnv{x: {Scheme: statics.Mono(statics.ExnTy), Status: statics.StatusExn, Loc: at(3, 13)}}},
			want:   &statics.UndefinedError{Loc: at(3, 13), Item: statics.ItemException, Name: x},
		},
		{
			name:   "missing type",
			cand:   statics.NewEnv(),
			target: statics.Env{TyEnv: statics.TyEnv{tName: {Sym: statics.SymInt, Loc: at(4, 8)}}},
			want:   &statics.UndefinedError{Loc: at(4, 8), Item: statics.ItemType, Name: tName},
		},
		{
			name:   "type arity",
			cand:   statics.Env{TyEnv: statics.TyEnv{tName: {Sym: poly}}},
			target: statics.Env{TyEnv: statics.TyEnv{tName: {Sym: statics.SymInt, Loc: at(5, 8)}}},
			want:   &statics.WrongNumTyArgsError{Loc: at(5, 8), Want: 0, Got: 1},
		},
		{
			name:   "missing structure",
			cand:   statics.NewEnv(),
			target: statics.Env{StrEnv: statics.StrEnv{x: {Env: statics.NewEnv(), Loc: at(6, 13)}}},
			want:   &statics.UndefinedError{Loc: at(6, 13), Item: statics.ItemStructure, Name: x},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := statics.Enrich(at(1, 1), st.Tys, nil, &st.Gen, tt.cand, tt.target)
			if diff := pretty.Diff(err, tt.want); len(diff) > 0 {
				t.Errorf("%# v", pretty.Formatter(diff))
			}
		})
	}
}

func TestSigMatchValues(t *testing.T) {
	store := intern.NewStoreMut()
	x := store.Insert("x")
	sigLoc := at(3, 7)
	cand := statics.Env{ValEnv: statics.ValEnv{x: {Scheme: statics.Mono(statics.IntTy), Loc: at(1, 5)}}}

	t.Run("instance of a general scheme", func(t *testing.T) {
		st := statics.NewState()
		a := st.NewTyVar()
		sig := statics.Sig{TyNames: noSyms(), Env: statics.Env{ValEnv: statics.ValEnv{
			x: {Scheme: statics.TyScheme{TyVars: []statics.TyVar{a}, Ty: a}, Loc: sigLoc},
		}}}
		env, rzn, err := statics.SigMatch(st, at(1, 1), cand, sig)
		if err != nil {
			t.Fatal(err)
		}
		if len(rzn) != 0 {
			t.Errorf("realization %v, want empty", rzn)
		}
		if got := diagnostic.ShowScheme(store, env.ValEnv[x].Scheme); got != "int" {
			t.Errorf("x : %s, want int", got)
		}
	})

	t.Run("mismatched type", func(t *testing.T) {
		st := statics.NewState()
		sig := statics.Sig{TyNames: noSyms(), Env: statics.Env{ValEnv: statics.ValEnv{
			x: {Scheme: statics.Mono(statics.StringTy), Loc: sigLoc},
		}}}
		_, _, err := statics.SigMatch(st, at(1, 1), cand, sig)
		want := &statics.HeadMismatchError{Loc: sigLoc, Lhs: statics.IntTy, Rhs: statics.StringTy}
		if diff := pretty.Diff(err, want); len(diff) > 0 {
			t.Errorf("%# v", pretty.Formatter(diff))
		}
	})

	t.Run("missing member", func(t *testing.T) {
		st := statics.NewState()
		f := store.Insert("f")
		sig := statics.Sig{TyNames: noSyms(), Env: statics.Env{ValEnv: statics.ValEnv{
			f: {Scheme: statics.Mono(statics.IntTy), Loc: at(4, 9)},
		}}}
		_, _, err := statics.SigMatch(st, at(1, 1), cand, sig)
		want := &statics.UndefinedError{Loc: at(4, 9), Item: statics.ItemValue, Name: f}
		if diff := pretty.Diff(err, want); len(diff) > 0 {
			t.Errorf("%# v", pretty.Formatter(diff))
		}
	})
}

func TestSigMatchAbstractType(t *testing.T) {
	store := intern.NewStoreMut()
	tName := store.Insert("t")
	st := statics.NewState()

	concrete := st.NewSym(tName)
	st.Tys[concrete] = statics.TyInfo{TyFcn: statics.TyFcn{Ty: statics.IntTy}}
	cand := statics.Env{TyEnv: statics.TyEnv{tName: {Sym: concrete, Loc: at(1, 20)}}}

	bound := st.NewSym(tName)
	st.Tys[bound] = statics.TyInfo{TyFcn: statics.TyFcn{Ty: statics.Con(bound)}}
	sig := statics.Sig{
		TyNames: set.TreeSetFrom([]statics.Sym{bound}, statics.Sym.Compare),
		Env:     statics.Env{TyEnv: statics.TyEnv{tName: {Sym: bound, Loc: at(2, 14)}}},
	}

	env, rzn, err := statics.SigMatch(st, at(1, 1), cand, sig)
	if err != nil {
		t.Fatal(err)
	}
	fcn, ok := rzn[bound]
	if !ok {
		t.Fatal("bound name missing from realization")
	}
	if got := diagnostic.ShowTy(store, fcn.Ty); got != "int" {
		t.Errorf("t realized as %s, want int", got)
	}
	if env.TyEnv[tName].Sym != concrete {
		t.Error("restricted environment does not keep the candidate's type")
	}

	t.Run("missing", func(t *testing.T) {
		_, _, err := statics.SigMatch(st, at(1, 1), statics.NewEnv(), sig)
		want := &statics.UndefinedError{Loc: at(2, 14), Item: statics.ItemType, Name: tName}
		if diff := pretty.Diff(err, want); len(diff) > 0 {
			t.Errorf("%# v", pretty.Formatter(diff))
		}
	})
}

func TestSigMatchRestricts(t *testing.T) {
	st, store, bs := mustCheck(t, `
structure S = struct
  type t = int
  type u = string
  datatype d = A | B
  val x = 1
  val y = "y"
  fun f n = n + 1
  structure Inner = struct val a = 1 val b = 2 end
  structure Other = struct end
end
signature SIG = sig
  type t
  datatype d = A | B
  val x : t
  val f : int -> int
  structure Inner : sig val a : int end
end
`)
	cand := bs.Env.StrEnv[store.Insert("S")].Env
	sig := bs.SigEnv[store.Insert("SIG")]
	before := cand.Len()

	env, rzn, err := statics.SigMatch(st, noLoc, cand, sig)
	if err != nil {
		t.Fatalf("%s", diagnostic.Statics(store, "", err.(statics.Error)))
	}
	if fcn, ok := rzn[sig.Env.TyEnv[store.Insert("t")].Sym]; !ok {
		t.Error("no realization for t")
	} else if got := diagnostic.ShowTy(store, fcn.Ty); got != "int" {
		t.Errorf("t realized as %s, want int", got)
	}
	if diff := pretty.Diff(sortedNames(env.ValEnv), sortedNames(sig.Env.ValEnv)); len(diff) > 0 {
		t.Errorf("values: %v", diff)
	}
	if diff := pretty.Diff(sortedNames(env.TyEnv), sortedNames(sig.Env.TyEnv)); len(diff) > 0 {
		t.Errorf("types: %v", diff)
	}
	if diff := pretty.Diff(sortedNames(env.StrEnv), sortedNames(sig.Env.StrEnv)); len(diff) > 0 {
		t.Errorf("structures: %v", diff)
	}
	inner := env.StrEnv[store.Insert("Inner")].Env
	if diff := pretty.Diff(sortedNames(inner.ValEnv), []intern.StrRef{store.Insert("a")}); len(diff) > 0 {
		t.Errorf("nested values: %v", diff)
	}
	if cand.Len() != before {
		t.Error("matching modified the candidate environment")
	}
}
