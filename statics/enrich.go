package statics

import (
	"sort"

	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
)

// Enrich checks that cand provides everything target asks for, with the
// bound type names of target replaced according to rzn. cand may bind more
// than target; never less. Errors are reported at the location of the
// target entry that failed, or at loc if the entry has none.
//
// Checking uses scratch substitutions, so the State's own substitution is
// untouched. gen supplies the scratch type variables.
func Enrich(loc lexer.Span, tys TyTable, rzn TyRealization, gen *TyVarGen, cand, target Env) error {
	for _, name := range byLoc(target.StrEnv, func(si StrInfo) lexer.Span { return si.Loc }) {
		tsi := target.StrEnv[name]
		at := orLoc(tsi.Loc, loc)
		csi, ok := cand.StrEnv[name]
		if !ok {
			return &UndefinedError{Loc: at, Item: ItemStructure, Name: name}
		}
		if err := Enrich(at, tys, rzn, gen, csi.Env, tsi.Env); err != nil {
			return err
		}
	}
	for _, name := range byLoc(target.TyEnv, func(ref TyInfoRef) lexer.Span { return ref.Loc }) {
		tref := target.TyEnv[name]
		at := orLoc(tref.Loc, loc)
		cref, ok := cand.TyEnv[name]
		if !ok {
			return &UndefinedError{Loc: at, Item: ItemType, Name: name}
		}
		cinfo, tinfo := tys.Get(cref.Sym), tys.Get(tref.Sym)
		if err := eqTyFcn(at, gen, cinfo.TyFcn, rzn.ApplyFcn(tinfo.TyFcn)); err != nil {
			return err
		}
		if len(tinfo.ValEnv) > 0 {
			if err := enrichVals(at, rzn, gen, cinfo.ValEnv, tinfo.ValEnv); err != nil {
				return err
			}
			if err := extraCtors(at, cinfo.ValEnv, tinfo.ValEnv); err != nil {
				return err
			}
		}
	}
	return enrichVals(loc, rzn, gen, cand.ValEnv, target.ValEnv)
}

func enrichVals(loc lexer.Span, rzn TyRealization, gen *TyVarGen, cand, target ValEnv) error {
	for _, name := range byLoc(target, func(vi ValInfo) lexer.Span { return vi.Loc }) {
		tvi := target[name]
		at := orLoc(tvi.Loc, loc)
		cvi, ok := cand[name]
		if !ok || cvi.Status != tvi.Status {
			return &UndefinedError{Loc: at, Item: tvi.Status.item(), Name: name}
		}
		s := NewSubst(gen)
		cty, _ := gen.instantiate(cvi.Scheme)
		tty, _ := gen.instantiate(rzn.ApplyScheme(tvi.Scheme))
		if err := Unify(at, s, cty, tty); err != nil {
			return err
		}
	}
	return nil
}

// extraCtors reports the first constructor of cand that target lacks. A
// datatype matches a datatype spec only with exactly the same constructors.
func extraCtors(loc lexer.Span, cand, target ValEnv) error {
	for _, name := range byLoc(cand, func(vi ValInfo) lexer.Span { return vi.Loc }) {
		if _, ok := target[name]; !ok {
			return &UndefinedError{Loc: orLoc(cand[name].Loc, loc), Item: ItemConstructor, Name: name}
		}
	}
	return nil
}

// eqTyFcn checks that a and b are the same type function by applying both
// to the same rigid variables.
func eqTyFcn(loc lexer.Span, gen *TyVarGen, a, b TyFcn) error {
	if a.Arity() != b.Arity() {
		return &WrongNumTyArgsError{Loc: loc, Want: b.Arity(), Got: a.Arity()}
	}
	args := make([]Ty, a.Arity())
	for i, tv := range gen.newVars(a.Arity(), true) {
		args[i] = tv
	}
	return Unify(loc, NewSubst(gen), a.Apply(args), b.Apply(args))
}

func orLoc(loc, fallback lexer.Span) lexer.Span {
	if loc.IsZero() {
		return fallback
	}
	return loc
}

// byLoc orders the names of m by where they were bound, then by handle.
func byLoc[V any](m map[intern.StrRef]V, loc func(V) lexer.Span) []intern.StrRef {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		return loc(m[keys[i]]).Start.Offset < loc(m[keys[j]]).Start.Offset
	})
	return keys
}
