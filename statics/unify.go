package statics

import (
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/lexer"
)

// Unify makes a and b equal by adding bindings to s. On failure the
// bindings already made are kept; callers that need to undo a trial
// unification take a Snapshot first.
func Unify(loc lexer.Span, s *Subst, a, b Ty) error {
	a, b = s.shallow(a), s.shallow(b)
	if av, ok := a.(TyVar); ok {
		return unifyVar(loc, s, av, b, false)
	}
	if bv, ok := b.(TyVar); ok {
		return unifyVar(loc, s, bv, a, true)
	}
	switch a := a.(type) {
	case RecordTy:
		if b, ok := b.(RecordTy); ok {
			return unifyRecords(loc, s, a, b)
		}
	case ArrowTy:
		if b, ok := b.(ArrowTy); ok {
			if err := Unify(loc, s, a.Dom, b.Dom); err != nil {
				return err
			}
			return Unify(loc, s, a.Rng, b.Rng)
		}
	case CtorTy:
		if b, ok := b.(CtorTy); ok && a.Sym == b.Sym && len(a.Args) == len(b.Args) {
			for i := range a.Args {
				if err := Unify(loc, s, a.Args[i], b.Args[i]); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return &HeadMismatchError{Loc: loc, Lhs: s.Apply(a), Rhs: s.Apply(b)}
}

// unifyVar binds tv to ty. flipped records that tv came from the right-hand
// side, so that mismatches report the sides in the caller's order.
func unifyVar(loc lexer.Span, s *Subst, tv TyVar, ty Ty, flipped bool) error {
	mismatch := func() error {
		lhs, rhs := Ty(tv), s.Apply(ty)
		if flipped {
			lhs, rhs = rhs, lhs
		}
		return &HeadMismatchError{Loc: loc, Lhs: lhs, Rhs: rhs}
	}
	if other, ok := ty.(TyVar); ok {
		switch {
		case other == tv:
			return nil
		case tv.fixed && other.fixed:
			return mismatch()
		case tv.fixed:
			s.bind(other, tv)
		default:
			s.bind(tv, other)
		}
		return nil
	}
	if tv.fixed {
		return mismatch()
	}
	if s.occurs(tv, ty) {
		return &CircularityError{Loc: loc, Var: tv, Ty: s.Apply(ty)}
	}
	s.bind(tv, ty)
	return nil
}

func unifyRecords(loc lexer.Span, s *Subst, a, b RecordTy) error {
	a, b = s.flatten(a), s.flatten(b)
	onlyA := make(map[ast.Label]Ty)
	onlyB := make(map[ast.Label]Ty)
	for _, lab := range SortedLabels(a.Rows) {
		bt, ok := b.Rows[lab]
		if !ok {
			if b.Rest == nil {
				return &MissingLabelError{Loc: loc, Label: lab}
			}
			onlyA[lab] = a.Rows[lab]
			continue
		}
		if err := Unify(loc, s, a.Rows[lab], bt); err != nil {
			return err
		}
	}
	for _, lab := range SortedLabels(b.Rows) {
		if _, ok := a.Rows[lab]; !ok {
			if a.Rest == nil {
				return &MissingLabelError{Loc: loc, Label: lab}
			}
			onlyB[lab] = b.Rows[lab]
		}
	}
	switch {
	case a.Rest == nil && b.Rest == nil:
		return nil
	case b.Rest == nil:
		return bindRow(loc, s, *a.Rest, RecordTy{Rows: onlyB})
	case a.Rest == nil:
		return bindRow(loc, s, *b.Rest, RecordTy{Rows: onlyA})
	case *a.Rest == *b.Rest:
		if labs := SortedLabels(onlyB); len(labs) > 0 {
			return &MissingLabelError{Loc: loc, Label: labs[0]}
		}
		if labs := SortedLabels(onlyA); len(labs) > 0 {
			return &MissingLabelError{Loc: loc, Label: labs[0]}
		}
		return nil
	}
	rest := s.gen.New()
	if err := bindRow(loc, s, *a.Rest, RecordTy{Rows: onlyB, Rest: &rest}); err != nil {
		return err
	}
	return bindRow(loc, s, *b.Rest, RecordTy{Rows: onlyA, Rest: &rest})
}

func bindRow(loc lexer.Span, s *Subst, row TyVar, r RecordTy) error {
	if s.occurs(row, r) {
		return &CircularityError{Loc: loc, Var: row, Ty: s.Apply(r)}
	}
	s.bind(row, r)
	return nil
}
