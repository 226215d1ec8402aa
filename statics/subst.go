package statics

import (
	"github.com/smasher164/mlcheck/ast"
	"golang.org/x/exp/maps"
)

// Subst holds the bindings of type variables made by unification. Types
// refer to variables by value, and every tree mentioning a variable sees
// its binding through the Subst that owns it.
type Subst struct {
	bindings map[TyVar]Ty
	gen      *TyVarGen
}

// NewSubst returns an empty substitution drawing fresh row variables from gen.
func NewSubst(gen *TyVarGen) *Subst {
	return &Subst{bindings: make(map[TyVar]Ty), gen: gen}
}

// SubstSnapshot is a saved set of bindings.
type SubstSnapshot struct {
	bindings map[TyVar]Ty
}

// Snapshot saves the current bindings so a trial unification can be undone.
func (s *Subst) Snapshot() SubstSnapshot {
	return SubstSnapshot{bindings: maps.Clone(s.bindings)}
}

// Restore discards every binding made since snap was taken.
func (s *Subst) Restore(snap SubstSnapshot) {
	s.bindings = maps.Clone(snap.bindings)
}

func (s *Subst) Lookup(tv TyVar) (Ty, bool) {
	ty, ok := s.bindings[tv]
	return ty, ok
}

func (s *Subst) Len() int { return len(s.bindings) }

func (s *Subst) bind(tv TyVar, ty Ty) {
	s.bindings[tv] = ty
}

// shallow follows variable bindings until it reaches an unbound variable or
// a non-variable type, compressing the chain it walked.
func (s *Subst) shallow(ty Ty) Ty {
	tv, ok := ty.(TyVar)
	if !ok {
		return ty
	}
	bound, ok := s.bindings[tv]
	if !ok {
		return tv
	}
	res := s.shallow(bound)
	if _, isVar := bound.(TyVar); isVar {
		s.bindings[tv] = res
	}
	return res
}

// Apply returns ty with every bound variable replaced by its binding.
func (s *Subst) Apply(ty Ty) Ty {
	switch ty := s.shallow(ty).(type) {
	case TyVar:
		return ty
	case RecordTy:
		r := s.flatten(ty)
		rows := make(map[ast.Label]Ty, len(r.Rows))
		for lab, t := range r.Rows {
			rows[lab] = s.Apply(t)
		}
		return RecordTy{Rows: rows, Rest: r.Rest}
	case ArrowTy:
		return ArrowTy{Dom: s.Apply(ty.Dom), Rng: s.Apply(ty.Rng)}
	case CtorTy:
		args := make([]Ty, len(ty.Args))
		for i, a := range ty.Args {
			args[i] = s.Apply(a)
		}
		return CtorTy{Args: args, Sym: ty.Sym}
	}
	panic("unknown type")
}

// ApplyScheme applies s to the body of sc. The bound variables of sc are
// never bound in s.
func (s *Subst) ApplyScheme(sc TyScheme) TyScheme {
	return TyScheme{TyVars: sc.TyVars, Ty: s.Apply(sc.Ty), Overload: sc.Overload}
}

// ApplyEnv returns a copy of env with s applied to every value's scheme.
func (s *Subst) ApplyEnv(env Env) Env {
	out := Env{StrEnv: make(StrEnv, len(env.StrEnv)), TyEnv: maps.Clone(env.TyEnv), ValEnv: s.ApplyValEnv(env.ValEnv)}
	if out.TyEnv == nil {
		out.TyEnv = make(TyEnv)
	}
	for name, si := range env.StrEnv {
		out.StrEnv[name] = StrInfo{Env: s.ApplyEnv(si.Env), Loc: si.Loc}
	}
	return out
}

func (s *Subst) ApplyValEnv(ve ValEnv) ValEnv {
	out := make(ValEnv, len(ve))
	for name, vi := range ve {
		vi.Scheme = s.ApplyScheme(vi.Scheme)
		out[name] = vi
	}
	return out
}

// flatten merges the rows that r's row variable has been bound to into r.
// The result's Rest, if any, is unbound.
func (s *Subst) flatten(r RecordTy) RecordTy {
	rows := make(map[ast.Label]Ty, len(r.Rows))
	for lab, t := range r.Rows {
		rows[lab] = t
	}
	rest := r.Rest
	for rest != nil {
		switch t := s.shallow(*rest).(type) {
		case TyVar:
			return RecordTy{Rows: rows, Rest: &t}
		case RecordTy:
			for lab, ty := range t.Rows {
				rows[lab] = ty
			}
			rest = t.Rest
		default:
			panic("row variable bound to a non-record type")
		}
	}
	return RecordTy{Rows: rows}
}

// occurs reports whether tv appears in ty under s.
func (s *Subst) occurs(tv TyVar, ty Ty) bool {
	switch ty := s.shallow(ty).(type) {
	case TyVar:
		return ty == tv
	case RecordTy:
		r := s.flatten(ty)
		for _, t := range r.Rows {
			if s.occurs(tv, t) {
				return true
			}
		}
		return r.Rest != nil && *r.Rest == tv
	case ArrowTy:
		return s.occurs(tv, ty.Dom) || s.occurs(tv, ty.Rng)
	case CtorTy:
		for _, a := range ty.Args {
			if s.occurs(tv, a) {
				return true
			}
		}
	}
	return false
}
