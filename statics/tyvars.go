package statics

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
)

// tyVarScanner collects the explicit type variables written in a value
// declaration, in order of first occurrence. Variables already in scope
// and variables bound explicitly by a nested declaration are skipped.
type tyVarScanner struct {
	c     *cx
	seen  *set.Set[intern.StrRef]
	bound []intern.StrRef
	out   []ast.Ident
}

func (s *tyVarScanner) add(id ast.Ident) {
	if _, ok := s.c.lookupTyVar(id.Name); ok {
		return
	}
	for _, b := range s.bound {
		if b == id.Name {
			return
		}
	}
	if s.seen.Insert(id.Name) {
		s.out = append(s.out, id)
	}
}

func (s *tyVarScanner) withBound(ids []ast.Ident, f func()) {
	n := len(s.bound)
	for _, id := range ids {
		s.bound = append(s.bound, id.Name)
	}
	f()
	s.bound = s.bound[:n]
}

func (s *tyVarScanner) ty(t ast.Ty) {
	switch t := t.(type) {
	case *ast.TyVarTy:
		s.add(t.Ident)
	case *ast.RecordTy:
		for _, row := range t.Rows {
			s.ty(row.Ty)
		}
	case *ast.CtorTy:
		for _, a := range t.Args {
			s.ty(a)
		}
	case *ast.ArrowTy:
		s.ty(t.Dom)
		s.ty(t.Rng)
	}
}

func (s *tyVarScanner) pat(p ast.Pat) {
	switch p := p.(type) {
	case *ast.ConPat:
		if p.Arg != nil {
			s.pat(p.Arg)
		}
	case *ast.RecordPat:
		for _, row := range p.Rows {
			s.pat(row.Pat)
		}
	case *ast.ListPat:
		for _, x := range p.Elems {
			s.pat(x)
		}
	case *ast.TypedPat:
		s.pat(p.Pat)
		s.ty(p.Ty)
	case *ast.AsPat:
		if p.Ty != nil {
			s.ty(p.Ty)
		}
		s.pat(p.Pat)
	}
}

func (s *tyVarScanner) exp(e ast.Exp) {
	switch e := e.(type) {
	case *ast.RecordExp:
		for _, row := range e.Rows {
			s.exp(row.Exp)
		}
	case *ast.ListExp:
		for _, x := range e.Elems {
			s.exp(x)
		}
	case *ast.SeqExp:
		for _, x := range e.Exps {
			s.exp(x)
		}
	case *ast.LetExp:
		s.dec(e.Dec)
		s.exp(e.Body)
	case *ast.AppExp:
		s.exp(e.Fn)
		s.exp(e.Arg)
	case *ast.TypedExp:
		s.exp(e.Exp)
		s.ty(e.Ty)
	case *ast.AndalsoExp:
		s.exp(e.Lhs)
		s.exp(e.Rhs)
	case *ast.OrelseExp:
		s.exp(e.Lhs)
		s.exp(e.Rhs)
	case *ast.HandleExp:
		s.exp(e.Exp)
		s.rules(e.Rules)
	case *ast.RaiseExp:
		s.exp(e.Exp)
	case *ast.IfExp:
		s.exp(e.Cond)
		s.exp(e.Then)
		s.exp(e.Else)
	case *ast.WhileExp:
		s.exp(e.Cond)
		s.exp(e.Body)
	case *ast.CaseExp:
		s.exp(e.Head)
		s.rules(e.Rules)
	case *ast.FnExp:
		s.rules(e.Rules)
	}
}

func (s *tyVarScanner) rules(rules []ast.Rule) {
	for _, r := range rules {
		s.pat(r.Pat)
		s.exp(r.Exp)
	}
}

// dec scans the value declarations nested in d. Type and exception
// declarations do not scope type variables.
func (s *tyVarScanner) dec(d ast.Dec) {
	switch d := d.(type) {
	case *ast.ValDec:
		s.withBound(d.TyVars, func() {
			for _, b := range d.Binds {
				s.pat(b.Pat)
				s.exp(b.Exp)
			}
		})
	case *ast.FunDec:
		s.withBound(d.TyVars, func() {
			for _, b := range d.Binds {
				for _, cl := range b.Clauses {
					for _, a := range cl.Args {
						s.pat(a)
					}
					if cl.RetTy != nil {
						s.ty(cl.RetTy)
					}
					s.exp(cl.Body)
				}
			}
		})
	case *ast.LocalDec:
		s.dec(d.Local)
		s.dec(d.In)
	case *ast.SeqDec:
		for _, x := range d.Decs {
			s.dec(x)
		}
	}
}

// scopedTyVars returns the type variables a value declaration binds: its
// explicit sequence followed by the unbound ones it mentions.
func scopedTyVars(c *cx, explicit []ast.Ident, scan func(*tyVarScanner)) ([]ast.Ident, error) {
	s := &tyVarScanner{c: c, seen: set.New[intern.StrRef](0)}
	for _, id := range explicit {
		if !s.seen.Insert(id.Name) {
			return nil, &RedefinedError{Loc: id.Loc, Name: id.Name}
		}
		s.out = append(s.out, id)
	}
	scan(s)
	return s.out, nil
}
