package statics

import (
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
)

// checker elaborates syntax into the environments of one State.
type checker struct {
	st *State
}

func (ck *checker) unify(loc lexer.Span, a, b Ty) error {
	return Unify(loc, ck.st.Subst, a, b)
}

func sconTy(k ast.SConKind) Ty {
	switch k {
	case ast.WordCon:
		return WordTy
	case ast.RealCon:
		return RealTy
	case ast.CharCon:
		return CharTy
	case ast.StringCon:
		return StringTy
	}
	return IntTy
}

func (ck *checker) exp(c *cx, e ast.Exp) (Ty, error) {
	switch e := e.(type) {
	case *ast.SConExp:
		return sconTy(e.Kind), nil
	case *ast.VarExp:
		vi, ok, err := c.lookupVal(e.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &UndefinedError{Loc: e.Name.Last.Loc, Item: ItemValue, Name: e.Name.Last.Name}
		}
		return ck.st.instantiate(e.Span(), vi.Scheme), nil
	case *ast.RecordExp:
		rows := make(map[ast.Label]Ty, len(e.Rows))
		for _, row := range e.Rows {
			if _, ok := rows[row.Lab]; ok {
				return nil, &DuplicateLabelError{Loc: row.LabLoc, Label: row.Lab}
			}
			ty, err := ck.exp(c, row.Exp)
			if err != nil {
				return nil, err
			}
			rows[row.Lab] = ty
		}
		return RecordTy{Rows: rows}, nil
	case *ast.SelectorExp:
		field, rest := ck.st.NewTyVar(), ck.st.NewTyVar()
		return ArrowTy{Dom: RecordTy{Rows: map[ast.Label]Ty{e.Lab: field}, Rest: &rest}, Rng: field}, nil
	case *ast.ListExp:
		elem := ck.st.NewTyVar()
		for _, x := range e.Elems {
			ty, err := ck.exp(c, x)
			if err != nil {
				return nil, err
			}
			if err := ck.unify(x.Span(), elem, ty); err != nil {
				return nil, err
			}
		}
		return Con(SymList, elem), nil
	case *ast.SeqExp:
		var ty Ty = UnitTy
		for _, x := range e.Exps {
			var err error
			if ty, err = ck.exp(c, x); err != nil {
				return nil, err
			}
		}
		return ty, nil
	case *ast.LetExp:
		mark := ck.st.nextSym
		env, err := ck.dec(c, e.Dec)
		if err != nil {
			return nil, err
		}
		ty, err := ck.exp(c.push(env), e.Body)
		if err != nil {
			return nil, err
		}
		// A type declared in the let is out of scope in the let's type.
		if sym, ok := newerSym(ck.st.Subst.Apply(ty), mark); ok {
			return nil, &UndefinedError{Loc: e.Body.Span(), Item: ItemType, Name: sym.name}
		}
		return ty, nil
	case *ast.AppExp:
		fn, err := ck.exp(c, e.Fn)
		if err != nil {
			return nil, err
		}
		arg, err := ck.exp(c, e.Arg)
		if err != nil {
			return nil, err
		}
		res := ck.st.NewTyVar()
		if err := ck.unify(e.Span(), fn, ArrowTy{Dom: arg, Rng: res}); err != nil {
			return nil, err
		}
		return res, nil
	case *ast.TypedExp:
		ty, err := ck.exp(c, e.Exp)
		if err != nil {
			return nil, err
		}
		ann, err := ck.ty(c, e.Ty)
		if err != nil {
			return nil, err
		}
		if err := ck.unify(e.Span(), ann, ty); err != nil {
			return nil, err
		}
		return ann, nil
	case *ast.AndalsoExp:
		return ck.boolOp(c, e.Lhs, e.Rhs)
	case *ast.OrelseExp:
		return ck.boolOp(c, e.Lhs, e.Rhs)
	case *ast.HandleExp:
		ty, err := ck.exp(c, e.Exp)
		if err != nil {
			return nil, err
		}
		fn, err := ck.rules(c, e.Rules)
		if err != nil {
			return nil, err
		}
		if err := ck.unify(e.Loc, fn, ArrowTy{Dom: ExnTy, Rng: ty}); err != nil {
			return nil, err
		}
		return ty, nil
	case *ast.RaiseExp:
		if err := ck.check(c, e.Exp, ExnTy); err != nil {
			return nil, err
		}
		return ck.st.NewTyVar(), nil
	case *ast.IfExp:
		if err := ck.check(c, e.Cond, BoolTy); err != nil {
			return nil, err
		}
		ty, err := ck.exp(c, e.Then)
		if err != nil {
			return nil, err
		}
		return ty, ck.check(c, e.Else, ty)
	case *ast.WhileExp:
		if err := ck.check(c, e.Cond, BoolTy); err != nil {
			return nil, err
		}
		if _, err := ck.exp(c, e.Body); err != nil {
			return nil, err
		}
		return UnitTy, nil
	case *ast.CaseExp:
		head, err := ck.exp(c, e.Head)
		if err != nil {
			return nil, err
		}
		fn, err := ck.rules(c, e.Rules)
		if err != nil {
			return nil, err
		}
		res := ck.st.NewTyVar()
		if err := ck.unify(e.Loc, fn, ArrowTy{Dom: head, Rng: res}); err != nil {
			return nil, err
		}
		return res, nil
	case *ast.FnExp:
		return ck.rules(c, e.Rules)
	}
	return nil, &TodoError{Loc: e.Span()}
}

// check elaborates e and unifies its type with want.
func (ck *checker) check(c *cx, e ast.Exp, want Ty) error {
	ty, err := ck.exp(c, e)
	if err != nil {
		return err
	}
	return ck.unify(e.Span(), want, ty)
}

func (ck *checker) boolOp(c *cx, lhs, rhs ast.Exp) (Ty, error) {
	if err := ck.check(c, lhs, BoolTy); err != nil {
		return nil, err
	}
	return BoolTy, ck.check(c, rhs, BoolTy)
}

// rules elaborates a match to a function type.
func (ck *checker) rules(c *cx, rules []ast.Rule) (Ty, error) {
	dom, rng := ck.st.NewTyVar(), ck.st.NewTyVar()
	for _, r := range rules {
		binds := make(ValEnv)
		pt, err := ck.pat(c, r.Pat, binds)
		if err != nil {
			return nil, err
		}
		if err := ck.unify(r.Pat.Span(), dom, pt); err != nil {
			return nil, err
		}
		if err := ck.check(c.push(Env{ValEnv: binds}), r.Exp, rng); err != nil {
			return nil, err
		}
	}
	return ArrowTy{Dom: dom, Rng: rng}, nil
}

// forbidden names may not be rebound as values or constructors.
func forbidden(name intern.StrRef) bool {
	switch name {
	case intern.True, intern.False, intern.Nil, intern.Cons, intern.Ref, intern.Eq:
		return true
	}
	return false
}

// bindVar adds a variable bound by a pattern to binds.
func bindVar(binds ValEnv, id ast.Ident, ty Ty) error {
	if forbidden(id.Name) {
		return &ForbiddenBindingError{Loc: id.Loc, Name: id.Name}
	}
	if _, ok := binds[id.Name]; ok {
		return &RedefinedError{Loc: id.Loc, Name: id.Name}
	}
	binds[id.Name] = ValInfo{Scheme: Mono(ty), Status: StatusVal, Loc: id.Loc}
	return nil
}

// pat elaborates p, adding the variables it binds to binds.
func (ck *checker) pat(c *cx, p ast.Pat, binds ValEnv) (Ty, error) {
	switch p := p.(type) {
	case *ast.WildPat:
		return ck.st.NewTyVar(), nil
	case *ast.SConPat:
		return sconTy(p.Kind), nil
	case *ast.ConPat:
		vi, ok, err := c.lookupVal(p.Name)
		if err != nil {
			return nil, err
		}
		if ok && vi.Status != StatusVal {
			ty := ck.st.instantiate(p.Span(), vi.Scheme)
			if p.Arg == nil {
				return ty, nil
			}
			arg, err := ck.pat(c, p.Arg, binds)
			if err != nil {
				return nil, err
			}
			res := ck.st.NewTyVar()
			if err := ck.unify(p.Span(), ty, ArrowTy{Dom: arg, Rng: res}); err != nil {
				return nil, err
			}
			return res, nil
		}
		if p.Arg != nil {
			if ok {
				return nil, &ValAsPatError{Loc: p.Name.Span()}
			}
			return nil, &UndefinedError{Loc: p.Name.Last.Loc, Item: ItemConstructor, Name: p.Name.Last.Name}
		}
		if !p.Name.IsShort() {
			return nil, &UndefinedError{Loc: p.Name.Last.Loc, Item: ItemConstructor, Name: p.Name.Last.Name}
		}
		tv := ck.st.NewTyVar()
		return tv, bindVar(binds, p.Name.Last, tv)
	case *ast.RecordPat:
		rows := make(map[ast.Label]Ty, len(p.Rows))
		for _, row := range p.Rows {
			if _, ok := rows[row.Lab]; ok {
				return nil, &DuplicateLabelError{Loc: row.LabLoc, Label: row.Lab}
			}
			ty, err := ck.pat(c, row.Pat, binds)
			if err != nil {
				return nil, err
			}
			rows[row.Lab] = ty
		}
		if !p.Flexible {
			return RecordTy{Rows: rows}, nil
		}
		rest := ck.st.NewTyVar()
		return RecordTy{Rows: rows, Rest: &rest}, nil
	case *ast.ListPat:
		elem := ck.st.NewTyVar()
		for _, x := range p.Elems {
			ty, err := ck.pat(c, x, binds)
			if err != nil {
				return nil, err
			}
			if err := ck.unify(x.Span(), elem, ty); err != nil {
				return nil, err
			}
		}
		return Con(SymList, elem), nil
	case *ast.TypedPat:
		ty, err := ck.pat(c, p.Pat, binds)
		if err != nil {
			return nil, err
		}
		ann, err := ck.ty(c, p.Ty)
		if err != nil {
			return nil, err
		}
		if err := ck.unify(p.Span(), ann, ty); err != nil {
			return nil, err
		}
		return ann, nil
	case *ast.AsPat:
		vi, ok, err := c.lookupVal(ast.Short(p.Name))
		if err != nil {
			return nil, err
		}
		if ok && vi.Status != StatusVal {
			return nil, &NonVarInAsError{Loc: p.Name.Loc, Name: p.Name.Name}
		}
		ty, err := ck.pat(c, p.Pat, binds)
		if err != nil {
			return nil, err
		}
		if p.Ty != nil {
			ann, err := ck.ty(c, p.Ty)
			if err != nil {
				return nil, err
			}
			if err := ck.unify(p.Span(), ann, ty); err != nil {
				return nil, err
			}
		}
		return ty, bindVar(binds, p.Name, ty)
	}
	return nil, &TodoError{Loc: p.Span()}
}

func (ck *checker) ty(c *cx, t ast.Ty) (Ty, error) {
	switch t := t.(type) {
	case *ast.TyVarTy:
		tv, ok := c.lookupTyVar(t.Name)
		if !ok {
			return nil, &UndefinedError{Loc: t.Loc, Item: ItemTyVar, Name: t.Name}
		}
		return tv, nil
	case *ast.RecordTy:
		rows := make(map[ast.Label]Ty, len(t.Rows))
		for _, row := range t.Rows {
			if _, ok := rows[row.Lab]; ok {
				return nil, &DuplicateLabelError{Loc: row.LabLoc, Label: row.Lab}
			}
			ty, err := ck.ty(c, row.Ty)
			if err != nil {
				return nil, err
			}
			rows[row.Lab] = ty
		}
		return RecordTy{Rows: rows}, nil
	case *ast.CtorTy:
		ref, err := c.lookupTy(t.Name)
		if err != nil {
			return nil, err
		}
		fcn := ck.st.Tys.Get(ref.Sym).TyFcn
		if fcn.Arity() != len(t.Args) {
			return nil, &WrongNumTyArgsError{Loc: t.Span(), Want: fcn.Arity(), Got: len(t.Args)}
		}
		args := make([]Ty, len(t.Args))
		for i, a := range t.Args {
			if args[i], err = ck.ty(c, a); err != nil {
				return nil, err
			}
		}
		return fcn.Apply(args), nil
	case *ast.ArrowTy:
		dom, err := ck.ty(c, t.Dom)
		if err != nil {
			return nil, err
		}
		rng, err := ck.ty(c, t.Rng)
		if err != nil {
			return nil, err
		}
		return ArrowTy{Dom: dom, Rng: rng}, nil
	}
	return nil, &TodoError{Loc: t.Span()}
}
