package statics

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"golang.org/x/exp/maps"
)

func (ck *checker) dec(c *cx, d ast.Dec) (Env, error) {
	switch d := d.(type) {
	case *ast.ValDec:
		return ck.valDec(c, d)
	case *ast.FunDec:
		return ck.funDec(c, d)
	case *ast.TypeDec:
		env := NewEnv()
		return env, ck.tyBinds(c, d.Binds, env.TyEnv)
	case *ast.DatatypeDec:
		if len(d.WithType) > 0 {
			return Env{}, &TodoError{Loc: d.Loc}
		}
		env := NewEnv()
		_, err := ck.datBinds(c, d.Binds, env)
		return env, err
	case *ast.DatatypeCopyDec:
		return ck.datCopy(c, d.Name, d.Orig)
	case *ast.AbstypeDec:
		return Env{}, &TodoError{Loc: d.Loc}
	case *ast.ExceptionDec:
		return ck.exBinds(c, d.Binds)
	case *ast.LocalDec:
		local, err := ck.dec(c, d.Local)
		if err != nil {
			return Env{}, err
		}
		return ck.dec(c.push(local), d.In)
	case *ast.OpenDec:
		env := NewEnv()
		for _, name := range d.Names {
			str, err := c.lookupLongStr(name)
			if err != nil {
				return Env{}, err
			}
			env.extend(str)
		}
		return env, nil
	case *ast.SeqDec:
		env := NewEnv()
		cur := c
		for _, x := range d.Decs {
			delta, err := ck.dec(cur, x)
			if err != nil {
				return Env{}, err
			}
			env.extend(delta)
			cur = cur.push(delta)
		}
		return env, nil
	case *ast.FixityDec:
		return NewEnv(), nil
	}
	return Env{}, &TodoError{Loc: d.Span()}
}

// bindTyVars pushes a scope binding the type variables ids to fresh fixed
// variables.
func (ck *checker) bindTyVars(c *cx, ids []ast.Ident) *cx {
	if len(ids) == 0 {
		return c
	}
	tvs := make(map[intern.StrRef]TyVar, len(ids))
	for _, id := range ids {
		tvs[id.Name] = ck.st.NewFixedTyVar()
	}
	return c.pushTyVars(tvs)
}

type valBinding struct {
	ty        Ty
	binds     ValEnv
	expansive bool
}

func (ck *checker) valDec(c *cx, d *ast.ValDec) (Env, error) {
	ids, err := scopedTyVars(c, d.TyVars, func(s *tyVarScanner) {
		for _, b := range d.Binds {
			s.pat(b.Pat)
			s.exp(b.Exp)
		}
	})
	if err != nil {
		return Env{}, err
	}
	inner := ck.bindTyVars(c, ids)

	all := make(ValEnv)
	recEnv := make(ValEnv)
	bound := make([]valBinding, len(d.Binds))
	for i, b := range d.Binds {
		binds := make(ValEnv)
		ty, err := ck.pat(inner, b.Pat, binds)
		if err != nil {
			return Env{}, err
		}
		for _, name := range byLoc(binds, func(vi ValInfo) lexer.Span { return vi.Loc }) {
			if _, ok := all[name]; ok {
				return Env{}, &RedefinedError{Loc: binds[name].Loc, Name: name}
			}
			all[name] = binds[name]
			if b.Rec {
				recEnv[name] = binds[name]
			}
		}
		bound[i] = valBinding{ty: ty, binds: binds, expansive: !b.Rec && ck.expansive(inner, b.Exp)}
	}
	for i, b := range d.Binds {
		ecx := inner
		if b.Rec {
			ecx = inner.push(Env{ValEnv: recEnv})
		}
		if err := ck.check(ecx, b.Exp, bound[i].ty); err != nil {
			return Env{}, err
		}
	}

	env := NewEnv()
	ctx := c.freeTyVars(ck.st.Subst)
	for _, vb := range bound {
		for name, vi := range vb.binds {
			vi.Scheme = ck.generalize(ctx, vi.Scheme.Ty, vb.expansive)
			env.ValEnv[name] = vi
		}
	}
	return env, nil
}

func (ck *checker) funDec(c *cx, d *ast.FunDec) (Env, error) {
	ids, err := scopedTyVars(c, d.TyVars, func(s *tyVarScanner) {
		s.dec(&ast.FunDec{Binds: d.Binds})
	})
	if err != nil {
		return Env{}, err
	}
	inner := ck.bindTyVars(c, ids)

	recEnv := make(ValEnv)
	fnTys := make([]Ty, len(d.Binds))
	for i, b := range d.Binds {
		tv := ck.st.NewTyVar()
		if err := bindVar(recEnv, b.Clauses[0].Name, tv); err != nil {
			return Env{}, err
		}
		fnTys[i] = tv
	}
	rcx := inner.push(Env{ValEnv: recEnv})
	for i, b := range d.Binds {
		for _, cl := range b.Clauses {
			ty, err := ck.clause(rcx, cl)
			if err != nil {
				return Env{}, err
			}
			if err := ck.unify(cl.Name.Loc.Add(cl.Body.Span()), fnTys[i], ty); err != nil {
				return Env{}, err
			}
		}
	}

	env := NewEnv()
	ctx := c.freeTyVars(ck.st.Subst)
	for name, vi := range recEnv {
		vi.Scheme = ck.generalize(ctx, vi.Scheme.Ty, false)
		env.ValEnv[name] = vi
	}
	return env, nil
}

// clause elaborates one clause of a fun binding to its curried type.
func (ck *checker) clause(c *cx, cl ast.FunClause) (Ty, error) {
	binds := make(ValEnv)
	args := make([]Ty, len(cl.Args))
	for i, a := range cl.Args {
		var err error
		if args[i], err = ck.pat(c, a, binds); err != nil {
			return nil, err
		}
	}
	body, err := ck.exp(c.push(Env{ValEnv: binds}), cl.Body)
	if err != nil {
		return nil, err
	}
	if cl.RetTy != nil {
		ann, err := ck.ty(c, cl.RetTy)
		if err != nil {
			return nil, err
		}
		if err := ck.unify(cl.Body.Span(), ann, body); err != nil {
			return nil, err
		}
	}
	ty := body
	for i := len(args) - 1; i >= 0; i-- {
		ty = ArrowTy{Dom: args[i], Rng: ty}
	}
	return ty, nil
}

// generalize closes ty over the variables not free in the context and not
// awaiting overload resolution. Expansive bindings stay monomorphic.
func (ck *checker) generalize(ctx *set.Set[TyVar], ty Ty, expansive bool) TyScheme {
	ty = ck.st.Subst.Apply(ty)
	if expansive {
		return Mono(ty)
	}
	pending := set.From(ck.st.pendingOverloads())
	var quantified []TyVar
	for _, tv := range tyVarsOf(ty) {
		if !ctx.Contains(tv) && !pending.Contains(tv) {
			quantified = append(quantified, tv)
		}
	}
	return TyScheme{TyVars: quantified, Ty: ty}
}

// expansive reports whether evaluating e might allocate a reference or
// raise, which makes generalizing its type unsound.
func (ck *checker) expansive(c *cx, e ast.Exp) bool {
	switch e := e.(type) {
	case *ast.SConExp, *ast.VarExp, *ast.SelectorExp, *ast.FnExp:
		return false
	case *ast.RecordExp:
		for _, row := range e.Rows {
			if ck.expansive(c, row.Exp) {
				return true
			}
		}
		return false
	case *ast.ListExp:
		for _, x := range e.Elems {
			if ck.expansive(c, x) {
				return true
			}
		}
		return false
	case *ast.TypedExp:
		return ck.expansive(c, e.Exp)
	case *ast.AppExp:
		v, ok := e.Fn.(*ast.VarExp)
		if !ok {
			return true
		}
		vi, ok, err := c.lookupVal(v.Name)
		if err != nil || !ok || vi.Status == StatusVal {
			return true
		}
		if arrow, ok := vi.Scheme.Ty.(ArrowTy); ok {
			if res, ok := arrow.Rng.(CtorTy); ok && res.Sym == SymRef {
				return true
			}
		}
		return ck.expansive(c, e.Arg)
	}
	return true
}

// tyParams binds the parameters of a type or datatype binding to fresh
// variables.
func (ck *checker) tyParams(c *cx, ids []ast.Ident) (*cx, []TyVar, error) {
	tvs := make(map[intern.StrRef]TyVar, len(ids))
	params := make([]TyVar, len(ids))
	for i, id := range ids {
		if _, ok := tvs[id.Name]; ok {
			return nil, nil, &RedefinedError{Loc: id.Loc, Name: id.Name}
		}
		params[i] = ck.st.NewTyVar()
		tvs[id.Name] = params[i]
	}
	return c.pushTyVars(tvs), params, nil
}

// tyBinds elaborates type abbreviations into te.
func (ck *checker) tyBinds(c *cx, binds []ast.TyBind, te TyEnv) error {
	for _, b := range binds {
		if _, ok := te[b.Name.Name]; ok {
			return &RedefinedError{Loc: b.Name.Loc, Name: b.Name.Name}
		}
		pcx, params, err := ck.tyParams(c, b.TyVars)
		if err != nil {
			return err
		}
		body, err := ck.ty(pcx, b.Ty)
		if err != nil {
			return err
		}
		sym := ck.st.NewSym(b.Name.Name)
		ck.st.Tys[sym] = TyInfo{TyFcn: TyFcn{TyVars: params, Ty: body}}
		te[b.Name.Name] = TyInfoRef{Sym: sym, Loc: b.Name.Loc}
	}
	return nil
}

// datBinds elaborates datatype bindings into env and returns the new type
// names. The datatypes may refer to each other.
func (ck *checker) datBinds(c *cx, binds []ast.DatBind, env Env) ([]Sym, error) {
	syms := make([]Sym, len(binds))
	params := make([][]TyVar, len(binds))
	pcxs := make([]*cx, len(binds))
	for i, b := range binds {
		if _, ok := env.TyEnv[b.Name.Name]; ok {
			return nil, &RedefinedError{Loc: b.Name.Loc, Name: b.Name.Name}
		}
		syms[i] = ck.st.NewSym(b.Name.Name)
		var err error
		if pcxs[i], params[i], err = ck.tyParams(c, b.TyVars); err != nil {
			return nil, err
		}
		ck.st.Tys[syms[i]] = TyInfo{TyFcn: selfFcn(syms[i], params[i])}
		env.TyEnv[b.Name.Name] = TyInfoRef{Sym: syms[i], Loc: b.Name.Loc}
	}
	tys := Env{TyEnv: maps.Clone(env.TyEnv)}
	for i, b := range binds {
		dcx := pcxs[i].push(tys)
		info := ck.st.Tys.Get(syms[i])
		info.ValEnv = make(ValEnv, len(b.Ctors))
		res := info.TyFcn.Ty
		for _, cb := range b.Ctors {
			if forbidden(cb.Name.Name) {
				return nil, &ForbiddenBindingError{Loc: cb.Name.Loc, Name: cb.Name.Name}
			}
			if _, ok := env.ValEnv[cb.Name.Name]; ok {
				return nil, &RedefinedError{Loc: cb.Name.Loc, Name: cb.Name.Name}
			}
			ty := res
			if cb.Arg != nil {
				arg, err := ck.ty(dcx, cb.Arg)
				if err != nil {
					return nil, err
				}
				ty = ArrowTy{Dom: arg, Rng: res}
			}
			vi := ValInfo{Scheme: TyScheme{TyVars: params[i], Ty: ty}, Status: StatusCtor, Loc: cb.Name.Loc}
			info.ValEnv[cb.Name.Name] = vi
			env.ValEnv[cb.Name.Name] = vi
		}
		ck.st.Tys[syms[i]] = info
	}
	return syms, nil
}

// datCopy elaborates datatype replication: the new name shares the type
// name and constructors of the original.
func (ck *checker) datCopy(c *cx, name ast.Ident, orig ast.LongIdent) (Env, error) {
	ref, err := c.lookupTy(orig)
	if err != nil {
		return Env{}, err
	}
	env := NewEnv()
	env.TyEnv[name.Name] = TyInfoRef{Sym: ref.Sym, Loc: name.Loc}
	maps.Copy(env.ValEnv, ck.st.Tys.Get(ref.Sym).ValEnv)
	return env, nil
}

func (ck *checker) exBinds(c *cx, binds []ast.ExBind) (Env, error) {
	env := NewEnv()
	for _, b := range binds {
		if forbidden(b.Name.Name) {
			return Env{}, &ForbiddenBindingError{Loc: b.Name.Loc, Name: b.Name.Name}
		}
		if _, ok := env.ValEnv[b.Name.Name]; ok {
			return Env{}, &RedefinedError{Loc: b.Name.Loc, Name: b.Name.Name}
		}
		if b.Copy != nil {
			vi, ok, err := c.lookupVal(*b.Copy)
			if err != nil {
				return Env{}, err
			}
			if !ok || vi.Status != StatusExn {
				return Env{}, &UndefinedError{Loc: b.Copy.Last.Loc, Item: ItemException, Name: b.Copy.Last.Name}
			}
			env.ValEnv[b.Name.Name] = ValInfo{Scheme: vi.Scheme, Status: StatusExn, Loc: b.Name.Loc}
			continue
		}
		ty, err := ck.exnTy(c, b.Arg)
		if err != nil {
			return Env{}, err
		}
		env.ValEnv[b.Name.Name] = ValInfo{Scheme: Mono(ty), Status: StatusExn, Loc: b.Name.Loc}
	}
	return env, nil
}

func (ck *checker) exnTy(c *cx, arg ast.Ty) (Ty, error) {
	if arg == nil {
		return ExnTy, nil
	}
	ty, err := ck.ty(c, arg)
	if err != nil {
		return nil, err
	}
	return ArrowTy{Dom: ty, Rng: ExnTy}, nil
}
