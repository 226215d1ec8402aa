package statics

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
)

func (ck *checker) topDec(c *cx, top ast.TopDec) (Basis, error) {
	switch top := top.(type) {
	case *ast.StrTopDec:
		env, err := ck.strDec(c, top.StrDec)
		if err != nil {
			return Basis{}, err
		}
		return Basis{Env: env}, nil
	case *ast.SignatureDec:
		bs := NewBasis()
		for _, b := range top.Binds {
			if _, ok := bs.SigEnv[b.Name.Name]; ok {
				return Basis{}, &RedefinedError{Loc: b.Name.Loc, Name: b.Name.Name}
			}
			sig, err := ck.sigExp(c, b.Sig)
			if err != nil {
				return Basis{}, err
			}
			bs.SigEnv[b.Name.Name] = sig
		}
		return bs, nil
	case *ast.FunctorDec:
		return Basis{}, &TodoError{Loc: top.Loc}
	}
	return Basis{}, &TodoError{Loc: top.Span()}
}

func (ck *checker) strDec(c *cx, d ast.StrDec) (Env, error) {
	switch d := d.(type) {
	case *ast.CoreStrDec:
		return ck.dec(c, d.Dec)
	case *ast.StructureStrDec:
		env := NewEnv()
		for _, b := range d.Binds {
			if _, ok := env.StrEnv[b.Name.Name]; ok {
				return Env{}, &RedefinedError{Loc: b.Name.Loc, Name: b.Name.Name}
			}
			str, err := ck.strExp(c, b.Exp)
			if err != nil {
				return Env{}, err
			}
			if b.Sig != nil {
				if str, err = ck.ascribe(c, b.Name.Loc.Add(b.Exp.Span()), str, b.Sig, b.Opaque); err != nil {
					return Env{}, err
				}
			}
			env.StrEnv[b.Name.Name] = StrInfo{Env: str, Loc: b.Name.Loc}
		}
		return env, nil
	case *ast.LocalStrDec:
		local, err := ck.strDec(c, d.Local)
		if err != nil {
			return Env{}, err
		}
		return ck.strDec(c.push(local), d.In)
	case *ast.SeqStrDec:
		env := NewEnv()
		cur := c
		for _, x := range d.Decs {
			delta, err := ck.strDec(cur, x)
			if err != nil {
				return Env{}, err
			}
			env.extend(delta)
			cur = cur.push(delta)
		}
		return env, nil
	}
	return Env{}, &TodoError{Loc: d.Span()}
}

func (ck *checker) strExp(c *cx, e ast.StrExp) (Env, error) {
	switch e := e.(type) {
	case *ast.StructStrExp:
		return ck.strDec(c, e.Dec)
	case *ast.NameStrExp:
		return c.lookupLongStr(e.Name)
	case *ast.AscribeStrExp:
		env, err := ck.strExp(c, e.Exp)
		if err != nil {
			return Env{}, err
		}
		return ck.ascribe(c, e.Loc, env, e.Sig, e.Opaque)
	case *ast.FunctorAppStrExp:
		return Env{}, &TodoError{Loc: e.Loc}
	case *ast.LetStrExp:
		env, err := ck.strDec(c, e.Dec)
		if err != nil {
			return Env{}, err
		}
		return ck.strExp(c.push(env), e.Body)
	}
	return Env{}, &TodoError{Loc: e.Span()}
}

// ascribe matches env against the signature sigExp denotes. Transparent
// ascription keeps the matched definitions; opaque ascription replaces the
// abstract types of the signature with new type names.
func (ck *checker) ascribe(c *cx, loc lexer.Span, env Env, sigExp ast.SigExp, opaque bool) (Env, error) {
	sig, err := ck.sigExp(c, sigExp)
	if err != nil {
		return Env{}, err
	}
	if err := ck.st.resolveOverloads(); err != nil {
		return Env{}, err
	}
	restricted, _, err := SigMatch(ck.st, loc, env, sig)
	if err != nil {
		return Env{}, err
	}
	if opaque {
		return sig.fresh(ck.st).Env, nil
	}
	return restricted, nil
}

func (ck *checker) sigExp(c *cx, e ast.SigExp) (Sig, error) {
	switch e := e.(type) {
	case *ast.SigSigExp:
		tyNames := newSymSet()
		env, err := ck.spec(c, e.Spec, tyNames)
		if err != nil {
			return Sig{}, err
		}
		return Sig{TyNames: tyNames, Env: env}, nil
	case *ast.NameSigExp:
		sig, ok := c.lookupSig(e.Name.Name)
		if !ok {
			return Sig{}, &UndefinedError{Loc: e.Name.Loc, Item: ItemSignature, Name: e.Name.Name}
		}
		return sig, nil
	case *ast.WhereTypeSigExp:
		sig, err := ck.sigExp(c, e.Sig)
		if err != nil {
			return Sig{}, err
		}
		return ck.whereType(c, sig, e)
	}
	return Sig{}, &TodoError{Loc: e.Span()}
}

// whereType defines the abstract type e names in sig.
func (ck *checker) whereType(c *cx, sig Sig, e *ast.WhereTypeSigExp) (Sig, error) {
	undefined := &UndefinedError{Loc: e.Name.Last.Loc, Item: ItemType, Name: e.Name.Last.Name}
	env := sig.Env
	for _, str := range e.Name.Structures {
		si, ok := env.StrEnv[str.Name]
		if !ok {
			return Sig{}, &UndefinedError{Loc: str.Loc, Item: ItemStructure, Name: str.Name}
		}
		env = si.Env
	}
	ref, ok := env.TyEnv[e.Name.Last.Name]
	if !ok || !sig.TyNames.Contains(ref.Sym) {
		return Sig{}, undefined
	}
	pcx, params, err := ck.tyParams(c, e.TyVars)
	if err != nil {
		return Sig{}, err
	}
	body, err := ck.ty(pcx, e.Ty)
	if err != nil {
		return Sig{}, err
	}
	if want := ck.st.Tys.Get(ref.Sym).TyFcn.Arity(); want != len(params) {
		return Sig{}, &WrongNumTyArgsError{Loc: e.Loc, Want: want, Got: len(params)}
	}
	fcn := TyFcn{TyVars: params, Ty: body}
	sym := ck.st.NewSym(ref.Sym.name)
	ck.st.Tys[sym] = TyInfo{TyFcn: fcn}
	tyNames := sig.TyNames.Copy()
	tyNames.Remove(ref.Sym)
	rzn := TyRealization{ref.Sym: fcn}
	return sig.rewrite(ck.st, rzn, map[Sym]Sym{ref.Sym: sym}, tyNames), nil
}

// spec elaborates a specification, adding the type names it leaves
// abstract to tyNames.
func (ck *checker) spec(c *cx, s ast.Spec, tyNames *set.TreeSet[Sym]) (Env, error) {
	switch s := s.(type) {
	case *ast.SeqSpec:
		env := NewEnv()
		cur := c
		for _, x := range s.Specs {
			delta, err := ck.spec(cur, x, tyNames)
			if err != nil {
				return Env{}, err
			}
			if err := addSpecs(env, delta); err != nil {
				return Env{}, err
			}
			cur = cur.push(delta)
		}
		return env, nil
	case *ast.ValSpec:
		env := NewEnv()
		for _, d := range s.Binds {
			if _, ok := env.ValEnv[d.Name.Name]; ok {
				return Env{}, &RedefinedError{Loc: d.Name.Loc, Name: d.Name.Name}
			}
			sc, err := ck.specScheme(c, d.Ty)
			if err != nil {
				return Env{}, err
			}
			env.ValEnv[d.Name.Name] = ValInfo{Scheme: sc, Status: StatusVal, Loc: d.Name.Loc}
		}
		return env, nil
	case *ast.TypeSpec:
		env := NewEnv()
		for _, d := range s.Binds {
			if _, ok := env.TyEnv[d.Name.Name]; ok {
				return Env{}, &RedefinedError{Loc: d.Name.Loc, Name: d.Name.Name}
			}
			_, params, err := ck.tyParams(c, d.TyVars)
			if err != nil {
				return Env{}, err
			}
			sym := ck.st.NewSym(d.Name.Name)
			ck.st.Tys[sym] = TyInfo{TyFcn: selfFcn(sym, params)}
			tyNames.Insert(sym)
			env.TyEnv[d.Name.Name] = TyInfoRef{Sym: sym, Loc: d.Name.Loc}
		}
		return env, nil
	case *ast.TypeAbbrevSpec:
		env := NewEnv()
		return env, ck.tyBinds(c, s.Binds, env.TyEnv)
	case *ast.DatatypeSpec:
		env := NewEnv()
		syms, err := ck.datBinds(c, s.Binds, env)
		if err != nil {
			return Env{}, err
		}
		tyNames.InsertSlice(syms)
		return env, nil
	case *ast.DatatypeCopySpec:
		return ck.datCopy(c, s.Name, s.Orig)
	case *ast.ExceptionSpec:
		env := NewEnv()
		for _, d := range s.Binds {
			if _, ok := env.ValEnv[d.Name.Name]; ok {
				return Env{}, &RedefinedError{Loc: d.Name.Loc, Name: d.Name.Name}
			}
			ty, err := ck.exnTy(c, d.Arg)
			if err != nil {
				return Env{}, err
			}
			env.ValEnv[d.Name.Name] = ValInfo{Scheme: Mono(ty), Status: StatusExn, Loc: d.Name.Loc}
		}
		return env, nil
	case *ast.StructureSpec:
		env := NewEnv()
		for _, d := range s.Binds {
			if _, ok := env.StrEnv[d.Name.Name]; ok {
				return Env{}, &RedefinedError{Loc: d.Name.Loc, Name: d.Name.Name}
			}
			sig, err := ck.sigExp(c, d.Sig)
			if err != nil {
				return Env{}, err
			}
			sub := sig.fresh(ck.st)
			tyNames.InsertSlice(sub.TyNames.Slice())
			env.StrEnv[d.Name.Name] = StrInfo{Env: sub.Env, Loc: d.Name.Loc}
		}
		return env, nil
	case *ast.IncludeSpec:
		sig, err := ck.sigExp(c, s.Sig)
		if err != nil {
			return Env{}, err
		}
		sub := sig.fresh(ck.st)
		tyNames.InsertSlice(sub.TyNames.Slice())
		return sub.Env, nil
	case *ast.SharingSpec:
		return Env{}, &TodoError{Loc: s.Loc}
	}
	return Env{}, &TodoError{Loc: s.Span()}
}

// specScheme elaborates the type of a value specification, quantifying the
// type variables it mentions.
func (ck *checker) specScheme(c *cx, t ast.Ty) (TyScheme, error) {
	ids, err := scopedTyVars(c, nil, func(s *tyVarScanner) { s.ty(t) })
	if err != nil {
		return TyScheme{}, err
	}
	tvs := make(map[intern.StrRef]TyVar, len(ids))
	params := make([]TyVar, len(ids))
	for i, id := range ids {
		params[i] = ck.st.NewTyVar()
		tvs[id.Name] = params[i]
	}
	ty, err := ck.ty(c.pushTyVars(tvs), t)
	if err != nil {
		return TyScheme{}, err
	}
	return TyScheme{TyVars: params, Ty: ty}, nil
}

// addSpecs adds delta to env. A signature may specify each name once.
func addSpecs(env, delta Env) error {
	for _, name := range byLoc(delta.StrEnv, func(si StrInfo) lexer.Span { return si.Loc }) {
		if _, ok := env.StrEnv[name]; ok {
			return &RedefinedError{Loc: delta.StrEnv[name].Loc, Name: name}
		}
	}
	for _, name := range byLoc(delta.TyEnv, func(ref TyInfoRef) lexer.Span { return ref.Loc }) {
		if _, ok := env.TyEnv[name]; ok {
			return &RedefinedError{Loc: delta.TyEnv[name].Loc, Name: name}
		}
	}
	for _, name := range byLoc(delta.ValEnv, func(vi ValInfo) lexer.Span { return vi.Loc }) {
		if _, ok := env.ValEnv[name]; ok {
			return &RedefinedError{Loc: delta.ValEnv[name].Loc, Name: name}
		}
	}
	env.extend(delta)
	return nil
}
