package statics

import (
	"github.com/smasher164/mlcheck/lexer"
)

// SigMatch matches env against sig. It finds the realization of the
// bound type names of sig that env witnesses, checks that env enriches the
// realized signature, and returns env cut down to the names sig mentions.
// env itself is not modified.
func SigMatch(st *State, loc lexer.Span, env Env, sig Sig) (Env, TyRealization, error) {
	defer st.trace("match signature at %v", loc)()
	env = st.Subst.ApplyEnv(env)
	rzn := make(TyRealization)
	for _, bound := range sig.TyNames.Slice() {
		path, name, tloc, ok := symPath(sig.Env, bound)
		if !ok {
			continue
		}
		at := orLoc(tloc, loc)
		cenv := env
		for _, str := range path {
			si, ok := cenv.StrEnv[str]
			if !ok {
				return Env{}, nil, &UndefinedError{Loc: at, Item: ItemStructure, Name: str}
			}
			cenv = si.Env
		}
		ref, ok := cenv.TyEnv[name]
		if !ok {
			return Env{}, nil, &UndefinedError{Loc: at, Item: ItemType, Name: name}
		}
		fcn := st.Tys.Get(ref.Sym).TyFcn
		if want := st.Tys.Get(bound).TyFcn.Arity(); fcn.Arity() != want {
			return Env{}, nil, &WrongNumTyArgsError{Loc: at, Want: want, Got: fcn.Arity()}
		}
		rzn[bound] = fcn
	}
	if err := Enrich(loc, st.Tys, rzn, &st.Gen, env, sig.Env); err != nil {
		return Env{}, nil, err
	}
	return restrict(env, sig.Env), rzn, nil
}

// restrict keeps the entries of env whose names sigEnv binds.
func restrict(env, sigEnv Env) Env {
	out := NewEnv()
	for name, tsi := range sigEnv.StrEnv {
		csi := env.StrEnv[name]
		out.StrEnv[name] = StrInfo{Env: restrict(csi.Env, tsi.Env), Loc: csi.Loc}
	}
	for name := range sigEnv.TyEnv {
		out.TyEnv[name] = env.TyEnv[name]
	}
	for name := range sigEnv.ValEnv {
		out.ValEnv[name] = env.ValEnv[name]
	}
	return out
}
