package statics

import "github.com/smasher164/mlcheck/ast"

// TyRealization maps type names to the type functions that replace them.
// Signature matching produces one to witness how a structure implements a
// signature's abstract types.
type TyRealization map[Sym]TyFcn

func (r TyRealization) ApplyTy(ty Ty) Ty {
	switch ty := ty.(type) {
	case TyVar:
		return ty
	case RecordTy:
		rows := make(map[ast.Label]Ty, len(ty.Rows))
		for lab, t := range ty.Rows {
			rows[lab] = r.ApplyTy(t)
		}
		return RecordTy{Rows: rows, Rest: ty.Rest}
	case ArrowTy:
		return ArrowTy{Dom: r.ApplyTy(ty.Dom), Rng: r.ApplyTy(ty.Rng)}
	case CtorTy:
		args := make([]Ty, len(ty.Args))
		for i, a := range ty.Args {
			args[i] = r.ApplyTy(a)
		}
		if fcn, ok := r[ty.Sym]; ok && fcn.Arity() == len(args) {
			return fcn.Apply(args)
		}
		return CtorTy{Args: args, Sym: ty.Sym}
	}
	panic("unknown type")
}

func (r TyRealization) ApplyScheme(sc TyScheme) TyScheme {
	return TyScheme{TyVars: sc.TyVars, Ty: r.ApplyTy(sc.Ty), Overload: sc.Overload}
}

func (r TyRealization) ApplyFcn(f TyFcn) TyFcn {
	return TyFcn{TyVars: f.TyVars, Ty: r.ApplyTy(f.Ty)}
}

func (r TyRealization) ApplyValEnv(ve ValEnv) ValEnv {
	out := make(ValEnv, len(ve))
	for name, vi := range ve {
		vi.Scheme = r.ApplyScheme(vi.Scheme)
		out[name] = vi
	}
	return out
}

// applyEnv realizes the values of env and renames the type names in its
// type environments according to renamed.
func (r TyRealization) applyEnv(env Env, renamed map[Sym]Sym) Env {
	out := Env{
		StrEnv: make(StrEnv, len(env.StrEnv)),
		TyEnv:  make(TyEnv, len(env.TyEnv)),
		ValEnv: r.ApplyValEnv(env.ValEnv),
	}
	for name, si := range env.StrEnv {
		out.StrEnv[name] = StrInfo{Env: r.applyEnv(si.Env, renamed), Loc: si.Loc}
	}
	for name, ref := range env.TyEnv {
		if sym, ok := renamed[ref.Sym]; ok {
			ref.Sym = sym
		}
		out.TyEnv[name] = ref
	}
	return out
}
