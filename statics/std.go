package statics

import (
	"github.com/smasher164/mlcheck/intern"
	"golang.org/x/exp/maps"
)

// StdBasis returns the initial basis: the built-in types, their
// constructors, the standard exceptions and the pervasive operators.
// Names are interned in store, which st also uses to label its trace.
func StdBasis(st *State, store *intern.StoreMut) Basis {
	st.names = store
	bs := NewBasis()
	env := bs.Env
	for _, sym := range []Sym{SymInt, SymReal, SymWord, SymChar, SymString, SymBool, SymList, SymRef, SymExn} {
		env.TyEnv[sym.name] = TyInfoRef{Sym: sym}
		maps.Copy(env.ValEnv, st.Tys.Get(sym).ValEnv)
	}
	unit := st.NewSym(intern.Unit)
	st.Tys[unit] = TyInfo{TyFcn: TyFcn{Ty: UnitTy}}
	env.TyEnv[intern.Unit] = TyInfoRef{Sym: unit}

	val := func(name string, sc TyScheme) {
		env.ValEnv[store.Insert(name)] = ValInfo{Scheme: sc}
	}
	exn := func(name string, ty Ty) {
		env.ValEnv[store.Insert(name)] = ValInfo{Scheme: Mono(ty), Status: StatusExn}
	}
	poly := func(f func(a, b, c TyVar) Ty) TyScheme {
		a, b, c := st.NewTyVar(), st.NewTyVar(), st.NewTyVar()
		ty := f(a, b, c)
		return TyScheme{TyVars: tyVarsOf(ty), Ty: ty}
	}
	overloaded := func(f func(TyVar) Ty, syms ...Sym) TyScheme {
		a := st.NewTyVar()
		return TyScheme{TyVars: []TyVar{a}, Ty: f(a), Overload: syms}
	}
	fn := func(dom, rng Ty) Ty { return ArrowTy{Dom: dom, Rng: rng} }

	binary := func(a TyVar) Ty { return fn(Tuple(a, a), a) }
	compare := func(a TyVar) Ty { return fn(Tuple(a, a), BoolTy) }
	unary := func(a TyVar) Ty { return fn(a, a) }
	for _, name := range []string{"+", "-", "*"} {
		val(name, overloaded(binary, SymInt, SymReal, SymWord))
	}
	for _, name := range []string{"div", "mod"} {
		val(name, overloaded(binary, SymInt, SymWord))
	}
	for _, name := range []string{"~", "abs"} {
		val(name, overloaded(unary, SymInt, SymReal))
	}
	for _, name := range []string{"<", ">", "<=", ">="} {
		val(name, overloaded(compare, SymInt, SymReal, SymWord, SymChar, SymString))
	}
	val("/", Mono(fn(Tuple(RealTy, RealTy), RealTy)))
	val("=", poly(func(a, _, _ TyVar) Ty { return compare(a) }))
	val("<>", poly(func(a, _, _ TyVar) Ty { return compare(a) }))
	val("!", poly(func(a, _, _ TyVar) Ty { return fn(Con(SymRef, a), a) }))
	val(":=", poly(func(a, _, _ TyVar) Ty { return fn(Tuple(Con(SymRef, a), a), UnitTy) }))
	val("^", Mono(fn(Tuple(StringTy, StringTy), StringTy)))
	val("not", Mono(fn(BoolTy, BoolTy)))
	val("print", Mono(fn(StringTy, UnitTy)))
	val("size", Mono(fn(StringTy, IntTy)))
	val("@", poly(func(a, _, _ TyVar) Ty {
		return fn(Tuple(Con(SymList, a), Con(SymList, a)), Con(SymList, a))
	}))
	val("o", poly(func(a, b, c TyVar) Ty {
		return fn(Tuple(fn(b, c), fn(a, b)), fn(a, c))
	}))
	val("ignore", poly(func(a, _, _ TyVar) Ty { return fn(a, UnitTy) }))

	exn("Match", ExnTy)
	exn("Bind", ExnTy)
	exn("Div", ExnTy)
	exn("Fail", fn(StringTy, ExnTy))
	return bs
}
