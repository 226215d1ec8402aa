package statics

import (
	"fmt"
	"io"

	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"golang.org/x/exp/slices"
)

type overload struct {
	loc  lexer.Span
	tv   TyVar
	syms []Sym
}

// State is the mutable state of one elaboration: the table of type names,
// the substitution and the counters that keep symbols and type variables
// fresh. It is not safe for concurrent use.
type State struct {
	Tys   TyTable
	Subst *Subst
	Gen   TyVarGen
	// Trace, if set, receives an indented log of the declarations elaborated
	// and the signatures matched.
	Trace io.Writer

	nextSym   int
	overloads []overload
	indent    int
	names     intern.Getter
}

func NewState() *State {
	st := &State{}
	st.Reset()
	return st
}

// Reset discards everything st has learned, leaving only the built-in types.
func (st *State) Reset() {
	st.Tys = make(TyTable)
	st.Gen = TyVarGen{}
	st.Subst = NewSubst(&st.Gen)
	st.nextSym = numBuiltinSyms
	st.overloads = nil
	st.indent = 0

	for _, sym := range []Sym{SymInt, SymReal, SymWord, SymChar, SymString, SymExn} {
		st.Tys[sym] = TyInfo{TyFcn: selfFcn(sym, nil)}
	}
	st.Tys[SymBool] = TyInfo{
		TyFcn: selfFcn(SymBool, nil),
		ValEnv: ValEnv{
			intern.True:  {Scheme: Mono(BoolTy), Status: StatusCtor},
			intern.False: {Scheme: Mono(BoolTy), Status: StatusCtor},
		},
	}
	a := st.Gen.New()
	listA := Con(SymList, a)
	st.Tys[SymList] = TyInfo{
		TyFcn: selfFcn(SymList, []TyVar{a}),
		ValEnv: ValEnv{
			intern.Nil:  {Scheme: TyScheme{TyVars: []TyVar{a}, Ty: listA}, Status: StatusCtor},
			intern.Cons: {Scheme: TyScheme{TyVars: []TyVar{a}, Ty: ArrowTy{Dom: Tuple(a, listA), Rng: listA}}, Status: StatusCtor},
		},
	}
	b := st.Gen.New()
	st.Tys[SymRef] = TyInfo{
		TyFcn: selfFcn(SymRef, []TyVar{b}),
		ValEnv: ValEnv{
			intern.Ref: {Scheme: TyScheme{TyVars: []TyVar{b}, Ty: ArrowTy{Dom: b, Rng: Con(SymRef, b)}}, Status: StatusCtor},
		},
	}
}

// NewSym returns a type name never returned before by st.
func (st *State) NewSym(name intern.StrRef) Sym {
	sym := Sym{name: name, id: st.nextSym}
	st.nextSym++
	return sym
}

func (st *State) NewTyVar() TyVar      { return st.Gen.New() }
func (st *State) NewFixedTyVar() TyVar { return st.Gen.NewFixed() }

func (st *State) trace(format string, args ...any) func() {
	if st.Trace == nil {
		return func() {}
	}
	fmt.Fprintf(st.Trace, "%*s%s\n", st.indent*2, "", fmt.Sprintf(format, args...))
	st.indent++
	return func() {
		st.indent--
	}
}

// SetNames makes st label its trace with names, typically the sealed form
// of the store given to StdBasis.
func (st *State) SetNames(names intern.Getter) { st.names = names }

func (st *State) name(ref intern.StrRef) string {
	if st.names == nil {
		return fmt.Sprint(int(ref))
	}
	return st.names.Get(ref)
}

// instantiate gives sc fresh variables and records its overload
// constraint, if any, for resolution at the end of the declaration.
func (st *State) instantiate(loc lexer.Span, sc TyScheme) Ty {
	ty, first := st.Gen.instantiate(sc)
	if len(sc.Overload) > 0 {
		st.overloads = append(st.overloads, overload{loc: loc, tv: first, syms: sc.Overload})
	}
	return ty
}

// pendingOverloads returns the variables of unresolved overload constraints.
func (st *State) pendingOverloads() []TyVar {
	var out []TyVar
	for _, o := range st.overloads {
		if tv, ok := st.Subst.Apply(o.tv).(TyVar); ok {
			out = append(out, tv)
		}
	}
	return out
}

// resolveOverloads settles every recorded constraint. A constraint whose
// variable is still unbound defaults to the first type it allows.
func (st *State) resolveOverloads() error {
	pending := st.overloads
	st.overloads = nil
	for _, o := range pending {
		switch ty := st.Subst.Apply(o.tv).(type) {
		case TyVar:
			if ty.fixed {
				return &NoSuitableOverloadError{Loc: o.loc}
			}
			st.Subst.bind(ty, Con(o.syms[0]))
		case CtorTy:
			if len(ty.Args) != 0 || !slices.Contains(o.syms, ty.Sym) {
				return &NoSuitableOverloadError{Loc: o.loc}
			}
		default:
			return &NoSuitableOverloadError{Loc: o.loc}
		}
	}
	return nil
}
