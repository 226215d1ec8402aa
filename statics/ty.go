package statics

import (
	"sort"

	"github.com/hashicorp/go-set/v3"
	"github.com/smasher164/mlcheck/ast"
	"golang.org/x/exp/maps"
)

// Ty is a type: one of TyVar, RecordTy, ArrowTy or CtorTy. Types may hold
// maps, so they must not be compared with ==.
type Ty interface {
	isTy()
}

// TyVar is a type variable. Its binding, if any, lives in a Subst. A fixed
// variable stands for an explicit type variable like 'a and only unifies
// with itself or an unfixed variable.
type TyVar struct {
	id    int
	fixed bool
}

func (tv TyVar) ID() int       { return tv.id }
func (tv TyVar) IsFixed() bool { return tv.fixed }

// RecordTy is a record type. Rest is nil for a closed record; otherwise it
// is a row variable standing for the unknown remaining rows.
type RecordTy struct {
	Rows map[ast.Label]Ty
	Rest *TyVar
}

type ArrowTy struct {
	Dom, Rng Ty
}

// CtorTy is a type constructor applied to arguments, like int or 'a list.
type CtorTy struct {
	Args []Ty
	Sym  Sym
}

func (TyVar) isTy()    {}
func (RecordTy) isTy() {}
func (ArrowTy) isTy()  {}
func (CtorTy) isTy()   {}

func Con(sym Sym, args ...Ty) CtorTy { return CtorTy{Args: args, Sym: sym} }

// Tuple returns the record type with labels 1..n.
func Tuple(tys ...Ty) RecordTy {
	rows := make(map[ast.Label]Ty, len(tys))
	for i, ty := range tys {
		rows[ast.NumLabel(i+1)] = ty
	}
	return RecordTy{Rows: rows}
}

var (
	UnitTy   Ty = RecordTy{}
	IntTy    Ty = Con(SymInt)
	RealTy   Ty = Con(SymReal)
	WordTy   Ty = Con(SymWord)
	CharTy   Ty = Con(SymChar)
	StringTy Ty = Con(SymString)
	BoolTy   Ty = Con(SymBool)
	ExnTy    Ty = Con(SymExn)
)

// SortedLabels returns the labels of rows in Label.Compare order.
func SortedLabels[T any](rows map[ast.Label]T) []ast.Label {
	labs := maps.Keys(rows)
	sort.Slice(labs, func(i, j int) bool { return labs[i].Compare(labs[j]) < 0 })
	return labs
}

// TyScheme is a type closed over TyVars. A non-empty Overload restricts the
// first bound variable to one of the listed nullary types.
type TyScheme struct {
	TyVars   []TyVar
	Ty       Ty
	Overload []Sym
}

// Mono returns a scheme quantifying nothing.
func Mono(ty Ty) TyScheme { return TyScheme{Ty: ty} }

// TyFcn is a type function: a parameterized type abbreviation or the type
// constructor of a datatype.
type TyFcn struct {
	TyVars []TyVar
	Ty     Ty
}

func (f TyFcn) Arity() int { return len(f.TyVars) }

// Apply substitutes args for the parameters of f. Applying a type function
// to the wrong number of arguments is a programming error.
func (f TyFcn) Apply(args []Ty) Ty {
	if len(args) != len(f.TyVars) {
		panic("type function applied to the wrong number of arguments")
	}
	if len(args) == 0 {
		return f.Ty
	}
	m := make(map[TyVar]Ty, len(args))
	for i, tv := range f.TyVars {
		m[tv] = args[i]
	}
	return substTyVars(f.Ty, m)
}

// selfFcn is the type function of an abstract type or datatype named sym.
func selfFcn(sym Sym, tyVars []TyVar) TyFcn {
	args := make([]Ty, len(tyVars))
	for i, tv := range tyVars {
		args[i] = tv
	}
	return TyFcn{TyVars: tyVars, Ty: CtorTy{Args: args, Sym: sym}}
}

// TyInfo is what the State knows about a type name. ValEnv holds the
// constructors of a datatype and is empty otherwise.
type TyInfo struct {
	TyFcn  TyFcn
	ValEnv ValEnv
}

// TyTable maps every Sym ever generated to its TyInfo.
type TyTable map[Sym]TyInfo

// Get returns the info for sym, which must have been registered.
func (t TyTable) Get(sym Sym) TyInfo {
	info, ok := t[sym]
	if !ok {
		panic("type name missing from table")
	}
	return info
}

// substTyVars replaces the variables in m. Bound variables of schemes and
// type functions are always fresh, so no capture can occur.
func substTyVars(ty Ty, m map[TyVar]Ty) Ty {
	switch ty := ty.(type) {
	case TyVar:
		if sub, ok := m[ty]; ok {
			return sub
		}
		return ty
	case RecordTy:
		rows := make(map[ast.Label]Ty, len(ty.Rows))
		for lab, t := range ty.Rows {
			rows[lab] = substTyVars(t, m)
		}
		if ty.Rest == nil {
			return RecordTy{Rows: rows}
		}
		return extendRecord(rows, substTyVars(*ty.Rest, m))
	case ArrowTy:
		return ArrowTy{Dom: substTyVars(ty.Dom, m), Rng: substTyVars(ty.Rng, m)}
	case CtorTy:
		args := make([]Ty, len(ty.Args))
		for i, a := range ty.Args {
			args[i] = substTyVars(a, m)
		}
		return CtorTy{Args: args, Sym: ty.Sym}
	}
	panic("unknown type")
}

// extendRecord returns rows followed by rest, where rest is what a row
// variable stands for: another variable or a record.
func extendRecord(rows map[ast.Label]Ty, rest Ty) RecordTy {
	switch rest := rest.(type) {
	case TyVar:
		return RecordTy{Rows: rows, Rest: &rest}
	case RecordTy:
		for lab, t := range rest.Rows {
			rows[lab] = t
		}
		return RecordTy{Rows: rows, Rest: rest.Rest}
	}
	panic("row variable bound to a non-record type")
}

// tyVarsOf returns the variables of ty in order of first occurrence.
func tyVarsOf(ty Ty) []TyVar {
	seen := set.New[TyVar](0)
	var out []TyVar
	var walk func(Ty)
	add := func(tv TyVar) {
		if seen.Insert(tv) {
			out = append(out, tv)
		}
	}
	walk = func(ty Ty) {
		switch ty := ty.(type) {
		case TyVar:
			add(ty)
		case RecordTy:
			for _, lab := range SortedLabels(ty.Rows) {
				walk(ty.Rows[lab])
			}
			if ty.Rest != nil {
				add(*ty.Rest)
			}
		case ArrowTy:
			walk(ty.Dom)
			walk(ty.Rng)
		case CtorTy:
			for _, a := range ty.Args {
				walk(a)
			}
		}
	}
	walk(ty)
	return out
}

// newerSym returns a type name in ty whose id is at least mark.
func newerSym(ty Ty, mark int) (Sym, bool) {
	switch ty := ty.(type) {
	case RecordTy:
		for _, lab := range SortedLabels(ty.Rows) {
			if sym, ok := newerSym(ty.Rows[lab], mark); ok {
				return sym, true
			}
		}
	case ArrowTy:
		if sym, ok := newerSym(ty.Dom, mark); ok {
			return sym, true
		}
		return newerSym(ty.Rng, mark)
	case CtorTy:
		if ty.Sym.id >= mark {
			return ty.Sym, true
		}
		for _, a := range ty.Args {
			if sym, ok := newerSym(a, mark); ok {
				return sym, true
			}
		}
	}
	return Sym{}, false
}

// TyVarGen hands out type variables that are fresh for one State.
type TyVarGen struct {
	next int
}

func (g *TyVarGen) New() TyVar {
	g.next++
	return TyVar{id: g.next}
}

func (g *TyVarGen) NewFixed() TyVar {
	g.next++
	return TyVar{id: g.next, fixed: true}
}

func (g *TyVarGen) newVars(n int, fixed bool) []TyVar {
	out := make([]TyVar, n)
	for i := range out {
		if fixed {
			out[i] = g.NewFixed()
		} else {
			out[i] = g.New()
		}
	}
	return out
}

// instantiate replaces the bound variables of sc with fresh unfixed ones.
// It returns the new type and the variable standing for the overloaded
// position, if any.
func (g *TyVarGen) instantiate(sc TyScheme) (Ty, TyVar) {
	if len(sc.TyVars) == 0 {
		return sc.Ty, TyVar{}
	}
	m := make(map[TyVar]Ty, len(sc.TyVars))
	var first TyVar
	for i, tv := range sc.TyVars {
		fresh := g.New()
		if i == 0 {
			first = fresh
		}
		m[tv] = fresh
	}
	return substTyVars(sc.Ty, m), first
}
