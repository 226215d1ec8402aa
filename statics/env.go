package statics

import (
	"sort"

	"github.com/hashicorp/go-set/v3"
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"golang.org/x/exp/maps"
)

// IdStatus says whether a value identifier is an ordinary value, a data
// constructor or an exception constructor.
type IdStatus int

const (
	StatusVal IdStatus = iota
	StatusCtor
	StatusExn
)

func (s IdStatus) item() Item {
	switch s {
	case StatusCtor:
		return ItemConstructor
	case StatusExn:
		return ItemException
	}
	return ItemValue
}

type ValInfo struct {
	Scheme TyScheme
	Status IdStatus
	Loc    lexer.Span
}

// TyInfoRef names a type. The type's definition is looked up in the
// State's TyTable under Sym.
type TyInfoRef struct {
	Sym Sym
	Loc lexer.Span
}

type StrInfo struct {
	Env Env
	Loc lexer.Span
}

type (
	StrEnv map[intern.StrRef]StrInfo
	TyEnv  map[intern.StrRef]TyInfoRef
	ValEnv map[intern.StrRef]ValInfo
)

// Env is a static environment: the structures, types and values in scope.
type Env struct {
	StrEnv StrEnv
	TyEnv  TyEnv
	ValEnv ValEnv
}

func NewEnv() Env {
	return Env{StrEnv: make(StrEnv), TyEnv: make(TyEnv), ValEnv: make(ValEnv)}
}

// Clone copies the top level of env. Nested structure environments are
// shared, since they are never mutated once built.
func (env Env) Clone() Env {
	out := Env{StrEnv: maps.Clone(env.StrEnv), TyEnv: maps.Clone(env.TyEnv), ValEnv: maps.Clone(env.ValEnv)}
	if out.StrEnv == nil {
		out.StrEnv = make(StrEnv)
	}
	if out.TyEnv == nil {
		out.TyEnv = make(TyEnv)
	}
	if out.ValEnv == nil {
		out.ValEnv = make(ValEnv)
	}
	return out
}

// Extend returns a copy of env with the bindings of other added, other
// winning where both bind a name.
func (env Env) Extend(other Env) Env {
	out := env.Clone()
	out.extend(other)
	return out
}

func (env Env) extend(other Env) {
	maps.Copy(env.StrEnv, other.StrEnv)
	maps.Copy(env.TyEnv, other.TyEnv)
	maps.Copy(env.ValEnv, other.ValEnv)
}

func (env Env) Len() int {
	return len(env.StrEnv) + len(env.TyEnv) + len(env.ValEnv)
}

// LookupStr finds the structure at path, starting from env.
func (env Env) LookupStr(path []intern.StrRef) (Env, bool) {
	for _, name := range path {
		si, ok := env.StrEnv[name]
		if !ok {
			return Env{}, false
		}
		env = si.Env
	}
	return env, true
}

// Sig is a signature: an environment together with the type names it
// leaves abstract. TyNames are bound: they stand for whatever types a
// matching structure supplies.
type Sig struct {
	TyNames *set.TreeSet[Sym]
	Env     Env
}

func newSymSet(syms ...Sym) *set.TreeSet[Sym] {
	return set.TreeSetFrom(syms, Sym.Compare)
}

// fresh replaces the bound names of sig with new symbols, registering
// them in st. Each opaque ascription to sig gets its own abstract types.
func (sig Sig) fresh(st *State) Sig {
	rzn := make(TyRealization)
	renamed := make(map[Sym]Sym)
	tyNames := newSymSet()
	for _, old := range sig.TyNames.Slice() {
		sym := st.NewSym(old.name)
		renamed[old] = sym
		tyNames.Insert(sym)
		rzn[old] = selfFcn(sym, st.Tys.Get(old).TyFcn.TyVars)
	}
	for old, sym := range renamed {
		info := st.Tys.Get(old)
		st.Tys[sym] = TyInfo{TyFcn: rzn.ApplyFcn(info.TyFcn), ValEnv: rzn.ApplyValEnv(info.ValEnv)}
	}
	return sig.rewrite(st, rzn, renamed, tyNames)
}

// rewrite applies rzn to the environment of sig. Type names in renamed are
// replaced by their new names, and abbreviations whose definitions mention
// a realized name get new names of their own.
func (sig Sig) rewrite(st *State, rzn TyRealization, renamed map[Sym]Sym, tyNames *set.TreeSet[Sym]) Sig {
	var walk func(Env)
	walk = func(env Env) {
		for _, name := range sortedKeys(env.TyEnv) {
			old := env.TyEnv[name].Sym
			if _, ok := renamed[old]; ok || sig.TyNames.Contains(old) {
				continue
			}
			info := st.Tys.Get(old)
			if !mentionsAny(info.TyFcn.Ty, rzn) {
				continue
			}
			sym := st.NewSym(old.name)
			renamed[old] = sym
			st.Tys[sym] = TyInfo{TyFcn: rzn.ApplyFcn(info.TyFcn), ValEnv: rzn.ApplyValEnv(info.ValEnv)}
		}
		for _, name := range sortedKeys(env.StrEnv) {
			walk(env.StrEnv[name].Env)
		}
	}
	walk(sig.Env)
	return Sig{TyNames: tyNames, Env: rzn.applyEnv(sig.Env, renamed)}
}

func mentionsAny(ty Ty, rzn TyRealization) bool {
	switch ty := ty.(type) {
	case RecordTy:
		for _, t := range ty.Rows {
			if mentionsAny(t, rzn) {
				return true
			}
		}
	case ArrowTy:
		return mentionsAny(ty.Dom, rzn) || mentionsAny(ty.Rng, rzn)
	case CtorTy:
		if _, ok := rzn[ty.Sym]; ok {
			return true
		}
		for _, a := range ty.Args {
			if mentionsAny(a, rzn) {
				return true
			}
		}
	}
	return false
}

// symPath finds the structure path and name under which env binds sym.
func symPath(env Env, sym Sym) ([]intern.StrRef, intern.StrRef, lexer.Span, bool) {
	for _, name := range sortedKeys(env.TyEnv) {
		if ref := env.TyEnv[name]; ref.Sym == sym {
			return nil, name, ref.Loc, true
		}
	}
	for _, name := range sortedKeys(env.StrEnv) {
		if path, last, loc, ok := symPath(env.StrEnv[name].Env, sym); ok {
			return append([]intern.StrRef{name}, path...), last, loc, true
		}
	}
	return nil, 0, lexer.Span{}, false
}

// Basis is the top-level context: an environment plus signature bindings.
type Basis struct {
	Env    Env
	SigEnv map[intern.StrRef]Sig
}

func NewBasis() Basis {
	return Basis{Env: NewEnv(), SigEnv: make(map[intern.StrRef]Sig)}
}

func (bs Basis) Extend(other Basis) Basis {
	out := Basis{Env: bs.Env.Extend(other.Env), SigEnv: maps.Clone(bs.SigEnv)}
	if out.SigEnv == nil {
		out.SigEnv = make(map[intern.StrRef]Sig)
	}
	maps.Copy(out.SigEnv, other.SigEnv)
	return out
}

// cx is a lexical scope. Lookups walk from the innermost scope outward.
type cx struct {
	parent *cx
	env    Env
	sigs   map[intern.StrRef]Sig
	tyVars map[intern.StrRef]TyVar
}

func newCx(bs Basis) *cx {
	return &cx{env: bs.Env, sigs: bs.SigEnv}
}

// push returns a child scope binding env.
func (c *cx) push(env Env) *cx {
	return &cx{parent: c, env: env}
}

func (c *cx) pushTyVars(tvs map[intern.StrRef]TyVar) *cx {
	return &cx{parent: c, env: NewEnv(), tyVars: tvs}
}

func (c *cx) lookupStr(name intern.StrRef) (StrInfo, bool) {
	for ; c != nil; c = c.parent {
		if si, ok := c.env.StrEnv[name]; ok {
			return si, true
		}
	}
	return StrInfo{}, false
}

func (c *cx) lookupSig(name intern.StrRef) (Sig, bool) {
	for ; c != nil; c = c.parent {
		if sig, ok := c.sigs[name]; ok {
			return sig, true
		}
	}
	return Sig{}, false
}

func (c *cx) lookupTyVar(name intern.StrRef) (TyVar, bool) {
	for ; c != nil; c = c.parent {
		if tv, ok := c.tyVars[name]; ok {
			return tv, true
		}
	}
	return TyVar{}, false
}

// resolvePath finds the environment named by the structure qualifiers of
// a long identifier. With no qualifiers it returns ok and a nil env,
// meaning the last name should be looked up through the scope chain.
func (c *cx) resolvePath(strs []ast.Ident) (*Env, error) {
	if len(strs) == 0 {
		return nil, nil
	}
	si, ok := c.lookupStr(strs[0].Name)
	if !ok {
		return nil, &UndefinedError{Loc: strs[0].Loc, Item: ItemStructure, Name: strs[0].Name}
	}
	env := si.Env
	for _, id := range strs[1:] {
		si, ok := env.StrEnv[id.Name]
		if !ok {
			return nil, &UndefinedError{Loc: id.Loc, Item: ItemStructure, Name: id.Name}
		}
		env = si.Env
	}
	return &env, nil
}

func (c *cx) lookupVal(name ast.LongIdent) (ValInfo, bool, error) {
	env, err := c.resolvePath(name.Structures)
	if err != nil {
		return ValInfo{}, false, err
	}
	if env != nil {
		vi, ok := env.ValEnv[name.Last.Name]
		return vi, ok, nil
	}
	for s := c; s != nil; s = s.parent {
		if vi, ok := s.env.ValEnv[name.Last.Name]; ok {
			return vi, true, nil
		}
	}
	return ValInfo{}, false, nil
}

func (c *cx) lookupTy(name ast.LongIdent) (TyInfoRef, error) {
	undefined := &UndefinedError{Loc: name.Last.Loc, Item: ItemType, Name: name.Last.Name}
	env, err := c.resolvePath(name.Structures)
	if err != nil {
		return TyInfoRef{}, err
	}
	if env != nil {
		ref, ok := env.TyEnv[name.Last.Name]
		if !ok {
			return TyInfoRef{}, undefined
		}
		return ref, nil
	}
	for s := c; s != nil; s = s.parent {
		if ref, ok := s.env.TyEnv[name.Last.Name]; ok {
			return ref, nil
		}
	}
	return TyInfoRef{}, undefined
}

func (c *cx) lookupLongStr(name ast.LongIdent) (Env, error) {
	env, err := c.resolvePath(append(append([]ast.Ident(nil), name.Structures...), name.Last))
	if err != nil {
		return Env{}, err
	}
	return *env, nil
}

// freeTyVars collects the unbound type variables of every value in scope.
func (c *cx) freeTyVars(s *Subst) *set.Set[TyVar] {
	out := set.New[TyVar](0)
	for sc := c; sc != nil; sc = sc.parent {
		envFreeTyVars(s, sc.env, out)
		for _, tv := range sc.tyVars {
			out.Insert(tv)
		}
	}
	return out
}

func envFreeTyVars(s *Subst, env Env, out *set.Set[TyVar]) {
	for _, vi := range env.ValEnv {
		bound := set.From(vi.Scheme.TyVars)
		for _, tv := range tyVarsOf(s.Apply(vi.Scheme.Ty)) {
			if !bound.Contains(tv) {
				out.Insert(tv)
			}
		}
	}
	for _, si := range env.StrEnv {
		envFreeTyVars(s, si.Env, out)
	}
}

func sortedKeys[V any](m map[intern.StrRef]V) []intern.StrRef {
	keys := maps.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
