// Package statics implements the static semantics of Standard ML: type
// inference with let-polymorphism and row-polymorphic records, structures,
// signatures and signature matching.
//
// A State holds everything one elaboration learns. Check elaborates a
// program against the standard basis and returns the resulting Basis or
// the first Error found.
package statics

import (
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
)

// Check elaborates tops in the standard basis.
func Check(st *State, store *intern.StoreMut, tops []ast.TopDec) (Basis, error) {
	return CheckWith(st, StdBasis(st, store), tops)
}

// CheckWith elaborates tops in bs and returns bs extended with their
// bindings. Elaboration stops at the first error, and no basis is
// returned in that case.
func CheckWith(st *State, bs Basis, tops []ast.TopDec) (Basis, error) {
	ck := &checker{st: st}
	for _, top := range tops {
		delta, err := ck.checkTopDec(bs, top)
		if err != nil {
			st.overloads = nil
			return Basis{}, err
		}
		bs = bs.Extend(delta)
	}
	return bs, nil
}

func (ck *checker) checkTopDec(bs Basis, top ast.TopDec) (Basis, error) {
	defer ck.st.trace("topdec %v", top.Span())()
	delta, err := ck.topDec(newCx(bs), top)
	if err != nil {
		return Basis{}, err
	}
	if err := ck.st.resolveOverloads(); err != nil {
		return Basis{}, err
	}
	delta.Env = ck.st.Subst.ApplyEnv(delta.Env)
	if ck.st.Trace != nil {
		for _, name := range sortedKeys(delta.Env.ValEnv) {
			ck.st.trace("val %s", ck.st.name(name))()
		}
	}
	return delta, nil
}
