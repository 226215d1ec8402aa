package statics

import "github.com/smasher164/mlcheck/intern"

// Sym is a generative type name. Two Syms are the same type exactly when
// they came from the same call to State.NewSym (or are the same built-in);
// the name is carried only for display and for matching by name.
type Sym struct {
	name intern.StrRef
	id   int
}

func (s Sym) Name() intern.StrRef { return s.name }
func (s Sym) ID() int             { return s.id }

func (s Sym) Compare(other Sym) int {
	return s.id - other.id
}

var (
	SymInt    = Sym{intern.Int, 0}
	SymReal   = Sym{intern.Real, 1}
	SymWord   = Sym{intern.Word, 2}
	SymChar   = Sym{intern.Char, 3}
	SymString = Sym{intern.String, 4}
	SymBool   = Sym{intern.Bool, 5}
	SymList   = Sym{intern.List, 6}
	SymRef    = Sym{intern.Ref, 7}
	SymExn    = Sym{intern.Exn, 8}
)

const numBuiltinSyms = 9
