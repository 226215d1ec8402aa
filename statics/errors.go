package statics

import (
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
)

// Item is the kind of thing an identifier names.
type Item int

const (
	ItemValue Item = iota
	ItemConstructor
	ItemException
	ItemType
	ItemTyVar
	ItemStructure
	ItemSignature
	ItemFunctor
)

func (it Item) String() string {
	switch it {
	case ItemValue:
		return "value"
	case ItemConstructor:
		return "constructor"
	case ItemException:
		return "exception"
	case ItemType:
		return "type"
	case ItemTyVar:
		return "type variable"
	case ItemStructure:
		return "structure"
	case ItemSignature:
		return "signature"
	case ItemFunctor:
		return "functor"
	}
	return "unknown item"
}

// Error is a static semantics error. The set of implementations is closed:
// every Error is one of the *XxxError types in this file. Error() gives only
// a category; package diagnostic renders the payload.
type Error interface {
	error
	Span() lexer.Span
	staticsError()
}

type UndefinedError struct {
	Loc  lexer.Span
	Item Item
	Name intern.StrRef
}

type RedefinedError struct {
	Loc  lexer.Span
	Name intern.StrRef
}

type DuplicateLabelError struct {
	Loc   lexer.Span
	Label ast.Label
}

// CircularityError reports that Var would have to contain itself. Ty is the
// type Var was being bound to.
type CircularityError struct {
	Loc lexer.Span
	Var TyVar
	Ty  Ty
}

type HeadMismatchError struct {
	Loc      lexer.Span
	Lhs, Rhs Ty
}

type MissingLabelError struct {
	Loc   lexer.Span
	Label ast.Label
}

// ValAsPatError reports an ordinary value applied to an argument in a pattern.
type ValAsPatError struct {
	Loc lexer.Span
}

type WrongNumTyArgsError struct {
	Loc       lexer.Span
	Want, Got int
}

type NonVarInAsError struct {
	Loc  lexer.Span
	Name intern.StrRef
}

type ForbiddenBindingError struct {
	Loc  lexer.Span
	Name intern.StrRef
}

type NoSuitableOverloadError struct {
	Loc lexer.Span
}

// TodoError marks a construct the checker does not support.
type TodoError struct {
	Loc lexer.Span
}

func (e *UndefinedError) Error() string          { return "undefined identifier" }
func (e *RedefinedError) Error() string          { return "redefined identifier" }
func (e *DuplicateLabelError) Error() string     { return "duplicate label" }
func (e *CircularityError) Error() string        { return "circularity" }
func (e *HeadMismatchError) Error() string       { return "mismatched types" }
func (e *MissingLabelError) Error() string       { return "missing label" }
func (e *ValAsPatError) Error() string           { return "value binding used as pattern" }
func (e *WrongNumTyArgsError) Error() string     { return "wrong number of type arguments" }
func (e *NonVarInAsError) Error() string         { return "pattern to left of `as` is not a variable" }
func (e *ForbiddenBindingError) Error() string   { return "forbidden identifier in binding" }
func (e *NoSuitableOverloadError) Error() string { return "no suitable overload found" }
func (e *TodoError) Error() string               { return "unimplemented language construct" }

func (e *UndefinedError) Span() lexer.Span          { return e.Loc }
func (e *RedefinedError) Span() lexer.Span          { return e.Loc }
func (e *DuplicateLabelError) Span() lexer.Span     { return e.Loc }
func (e *CircularityError) Span() lexer.Span        { return e.Loc }
func (e *HeadMismatchError) Span() lexer.Span       { return e.Loc }
func (e *MissingLabelError) Span() lexer.Span       { return e.Loc }
func (e *ValAsPatError) Span() lexer.Span           { return e.Loc }
func (e *WrongNumTyArgsError) Span() lexer.Span     { return e.Loc }
func (e *NonVarInAsError) Span() lexer.Span         { return e.Loc }
func (e *ForbiddenBindingError) Span() lexer.Span   { return e.Loc }
func (e *NoSuitableOverloadError) Span() lexer.Span { return e.Loc }
func (e *TodoError) Span() lexer.Span               { return e.Loc }

func (*UndefinedError) staticsError()          {}
func (*RedefinedError) staticsError()          {}
func (*DuplicateLabelError) staticsError()     {}
func (*CircularityError) staticsError()        {}
func (*HeadMismatchError) staticsError()       {}
func (*MissingLabelError) staticsError()       {}
func (*ValAsPatError) staticsError()           {}
func (*WrongNumTyArgsError) staticsError()     {}
func (*NonVarInAsError) staticsError()         {}
func (*ForbiddenBindingError) staticsError()   {}
func (*NoSuitableOverloadError) staticsError() {}
func (*TodoError) staticsError()               {}
