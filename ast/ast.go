package ast

import (
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
)

type Node interface {
	Span() lexer.Span
}

type Exp interface {
	Node
	exp()
}

type Pat interface {
	Node
	pat()
}

type Ty interface {
	Node
	ty()
}

type Dec interface {
	Node
	dec()
}

type StrExp interface {
	Node
	strExp()
}

type StrDec interface {
	Node
	strDec()
}

type SigExp interface {
	Node
	sigExp()
}

type Spec interface {
	Node
	spec()
}

type TopDec interface {
	Node
	topDec()
}

var (
	_ Exp = (*SConExp)(nil)
	_ Exp = (*VarExp)(nil)
	_ Exp = (*RecordExp)(nil)
	_ Exp = (*SelectorExp)(nil)
	_ Exp = (*ListExp)(nil)
	_ Exp = (*SeqExp)(nil)
	_ Exp = (*LetExp)(nil)
	_ Exp = (*AppExp)(nil)
	_ Exp = (*TypedExp)(nil)
	_ Exp = (*AndalsoExp)(nil)
	_ Exp = (*OrelseExp)(nil)
	_ Exp = (*HandleExp)(nil)
	_ Exp = (*RaiseExp)(nil)
	_ Exp = (*IfExp)(nil)
	_ Exp = (*WhileExp)(nil)
	_ Exp = (*CaseExp)(nil)
	_ Exp = (*FnExp)(nil)

	_ Pat = (*WildPat)(nil)
	_ Pat = (*SConPat)(nil)
	_ Pat = (*ConPat)(nil)
	_ Pat = (*RecordPat)(nil)
	_ Pat = (*ListPat)(nil)
	_ Pat = (*TypedPat)(nil)
	_ Pat = (*AsPat)(nil)

	_ Ty = (*TyVarTy)(nil)
	_ Ty = (*RecordTy)(nil)
	_ Ty = (*CtorTy)(nil)
	_ Ty = (*ArrowTy)(nil)

	_ Dec = (*ValDec)(nil)
	_ Dec = (*FunDec)(nil)
	_ Dec = (*TypeDec)(nil)
	_ Dec = (*DatatypeDec)(nil)
	_ Dec = (*DatatypeCopyDec)(nil)
	_ Dec = (*AbstypeDec)(nil)
	_ Dec = (*ExceptionDec)(nil)
	_ Dec = (*LocalDec)(nil)
	_ Dec = (*OpenDec)(nil)
	_ Dec = (*SeqDec)(nil)
	_ Dec = (*FixityDec)(nil)

	_ StrExp = (*StructStrExp)(nil)
	_ StrExp = (*NameStrExp)(nil)
	_ StrExp = (*AscribeStrExp)(nil)
	_ StrExp = (*FunctorAppStrExp)(nil)
	_ StrExp = (*LetStrExp)(nil)

	_ StrDec = (*CoreStrDec)(nil)
	_ StrDec = (*StructureStrDec)(nil)
	_ StrDec = (*LocalStrDec)(nil)
	_ StrDec = (*SeqStrDec)(nil)

	_ SigExp = (*SigSigExp)(nil)
	_ SigExp = (*NameSigExp)(nil)
	_ SigExp = (*WhereTypeSigExp)(nil)

	_ Spec = (*ValSpec)(nil)
	_ Spec = (*TypeSpec)(nil)
	_ Spec = (*TypeAbbrevSpec)(nil)
	_ Spec = (*DatatypeSpec)(nil)
	_ Spec = (*DatatypeCopySpec)(nil)
	_ Spec = (*ExceptionSpec)(nil)
	_ Spec = (*StructureSpec)(nil)
	_ Spec = (*IncludeSpec)(nil)
	_ Spec = (*SharingSpec)(nil)
	_ Spec = (*SeqSpec)(nil)

	_ TopDec = (*StrTopDec)(nil)
	_ TopDec = (*SignatureDec)(nil)
	_ TopDec = (*FunctorDec)(nil)
)

func spanOf(n Node) lexer.Span {
	if n == nil {
		return lexer.Span{}
	}
	return n.Span()
}

// Label is a record label. Numeric labels (including tuple positions) have
// Num > 0; alphanumeric labels have Num == 0 and a Name.
type Label struct {
	Name intern.StrRef
	Num  int
}

func NameLabel(name intern.StrRef) Label { return Label{Name: name} }
func NumLabel(n int) Label              { return Label{Num: n} }

func (l Label) IsNum() bool { return l.Num > 0 }

// Compare orders numeric labels before named ones, numeric labels by value
// and named labels by handle.
func (l Label) Compare(other Label) int {
	switch {
	case l.IsNum() && !other.IsNum():
		return -1
	case !l.IsNum() && other.IsNum():
		return 1
	case l.IsNum():
		return l.Num - other.Num
	}
	return int(l.Name) - int(other.Name)
}

// Ident is an interned name together with the place it was written.
type Ident struct {
	Name intern.StrRef
	Loc  lexer.Span
}

func (id Ident) Span() lexer.Span { return id.Loc }

// LongIdent is a possibly qualified identifier like S.T.x.
type LongIdent struct {
	Structures []Ident
	Last       Ident
}

func Short(id Ident) LongIdent { return LongIdent{Last: id} }

func (l LongIdent) IsShort() bool { return len(l.Structures) == 0 }

func (l LongIdent) Span() lexer.Span {
	if len(l.Structures) == 0 {
		return l.Last.Loc
	}
	return l.Structures[0].Loc.Add(l.Last.Loc)
}

type SConKind int

const (
	IntCon SConKind = iota
	WordCon
	RealCon
	CharCon
	StringCon
)

// SCon is a special constant. Text is the source spelling.
type SCon struct {
	Kind SConKind
	Text string
	Loc  lexer.Span
}

// Expressions

type SConExp struct{ SCon }

func (e *SConExp) Span() lexer.Span { return e.Loc }

type VarExp struct {
	Name LongIdent
}

func (e *VarExp) Span() lexer.Span { return e.Name.Span() }

type ExpRow struct {
	Lab    Label
	LabLoc lexer.Span
	Exp    Exp
}

// RecordExp also represents tuples (labels 1..n) and unit (no rows).
type RecordExp struct {
	Rows []ExpRow
	Loc  lexer.Span
}

func (e *RecordExp) Span() lexer.Span { return e.Loc }

type SelectorExp struct {
	Lab Label
	Loc lexer.Span
}

func (e *SelectorExp) Span() lexer.Span { return e.Loc }

type ListExp struct {
	Elems []Exp
	Loc   lexer.Span
}

func (e *ListExp) Span() lexer.Span { return e.Loc }

type SeqExp struct {
	Exps []Exp
	Loc  lexer.Span
}

func (e *SeqExp) Span() lexer.Span { return e.Loc }

type LetExp struct {
	Dec  Dec
	Body Exp
	Loc  lexer.Span
}

func (e *LetExp) Span() lexer.Span { return e.Loc }

// AppExp is function application. Infix applications are desugared into an
// AppExp whose argument is a pair.
type AppExp struct {
	Fn  Exp
	Arg Exp
}

func (e *AppExp) Span() lexer.Span { return spanOf(e.Fn).Add(spanOf(e.Arg)) }

type TypedExp struct {
	Exp Exp
	Ty  Ty
}

func (e *TypedExp) Span() lexer.Span { return spanOf(e.Exp).Add(spanOf(e.Ty)) }

type AndalsoExp struct {
	Lhs, Rhs Exp
}

func (e *AndalsoExp) Span() lexer.Span { return spanOf(e.Lhs).Add(spanOf(e.Rhs)) }

type OrelseExp struct {
	Lhs, Rhs Exp
}

func (e *OrelseExp) Span() lexer.Span { return spanOf(e.Lhs).Add(spanOf(e.Rhs)) }

type Rule struct {
	Pat Pat
	Exp Exp
}

type HandleExp struct {
	Exp   Exp
	Rules []Rule
	Loc   lexer.Span
}

func (e *HandleExp) Span() lexer.Span { return spanOf(e.Exp).Add(e.Loc) }

type RaiseExp struct {
	Exp Exp
	Loc lexer.Span
}

func (e *RaiseExp) Span() lexer.Span { return e.Loc.Add(spanOf(e.Exp)) }

type IfExp struct {
	Cond, Then, Else Exp
	Loc              lexer.Span
}

func (e *IfExp) Span() lexer.Span { return e.Loc.Add(spanOf(e.Else)) }

type WhileExp struct {
	Cond, Body Exp
	Loc        lexer.Span
}

func (e *WhileExp) Span() lexer.Span { return e.Loc.Add(spanOf(e.Body)) }

type CaseExp struct {
	Head  Exp
	Rules []Rule
	Loc   lexer.Span
}

func (e *CaseExp) Span() lexer.Span { return e.Loc }

type FnExp struct {
	Rules []Rule
	Loc   lexer.Span
}

func (e *FnExp) Span() lexer.Span { return e.Loc }

func (*SConExp) exp()     {}
func (*VarExp) exp()      {}
func (*RecordExp) exp()   {}
func (*SelectorExp) exp() {}
func (*ListExp) exp()     {}
func (*SeqExp) exp()      {}
func (*LetExp) exp()      {}
func (*AppExp) exp()      {}
func (*TypedExp) exp()    {}
func (*AndalsoExp) exp()  {}
func (*OrelseExp) exp()   {}
func (*HandleExp) exp()   {}
func (*RaiseExp) exp()    {}
func (*IfExp) exp()       {}
func (*WhileExp) exp()    {}
func (*CaseExp) exp()     {}
func (*FnExp) exp()       {}

// Patterns

type WildPat struct {
	Loc lexer.Span
}

func (p *WildPat) Span() lexer.Span { return p.Loc }

type SConPat struct{ SCon }

func (p *SConPat) Span() lexer.Span { return p.Loc }

// ConPat is an identifier in pattern position, optionally applied to an
// argument. Whether a short unapplied name is a variable or a nullary
// constructor is decided during elaboration.
type ConPat struct {
	Name LongIdent
	Arg  Pat
}

func (p *ConPat) Span() lexer.Span { return p.Name.Span().Add(spanOf(p.Arg)) }

type PatRow struct {
	Lab    Label
	LabLoc lexer.Span
	Pat    Pat
}

type RecordPat struct {
	Rows     []PatRow
	Flexible bool
	Loc      lexer.Span
}

func (p *RecordPat) Span() lexer.Span { return p.Loc }

type ListPat struct {
	Elems []Pat
	Loc   lexer.Span
}

func (p *ListPat) Span() lexer.Span { return p.Loc }

type TypedPat struct {
	Pat Pat
	Ty  Ty
}

func (p *TypedPat) Span() lexer.Span { return spanOf(p.Pat).Add(spanOf(p.Ty)) }

// AsPat is a layered pattern: Name [: Ty] as Pat.
type AsPat struct {
	Name Ident
	Ty   Ty
	Pat  Pat
}

func (p *AsPat) Span() lexer.Span { return p.Name.Loc.Add(spanOf(p.Pat)) }

func (*WildPat) pat()   {}
func (*SConPat) pat()   {}
func (*ConPat) pat()    {}
func (*RecordPat) pat() {}
func (*ListPat) pat()   {}
func (*TypedPat) pat()  {}
func (*AsPat) pat()     {}

// Types

type TyVarTy struct {
	Ident
}

func (t *TyVarTy) Span() lexer.Span { return t.Loc }

type TyRow struct {
	Lab    Label
	LabLoc lexer.Span
	Ty     Ty
}

// RecordTy also represents tuple types.
type RecordTy struct {
	Rows []TyRow
	Loc  lexer.Span
}

func (t *RecordTy) Span() lexer.Span { return t.Loc }

type CtorTy struct {
	Args []Ty
	Name LongIdent
}

func (t *CtorTy) Span() lexer.Span {
	if len(t.Args) > 0 {
		return spanOf(t.Args[0]).Add(t.Name.Span())
	}
	return t.Name.Span()
}

type ArrowTy struct {
	Dom, Rng Ty
}

func (t *ArrowTy) Span() lexer.Span { return spanOf(t.Dom).Add(spanOf(t.Rng)) }

func (*TyVarTy) ty()  {}
func (*RecordTy) ty() {}
func (*CtorTy) ty()   {}
func (*ArrowTy) ty()  {}

// Declarations

type ValBind struct {
	Rec bool
	Pat Pat
	Exp Exp
}

type ValDec struct {
	TyVars []Ident
	Binds  []ValBind
	Loc    lexer.Span
}

func (d *ValDec) Span() lexer.Span { return d.Loc }

type FunClause struct {
	Name  Ident
	Args  []Pat
	RetTy Ty
	Body  Exp
}

type FunBind struct {
	Clauses []FunClause
}

type FunDec struct {
	TyVars []Ident
	Binds  []FunBind
	Loc    lexer.Span
}

func (d *FunDec) Span() lexer.Span { return d.Loc }

type TyBind struct {
	TyVars []Ident
	Name   Ident
	Ty     Ty
}

type TypeDec struct {
	Binds []TyBind
	Loc   lexer.Span
}

func (d *TypeDec) Span() lexer.Span { return d.Loc }

type ConBind struct {
	Name Ident
	Arg  Ty
}

type DatBind struct {
	TyVars []Ident
	Name   Ident
	Ctors  []ConBind
}

type DatatypeDec struct {
	Binds    []DatBind
	WithType []TyBind
	Loc      lexer.Span
}

func (d *DatatypeDec) Span() lexer.Span { return d.Loc }

// DatatypeCopyDec is datatype replication: datatype t = datatype u.
type DatatypeCopyDec struct {
	Name Ident
	Orig LongIdent
	Loc  lexer.Span
}

func (d *DatatypeCopyDec) Span() lexer.Span { return d.Loc }

type AbstypeDec struct {
	Binds    []DatBind
	WithType []TyBind
	Body     Dec
	Loc      lexer.Span
}

func (d *AbstypeDec) Span() lexer.Span { return d.Loc }

// ExBind declares a new exception (Copy == nil) or renames an existing one.
type ExBind struct {
	Name Ident
	Arg  Ty
	Copy *LongIdent
}

type ExceptionDec struct {
	Binds []ExBind
	Loc   lexer.Span
}

func (d *ExceptionDec) Span() lexer.Span { return d.Loc }

type LocalDec struct {
	Local, In Dec
	Loc       lexer.Span
}

func (d *LocalDec) Span() lexer.Span { return d.Loc }

type OpenDec struct {
	Names []LongIdent
	Loc   lexer.Span
}

func (d *OpenDec) Span() lexer.Span { return d.Loc }

type SeqDec struct {
	Decs []Dec
	Loc  lexer.Span
}

func (d *SeqDec) Span() lexer.Span { return d.Loc }

type Fixity int

const (
	Infix Fixity = iota
	Infixr
	Nonfix
)

// FixityDec has no static meaning; the parser applies it while parsing.
type FixityDec struct {
	Fixity Fixity
	Prec   int
	Names  []Ident
	Loc    lexer.Span
}

func (d *FixityDec) Span() lexer.Span { return d.Loc }

func (*ValDec) dec()          {}
func (*FunDec) dec()          {}
func (*TypeDec) dec()         {}
func (*DatatypeDec) dec()     {}
func (*DatatypeCopyDec) dec() {}
func (*AbstypeDec) dec()      {}
func (*ExceptionDec) dec()    {}
func (*LocalDec) dec()        {}
func (*OpenDec) dec()         {}
func (*SeqDec) dec()          {}
func (*FixityDec) dec()       {}

// Structure expressions

type StructStrExp struct {
	Dec StrDec
	Loc lexer.Span
}

func (e *StructStrExp) Span() lexer.Span { return e.Loc }

type NameStrExp struct {
	Name LongIdent
}

func (e *NameStrExp) Span() lexer.Span { return e.Name.Span() }

type AscribeStrExp struct {
	Exp    StrExp
	Sig    SigExp
	Opaque bool
	Loc    lexer.Span
}

func (e *AscribeStrExp) Span() lexer.Span { return spanOf(e.Exp).Add(spanOf(e.Sig)) }

type FunctorAppStrExp struct {
	Functor Ident
	Arg     StrExp
	Loc     lexer.Span
}

func (e *FunctorAppStrExp) Span() lexer.Span { return e.Loc }

type LetStrExp struct {
	Dec  StrDec
	Body StrExp
	Loc  lexer.Span
}

func (e *LetStrExp) Span() lexer.Span { return e.Loc }

func (*StructStrExp) strExp()     {}
func (*NameStrExp) strExp()       {}
func (*AscribeStrExp) strExp()    {}
func (*FunctorAppStrExp) strExp() {}
func (*LetStrExp) strExp()        {}

// Structure declarations

type CoreStrDec struct {
	Dec Dec
}

func (d *CoreStrDec) Span() lexer.Span { return spanOf(d.Dec) }

type StrBind struct {
	Name   Ident
	Sig    SigExp
	Opaque bool
	Exp    StrExp
}

type StructureStrDec struct {
	Binds []StrBind
	Loc   lexer.Span
}

func (d *StructureStrDec) Span() lexer.Span { return d.Loc }

type LocalStrDec struct {
	Local, In StrDec
	Loc       lexer.Span
}

func (d *LocalStrDec) Span() lexer.Span { return d.Loc }

type SeqStrDec struct {
	Decs []StrDec
	Loc  lexer.Span
}

func (d *SeqStrDec) Span() lexer.Span { return d.Loc }

func (*CoreStrDec) strDec()      {}
func (*StructureStrDec) strDec() {}
func (*LocalStrDec) strDec()     {}
func (*SeqStrDec) strDec()       {}

// Signature expressions

type SigSigExp struct {
	Spec Spec
	Loc  lexer.Span
}

func (e *SigSigExp) Span() lexer.Span { return e.Loc }

type NameSigExp struct {
	Name Ident
}

func (e *NameSigExp) Span() lexer.Span { return e.Name.Loc }

type WhereTypeSigExp struct {
	Sig    SigExp
	TyVars []Ident
	Name   LongIdent
	Ty     Ty
	Loc    lexer.Span
}

func (e *WhereTypeSigExp) Span() lexer.Span { return spanOf(e.Sig).Add(spanOf(e.Ty)) }

func (*SigSigExp) sigExp()       {}
func (*NameSigExp) sigExp()      {}
func (*WhereTypeSigExp) sigExp() {}

// Specifications

type ValDesc struct {
	Name Ident
	Ty   Ty
}

type ValSpec struct {
	Binds []ValDesc
	Loc   lexer.Span
}

func (s *ValSpec) Span() lexer.Span { return s.Loc }

type TyDesc struct {
	TyVars []Ident
	Name   Ident
}

type TypeSpec struct {
	Eq    bool
	Binds []TyDesc
	Loc   lexer.Span
}

func (s *TypeSpec) Span() lexer.Span { return s.Loc }

type TypeAbbrevSpec struct {
	Binds []TyBind
	Loc   lexer.Span
}

func (s *TypeAbbrevSpec) Span() lexer.Span { return s.Loc }

type DatatypeSpec struct {
	Binds []DatBind
	Loc   lexer.Span
}

func (s *DatatypeSpec) Span() lexer.Span { return s.Loc }

type DatatypeCopySpec struct {
	Name Ident
	Orig LongIdent
	Loc  lexer.Span
}

func (s *DatatypeCopySpec) Span() lexer.Span { return s.Loc }

type ExDesc struct {
	Name Ident
	Arg  Ty
}

type ExceptionSpec struct {
	Binds []ExDesc
	Loc   lexer.Span
}

func (s *ExceptionSpec) Span() lexer.Span { return s.Loc }

type StrDesc struct {
	Name Ident
	Sig  SigExp
}

type StructureSpec struct {
	Binds []StrDesc
	Loc   lexer.Span
}

func (s *StructureSpec) Span() lexer.Span { return s.Loc }

type IncludeSpec struct {
	Sig SigExp
	Loc lexer.Span
}

func (s *IncludeSpec) Span() lexer.Span { return s.Loc }

type SharingSpec struct {
	Spec  Spec
	Type  bool
	Names []LongIdent
	Loc   lexer.Span
}

func (s *SharingSpec) Span() lexer.Span { return s.Loc }

type SeqSpec struct {
	Specs []Spec
	Loc   lexer.Span
}

func (s *SeqSpec) Span() lexer.Span { return s.Loc }

func (*ValSpec) spec()          {}
func (*TypeSpec) spec()         {}
func (*TypeAbbrevSpec) spec()   {}
func (*DatatypeSpec) spec()     {}
func (*DatatypeCopySpec) spec() {}
func (*ExceptionSpec) spec()    {}
func (*StructureSpec) spec()    {}
func (*IncludeSpec) spec()      {}
func (*SharingSpec) spec()      {}
func (*SeqSpec) spec()          {}

// Top-level declarations

type StrTopDec struct {
	StrDec
}

func (d *StrTopDec) Span() lexer.Span { return spanOf(d.StrDec) }

type SigBind struct {
	Name Ident
	Sig  SigExp
}

type SignatureDec struct {
	Binds []SigBind
	Loc   lexer.Span
}

func (d *SignatureDec) Span() lexer.Span { return d.Loc }

type FunctorBind struct {
	Name     Ident
	Param    Ident
	ParamSig SigExp
	Body     StrExp
}

type FunctorDec struct {
	Binds []FunctorBind
	Loc   lexer.Span
}

func (d *FunctorDec) Span() lexer.Span { return d.Loc }

func (*StrTopDec) topDec()    {}
func (*SignatureDec) topDec() {}
func (*FunctorDec) topDec()   {}
