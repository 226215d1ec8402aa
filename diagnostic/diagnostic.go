// Package diagnostic renders checker errors and types as text.
package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/intern"
	"github.com/smasher164/mlcheck/lexer"
	"github.com/smasher164/mlcheck/parser"
	"github.com/smasher164/mlcheck/statics"
)

// Diagnostic is a message attached to a place in a file.
type Diagnostic struct {
	File string
	Loc  lexer.Span
	Msg  string
}

func (d Diagnostic) String() string {
	pos := fmt.Sprintf("%d:%d", d.Loc.Start.Line, d.Loc.Start.Column)
	if d.File == "" {
		return pos + ": " + d.Msg
	}
	return d.File + ":" + pos + ": " + d.Msg
}

func (d Diagnostic) Error() string { return d.String() }

// Parse returns the diagnostic for a syntax error anywhere in err's chain.
func Parse(file string, err error) (Diagnostic, bool) {
	var perr *parser.Error
	if !errors.As(err, &perr) {
		return Diagnostic{}, false
	}
	return Diagnostic{File: file, Loc: perr.Loc, Msg: perr.Msg}, true
}

// Statics returns the diagnostic for a static semantics error.
func Statics(store intern.Getter, file string, err statics.Error) Diagnostic {
	return Diagnostic{File: file, Loc: err.Span(), Msg: Message(store, err)}
}

// Message describes err.
func Message(store intern.Getter, err statics.Error) string {
	p := newPrinter(store)
	switch err := err.(type) {
	case *statics.UndefinedError:
		return fmt.Sprintf("undefined %s identifier: %s", err.Item, store.Get(err.Name))
	case *statics.RedefinedError:
		return "redefined identifier: " + store.Get(err.Name)
	case *statics.DuplicateLabelError:
		return "duplicate label: " + p.label(err.Label)
	case *statics.CircularityError:
		v := p.ty(err.Var)
		return fmt.Sprintf("circularity: %s in %s", v, p.ty(err.Ty))
	case *statics.HeadMismatchError:
		lhs := p.ty(err.Lhs)
		return fmt.Sprintf("mismatched types: %s vs %s", lhs, p.ty(err.Rhs))
	case *statics.MissingLabelError:
		return "type is missing label " + p.label(err.Label)
	case *statics.ValAsPatError:
		return "value binding used as pattern"
	case *statics.WrongNumTyArgsError:
		return fmt.Sprintf("wrong number of type arguments: expected %d, found %d", err.Want, err.Got)
	case *statics.NonVarInAsError:
		return "pattern to left of `as` is not a variable: " + store.Get(err.Name)
	case *statics.ForbiddenBindingError:
		return "forbidden identifier in binding: " + store.Get(err.Name)
	case *statics.NoSuitableOverloadError:
		return "no suitable overload found"
	case *statics.TodoError:
		return "unimplemented language construct"
	}
	panic(fmt.Sprintf("unknown error %T", err))
}

// ShowTy renders ty. Type variables are named 'a, 'b, ... in order of
// first appearance.
func ShowTy(store intern.Getter, ty statics.Ty) string {
	return newPrinter(store).ty(ty)
}

// ShowScheme renders a type scheme like ShowTy, without its quantifier.
func ShowScheme(store intern.Getter, sc statics.TyScheme) string {
	return newPrinter(store).ty(sc.Ty)
}

type printer struct {
	store intern.Getter
	names map[statics.TyVar]string
}

func newPrinter(store intern.Getter) *printer {
	return &printer{store: store, names: make(map[statics.TyVar]string)}
}

func (p *printer) tyVar(tv statics.TyVar) string {
	if name, ok := p.names[tv]; ok {
		return name
	}
	n := len(p.names)
	name := "'" + string(rune('a'+n%26))
	if n >= 26 {
		name += fmt.Sprint(n / 26)
	}
	p.names[tv] = name
	return name
}

func (p *printer) label(l ast.Label) string {
	if l.IsNum() {
		return fmt.Sprint(l.Num)
	}
	return p.store.Get(l.Name)
}

func (p *printer) ty(ty statics.Ty) string {
	switch ty := ty.(type) {
	case statics.TyVar:
		return p.tyVar(ty)
	case statics.RecordTy:
		var rows []string
		for _, lab := range statics.SortedLabels(ty.Rows) {
			rows = append(rows, p.label(lab)+" : "+p.ty(ty.Rows[lab]))
		}
		if ty.Rest != nil {
			rows = append(rows, "...")
		}
		if len(rows) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(rows, ", ") + " }"
	case statics.ArrowTy:
		return "(" + p.ty(ty.Dom) + ") -> (" + p.ty(ty.Rng) + ")"
	case statics.CtorTy:
		name := p.store.Get(ty.Sym.Name())
		if len(ty.Args) == 0 {
			return name
		}
		args := make([]string, len(ty.Args))
		for i, a := range ty.Args {
			args[i] = p.ty(a)
		}
		return "(" + strings.Join(args, ", ") + ") " + name
	}
	return "?"
}
