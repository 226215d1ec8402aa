package parser

import (
	"strconv"
	"strings"

	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/lexer"
)

func (p *parser) beginsExpKeyword() bool {
	switch p.tok.Type {
	case lexer.Raise, lexer.If, lexer.While, lexer.Case, lexer.Fn:
		return true
	}
	return false
}

func pairExp(lhs, rhs ast.Exp) *ast.RecordExp {
	return &ast.RecordExp{
		Rows: []ast.ExpRow{{Lab: ast.NumLabel(1), Exp: lhs}, {Lab: ast.NumLabel(2), Exp: rhs}},
		Loc:  lhs.Span().Add(rhs.Span()),
	}
}

func pairPat(lhs, rhs ast.Pat) *ast.RecordPat {
	return &ast.RecordPat{
		Rows: []ast.PatRow{{Lab: ast.NumLabel(1), Pat: lhs}, {Lab: ast.NumLabel(2), Pat: rhs}},
		Loc:  lhs.Span().Add(rhs.Span()),
	}
}

// Expressions

func (p *parser) parseExp() ast.Exp {
	defer p.trace("parseExp")()
	e := p.parseOrelse()
	for p.tok.Type == lexer.Handle {
		loc := p.tok.Span
		p.next()
		e = &ast.HandleExp{Exp: e, Rules: p.parseRules(), Loc: loc}
	}
	return e
}

func (p *parser) parseOrelse() ast.Exp {
	lhs := p.parseAndalso()
	for p.got(lexer.Orelse) {
		lhs = &ast.OrelseExp{Lhs: lhs, Rhs: p.parseAndalso()}
	}
	return lhs
}

func (p *parser) parseAndalso() ast.Exp {
	lhs := p.parseTypedOrKeyword()
	for p.got(lexer.Andalso) {
		lhs = &ast.AndalsoExp{Lhs: lhs, Rhs: p.parseTypedOrKeyword()}
	}
	return lhs
}

func (p *parser) parseTypedOrKeyword() ast.Exp {
	if p.beginsExpKeyword() {
		return p.parseKeywordExp()
	}
	e := p.parseInfixExp(0)
	for p.got(lexer.Colon) {
		e = &ast.TypedExp{Exp: e, Ty: p.parseTy()}
	}
	return e
}

// parseKeywordExp parses the expression forms that extend as far to the
// right as possible.
func (p *parser) parseKeywordExp() ast.Exp {
	defer p.trace("parseKeywordExp")()
	loc := p.tok.Span
	switch p.tok.Type {
	case lexer.Raise:
		p.next()
		return &ast.RaiseExp{Exp: p.parseExp(), Loc: loc}
	case lexer.If:
		p.next()
		cond := p.parseExp()
		p.expect(lexer.Then)
		then := p.parseExp()
		p.expect(lexer.Else)
		return &ast.IfExp{Cond: cond, Then: then, Else: p.parseExp(), Loc: loc}
	case lexer.While:
		p.next()
		cond := p.parseExp()
		p.expect(lexer.Do)
		return &ast.WhileExp{Cond: cond, Body: p.parseExp(), Loc: loc}
	case lexer.Case:
		p.next()
		head := p.parseExp()
		p.expect(lexer.Of)
		rules := p.parseRules()
		return &ast.CaseExp{Head: head, Rules: rules, Loc: loc.Add(rules[len(rules)-1].Exp.Span())}
	case lexer.Fn:
		p.next()
		rules := p.parseRules()
		return &ast.FnExp{Rules: rules, Loc: loc.Add(rules[len(rules)-1].Exp.Span())}
	}
	p.expected("expression")
	return nil
}

func (p *parser) parseRules() []ast.Rule {
	defer p.trace("parseRules")()
	var rules []ast.Rule
	for {
		pat := p.parsePat()
		p.expect(lexer.FatArrow)
		rules = append(rules, ast.Rule{Pat: pat, Exp: p.parseExp()})
		if !p.got(lexer.Bar) {
			return rules
		}
	}
}

func (p *parser) parseInfixExp(minPrec int) ast.Exp {
	lhs := p.parseAppExp()
	for {
		f, ok := p.infixOf(p.tok)
		if !ok || f.prec < minPrec {
			return lhs
		}
		op := p.tokIdent()
		p.next()
		nextPrec := f.prec + 1
		if f.right {
			nextPrec = f.prec
		}
		rhs := p.parseInfixExp(nextPrec)
		lhs = &ast.AppExp{Fn: &ast.VarExp{Name: ast.Short(op)}, Arg: pairExp(lhs, rhs)}
	}
}

func (p *parser) parseAppExp() ast.Exp {
	if _, ok := p.infixOf(p.tok); ok {
		p.fail(InfixWithoutOp, p.tok.Span, "infix identifier used without preceding `op`: %s", p.tokIdentText())
	}
	e := p.parseAtExp()
	for p.tok.BeginsAtExp() {
		if _, ok := p.infixOf(p.tok); ok {
			break
		}
		e = &ast.AppExp{Fn: e, Arg: p.parseAtExp()}
	}
	return e
}

func (p *parser) tokIdentText() string {
	if p.tok.Type == lexer.Equals {
		return "="
	}
	return p.tok.Data
}

func (p *parser) parseAtExp() ast.Exp {
	defer p.trace("parseAtExp")()
	start := p.tok.Span
	switch p.tok.Type {
	case lexer.IntLit, lexer.WordLit, lexer.RealLit, lexer.CharLit, lexer.StringLit:
		return &ast.SConExp{SCon: p.scon()}
	case lexer.Op:
		p.next()
		return &ast.VarExp{Name: p.longIdent()}
	case lexer.Ident:
		return &ast.VarExp{Name: p.longIdent()}
	case lexer.LeftBrace:
		p.next()
		var rows []ast.ExpRow
		for p.tok.Type != lexer.RightBrace {
			lab, labLoc := p.label()
			p.expect(lexer.Equals)
			rows = append(rows, ast.ExpRow{Lab: lab, LabLoc: labLoc, Exp: p.parseExp()})
			if !p.got(lexer.Comma) {
				break
			}
		}
		end := p.expect(lexer.RightBrace)
		return &ast.RecordExp{Rows: rows, Loc: start.Add(end.Span)}
	case lexer.Hash:
		p.next()
		lab, labLoc := p.label()
		return &ast.SelectorExp{Lab: lab, Loc: start.Add(labLoc)}
	case lexer.LeftParen:
		p.next()
		if end := p.tok; p.got(lexer.RightParen) {
			return &ast.RecordExp{Loc: start.Add(end.Span)}
		}
		exps := []ast.Exp{p.parseExp()}
		switch p.tok.Type {
		case lexer.Comma:
			for p.got(lexer.Comma) {
				exps = append(exps, p.parseExp())
			}
			end := p.expect(lexer.RightParen)
			rows := make([]ast.ExpRow, len(exps))
			for i, e := range exps {
				rows[i] = ast.ExpRow{Lab: ast.NumLabel(i + 1), Exp: e}
			}
			return &ast.RecordExp{Rows: rows, Loc: start.Add(end.Span)}
		case lexer.Semicolon:
			for p.got(lexer.Semicolon) {
				exps = append(exps, p.parseExp())
			}
			end := p.expect(lexer.RightParen)
			return &ast.SeqExp{Exps: exps, Loc: start.Add(end.Span)}
		}
		p.expect(lexer.RightParen)
		return exps[0]
	case lexer.LeftBracket:
		p.next()
		var elems []ast.Exp
		for p.tok.Type != lexer.RightBracket {
			elems = append(elems, p.parseExp())
			if !p.got(lexer.Comma) {
				break
			}
		}
		end := p.expect(lexer.RightBracket)
		return &ast.ListExp{Elems: elems, Loc: start.Add(end.Span)}
	case lexer.Let:
		p.next()
		saved := p.saveFix()
		dec := p.parseDec()
		p.expect(lexer.In)
		exps := []ast.Exp{p.parseExp()}
		for p.got(lexer.Semicolon) {
			exps = append(exps, p.parseExp())
		}
		end := p.expect(lexer.End)
		p.fix = saved
		loc := start.Add(end.Span)
		body := exps[0]
		if len(exps) > 1 {
			body = &ast.SeqExp{Exps: exps, Loc: exps[0].Span().Add(exps[len(exps)-1].Span())}
		}
		return &ast.LetExp{Dec: dec, Body: body, Loc: loc}
	}
	p.expected("expression")
	return nil
}

// Patterns

func (p *parser) parsePat() ast.Pat {
	defer p.trace("parsePat")()
	pat := p.parseInfixPat(0)
	for p.got(lexer.Colon) {
		pat = &ast.TypedPat{Pat: pat, Ty: p.parseTy()}
	}
	if p.tok.Type != lexer.As {
		return pat
	}
	var name *ast.ConPat
	var ty ast.Ty
	switch lhs := pat.(type) {
	case *ast.ConPat:
		name = lhs
	case *ast.TypedPat:
		name, _ = lhs.Pat.(*ast.ConPat)
		ty = lhs.Ty
	}
	if name == nil || name.Arg != nil || !name.Name.IsShort() {
		p.fail(ExpectedButFound, pat.Span(), "expected identifier to the left of `as`, found pattern")
	}
	p.next()
	return &ast.AsPat{Name: name.Name.Last, Ty: ty, Pat: p.parsePat()}
}

func (p *parser) parseInfixPat(minPrec int) ast.Pat {
	lhs := p.parseAppPat()
	for p.tok.Type != lexer.Equals {
		f, ok := p.infixOf(p.tok)
		if !ok || f.prec < minPrec {
			break
		}
		op := p.tokIdent()
		p.next()
		nextPrec := f.prec + 1
		if f.right {
			nextPrec = f.prec
		}
		rhs := p.parseInfixPat(nextPrec)
		lhs = &ast.ConPat{Name: ast.Short(op), Arg: pairPat(lhs, rhs)}
	}
	return lhs
}

func (p *parser) parseAppPat() ast.Pat {
	var name ast.LongIdent
	switch p.tok.Type {
	case lexer.Op:
		p.next()
		name = p.longIdent()
	case lexer.Ident:
		if _, ok := p.infixOf(p.tok); ok {
			p.fail(InfixWithoutOp, p.tok.Span, "infix identifier used without preceding `op`: %s", p.tok.Data)
		}
		name = p.longIdent()
	default:
		return p.parseAtPat()
	}
	if p.tok.BeginsAtPat() {
		if _, ok := p.infixOf(p.tok); !ok {
			return &ast.ConPat{Name: name, Arg: p.parseAtPat()}
		}
	}
	return &ast.ConPat{Name: name}
}

func (p *parser) parseAtPat() ast.Pat {
	defer p.trace("parseAtPat")()
	start := p.tok.Span
	switch p.tok.Type {
	case lexer.Underscore:
		p.next()
		return &ast.WildPat{Loc: start}
	case lexer.RealLit:
		p.fail(RealPat, start, "real constant used as a pattern")
	case lexer.IntLit, lexer.WordLit, lexer.CharLit, lexer.StringLit:
		return &ast.SConPat{SCon: p.scon()}
	case lexer.Op:
		p.next()
		return &ast.ConPat{Name: p.longIdent()}
	case lexer.Ident:
		if _, ok := p.infixOf(p.tok); ok {
			p.fail(InfixWithoutOp, start, "infix identifier used without preceding `op`: %s", p.tok.Data)
		}
		return &ast.ConPat{Name: p.longIdent()}
	case lexer.LeftBrace:
		p.next()
		var rows []ast.PatRow
		flexible := false
		for p.tok.Type != lexer.RightBrace {
			if p.got(lexer.Ellipsis) {
				flexible = true
				break
			}
			rows = append(rows, p.parsePatRow())
			if !p.got(lexer.Comma) {
				break
			}
		}
		end := p.expect(lexer.RightBrace)
		return &ast.RecordPat{Rows: rows, Flexible: flexible, Loc: start.Add(end.Span)}
	case lexer.LeftParen:
		p.next()
		if end := p.tok; p.got(lexer.RightParen) {
			return &ast.RecordPat{Loc: start.Add(end.Span)}
		}
		pats := []ast.Pat{p.parsePat()}
		for p.got(lexer.Comma) {
			pats = append(pats, p.parsePat())
		}
		end := p.expect(lexer.RightParen)
		if len(pats) == 1 {
			return pats[0]
		}
		rows := make([]ast.PatRow, len(pats))
		for i, pat := range pats {
			rows[i] = ast.PatRow{Lab: ast.NumLabel(i + 1), Pat: pat}
		}
		return &ast.RecordPat{Rows: rows, Loc: start.Add(end.Span)}
	case lexer.LeftBracket:
		p.next()
		var elems []ast.Pat
		for p.tok.Type != lexer.RightBracket {
			elems = append(elems, p.parsePat())
			if !p.got(lexer.Comma) {
				break
			}
		}
		end := p.expect(lexer.RightBracket)
		return &ast.ListPat{Elems: elems, Loc: start.Add(end.Span)}
	}
	p.expected("pattern")
	return nil
}

// parsePatRow parses lab = pat, or the abbreviated form vid [: ty] [as pat].
func (p *parser) parsePatRow() ast.PatRow {
	if p.tok.Type == lexer.Ident && p.peek().Type != lexer.Equals {
		id := p.ident(false)
		var pat ast.Pat = &ast.ConPat{Name: ast.Short(id)}
		var ty ast.Ty
		if p.got(lexer.Colon) {
			ty = p.parseTy()
		}
		switch {
		case p.got(lexer.As):
			pat = &ast.AsPat{Name: id, Ty: ty, Pat: p.parsePat()}
		case ty != nil:
			pat = &ast.TypedPat{Pat: pat, Ty: ty}
		}
		return ast.PatRow{Lab: ast.NameLabel(id.Name), LabLoc: id.Loc, Pat: pat}
	}
	lab, labLoc := p.label()
	p.expect(lexer.Equals)
	return ast.PatRow{Lab: lab, LabLoc: labLoc, Pat: p.parsePat()}
}

// Types

func (p *parser) parseTy() ast.Ty {
	defer p.trace("parseTy")()
	t := p.parseTupleTy()
	if p.got(lexer.Arrow) {
		return &ast.ArrowTy{Dom: t, Rng: p.parseTy()}
	}
	return t
}

func (p *parser) parseTupleTy() ast.Ty {
	t := p.parseAppTy()
	if !p.isSymbol("*") {
		return t
	}
	tys := []ast.Ty{t}
	for p.isSymbol("*") {
		p.next()
		tys = append(tys, p.parseAppTy())
	}
	rows := make([]ast.TyRow, len(tys))
	for i, t := range tys {
		rows[i] = ast.TyRow{Lab: ast.NumLabel(i + 1), Ty: t}
	}
	return &ast.RecordTy{Rows: rows, Loc: tys[0].Span().Add(tys[len(tys)-1].Span())}
}

func (p *parser) parseAppTy() ast.Ty {
	t := p.parseAtTy()
	for p.tok.Type == lexer.Ident && !p.isSymbol("*") {
		t = &ast.CtorTy{Args: []ast.Ty{t}, Name: p.longIdent()}
	}
	return t
}

func (p *parser) parseAtTy() ast.Ty {
	start := p.tok.Span
	switch {
	case p.tok.Type == lexer.TyVar:
		return &ast.TyVarTy{Ident: p.tyVar()}
	case p.tok.Type == lexer.LeftBrace:
		p.next()
		var rows []ast.TyRow
		for p.tok.Type != lexer.RightBrace {
			lab, labLoc := p.label()
			p.expect(lexer.Colon)
			rows = append(rows, ast.TyRow{Lab: lab, LabLoc: labLoc, Ty: p.parseTy()})
			if !p.got(lexer.Comma) {
				break
			}
		}
		end := p.expect(lexer.RightBrace)
		return &ast.RecordTy{Rows: rows, Loc: start.Add(end.Span)}
	case p.tok.Type == lexer.LeftParen:
		p.next()
		t := p.parseTy()
		if p.tok.Type != lexer.Comma {
			p.expect(lexer.RightParen)
			return t
		}
		args := []ast.Ty{t}
		for p.got(lexer.Comma) {
			args = append(args, p.parseTy())
		}
		p.expect(lexer.RightParen)
		if p.tok.Type != lexer.Ident || p.isSymbol("*") {
			p.expected("type constructor")
		}
		return &ast.CtorTy{Args: args, Name: p.longIdent()}
	case p.tok.Type == lexer.Ident && !p.isSymbol("*"):
		return &ast.CtorTy{Name: p.longIdent()}
	}
	p.expected("type")
	return nil
}

// Declarations

func (p *parser) beginsDec() bool {
	switch p.tok.Type {
	case lexer.Val, lexer.Fun, lexer.Type, lexer.Datatype, lexer.Abstype, lexer.Exception,
		lexer.Local, lexer.Open, lexer.Infix, lexer.Infixr, lexer.Nonfix:
		return true
	}
	return false
}

func (p *parser) parseDec() ast.Dec {
	defer p.trace("parseDec")()
	start := p.tok.Span
	var decs []ast.Dec
	for {
		for p.got(lexer.Semicolon) {
		}
		if !p.beginsDec() {
			break
		}
		decs = append(decs, p.parseDecOne())
	}
	if len(decs) == 1 {
		return decs[0]
	}
	loc := start
	if len(decs) > 0 {
		loc = decs[0].Span().Add(decs[len(decs)-1].Span())
	}
	return &ast.SeqDec{Decs: decs, Loc: loc}
}

func (p *parser) parseDecOne() ast.Dec {
	defer p.trace("parseDecOne")()
	start := p.tok.Span
	switch p.tok.Type {
	case lexer.Val:
		p.next()
		tyVars := p.tyVarSeq()
		var binds []ast.ValBind
		rec := false
		for {
			if p.got(lexer.Rec) {
				rec = true
			}
			pat := p.parsePat()
			p.expect(lexer.Equals)
			binds = append(binds, ast.ValBind{Rec: rec, Pat: pat, Exp: p.parseExp()})
			if !p.got(lexer.And) {
				break
			}
		}
		return &ast.ValDec{TyVars: tyVars, Binds: binds, Loc: start.Add(binds[len(binds)-1].Exp.Span())}
	case lexer.Fun:
		p.next()
		tyVars := p.tyVarSeq()
		var binds []ast.FunBind
		for {
			binds = append(binds, p.parseFunBind())
			if !p.got(lexer.And) {
				break
			}
		}
		last := binds[len(binds)-1].Clauses
		return &ast.FunDec{TyVars: tyVars, Binds: binds, Loc: start.Add(last[len(last)-1].Body.Span())}
	case lexer.Type:
		p.next()
		binds := p.parseTyBinds()
		return &ast.TypeDec{Binds: binds, Loc: start.Add(binds[len(binds)-1].Ty.Span())}
	case lexer.Datatype:
		p.next()
		binds, copyName, copyOrig := p.parseDatatypeBody()
		if binds == nil {
			return &ast.DatatypeCopyDec{Name: copyName, Orig: copyOrig, Loc: start.Add(copyOrig.Span())}
		}
		var withType []ast.TyBind
		if p.got(lexer.Withtype) {
			withType = p.parseTyBinds()
		}
		return &ast.DatatypeDec{Binds: binds, WithType: withType, Loc: start.Add(p.prevSpan(binds))}
	case lexer.Abstype:
		p.next()
		binds := p.parseDatBinds(p.tyVarSeq(), p.ident(false))
		var withType []ast.TyBind
		if p.got(lexer.Withtype) {
			withType = p.parseTyBinds()
		}
		p.expect(lexer.With)
		body := p.parseDec()
		end := p.expect(lexer.End)
		return &ast.AbstypeDec{Binds: binds, WithType: withType, Body: body, Loc: start.Add(end.Span)}
	case lexer.Exception:
		p.next()
		var binds []ast.ExBind
		loc := start
		for {
			eb := ast.ExBind{Name: p.opIdent()}
			loc = loc.Add(eb.Name.Loc)
			switch {
			case p.got(lexer.Of):
				eb.Arg = p.parseTy()
				loc = loc.Add(eb.Arg.Span())
			case p.got(lexer.Equals):
				p.got(lexer.Op)
				orig := p.longIdent()
				eb.Copy = &orig
				loc = loc.Add(orig.Span())
			}
			binds = append(binds, eb)
			if !p.got(lexer.And) {
				break
			}
		}
		return &ast.ExceptionDec{Binds: binds, Loc: loc}
	case lexer.Local:
		p.next()
		saved := p.saveFix()
		local := p.parseDec()
		p.expect(lexer.In)
		mid := p.saveFix()
		in := p.parseDec()
		end := p.expect(lexer.End)
		p.restoreFix(saved, mid)
		return &ast.LocalDec{Local: local, In: in, Loc: start.Add(end.Span)}
	case lexer.Open:
		p.next()
		var names []ast.LongIdent
		for p.tok.Type == lexer.Ident {
			names = append(names, p.longIdent())
		}
		if len(names) == 0 {
			p.expected("structure identifier")
		}
		return &ast.OpenDec{Names: names, Loc: start.Add(names[len(names)-1].Span())}
	case lexer.Infix, lexer.Infixr, lexer.Nonfix:
		return p.parseFixityDec()
	}
	p.expected("declaration")
	return nil
}

func (p *parser) prevSpan(binds []ast.DatBind) lexer.Span {
	last := binds[len(binds)-1]
	ctor := last.Ctors[len(last.Ctors)-1]
	if ctor.Arg != nil {
		return ctor.Arg.Span()
	}
	return ctor.Name.Loc
}

func (p *parser) parseFixityDec() ast.Dec {
	start := p.tok.Span
	kind := map[lexer.TokenType]ast.Fixity{lexer.Infix: ast.Infix, lexer.Infixr: ast.Infixr, lexer.Nonfix: ast.Nonfix}[p.tok.Type]
	p.next()
	prec := 0
	if kind != ast.Nonfix && p.tok.Type == lexer.IntLit {
		if strings.HasPrefix(p.tok.Data, "~") {
			p.fail(NegativeFixity, p.tok.Span, "fixity is negative: %s", p.tok.Data)
		}
		n, err := strconv.Atoi(p.tok.Data)
		if err != nil || n > 9 {
			p.expected("fixity between 0 and 9")
		}
		prec = n
		p.next()
	}
	var names []ast.Ident
	for p.tok.Type == lexer.Ident && !isLong(p.tok) || p.tok.Type == lexer.Equals {
		names = append(names, p.ident(true))
	}
	if len(names) == 0 {
		p.expected("identifier")
	}
	for _, name := range names {
		if kind == ast.Nonfix {
			delete(p.fix, name.Name)
		} else {
			p.fix[name.Name] = fixity{prec: prec, right: kind == ast.Infixr}
		}
	}
	return &ast.FixityDec{Fixity: kind, Prec: prec, Names: names, Loc: start.Add(names[len(names)-1].Loc)}
}

func (p *parser) parseFunBind() ast.FunBind {
	defer p.trace("parseFunBind")()
	var fb ast.FunBind
	for {
		clause := p.parseClause()
		if len(fb.Clauses) > 0 && fb.Clauses[0].Name.Name != clause.Name.Name {
			p.fail(ExpectedButFound, clause.Name.Loc, "expected clause for %s, found %s",
				p.store.Get(fb.Clauses[0].Name.Name), p.store.Get(clause.Name.Name))
		}
		fb.Clauses = append(fb.Clauses, clause)
		if !p.got(lexer.Bar) {
			return fb
		}
	}
}

func (p *parser) parseClause() ast.FunClause {
	defer p.trace("parseClause")()
	var c ast.FunClause
	_, tokInfix := p.infixOf(p.tok)
	_, peekInfix := p.infixOf(p.peek())
	switch {
	case p.tok.Type == lexer.Op:
		p.next()
		c.Name = p.ident(true)
	case p.tok.Type == lexer.Ident && !tokInfix && peekInfix && p.peek().Type != lexer.Equals:
		lhs := p.parseAtPat()
		c.Name = p.ident(false)
		c.Args = []ast.Pat{pairPat(lhs, p.parseAtPat())}
	case p.tok.Type == lexer.Ident && !tokInfix:
		c.Name = p.ident(false)
	default:
		first := p.parseAtPat()
		if _, ok := p.infixOf(p.tok); ok && p.tok.Type != lexer.Equals {
			c.Name = p.ident(true)
			c.Args = []ast.Pat{pairPat(first, p.parseAtPat())}
			break
		}
		con, ok := first.(*ast.ConPat)
		if !ok || con.Arg == nil || !con.Name.IsShort() {
			if p.tok.Type == lexer.Ident {
				p.fail(NotInfix, p.tok.Span, "non-infix identifier used as infix: %s", p.tok.Data)
			}
			p.expected("function name")
		}
		if _, infix := p.fix[con.Name.Last.Name]; !infix {
			p.fail(NotInfix, con.Name.Last.Loc, "non-infix identifier used as infix: %s", p.store.Get(con.Name.Last.Name))
		}
		c.Name = con.Name.Last
		c.Args = []ast.Pat{con.Arg}
	}
	for p.tok.BeginsAtPat() {
		c.Args = append(c.Args, p.parseAtPat())
	}
	if len(c.Args) == 0 {
		p.expected("argument pattern")
	}
	if p.got(lexer.Colon) {
		c.RetTy = p.parseTy()
	}
	p.expect(lexer.Equals)
	c.Body = p.parseExp()
	return c
}

func (p *parser) parseTyBinds() []ast.TyBind {
	var binds []ast.TyBind
	for {
		tyVars := p.tyVarSeq()
		name := p.ident(false)
		p.expect(lexer.Equals)
		binds = append(binds, ast.TyBind{TyVars: tyVars, Name: name, Ty: p.parseTy()})
		if !p.got(lexer.And) {
			return binds
		}
	}
}

// parseDatatypeBody parses the part of a datatype declaration or
// specification after the keyword. It returns nil binds for replication.
func (p *parser) parseDatatypeBody() ([]ast.DatBind, ast.Ident, ast.LongIdent) {
	tyVars := p.tyVarSeq()
	name := p.ident(false)
	if p.tok.Type == lexer.Equals && p.peek().Type == lexer.Datatype {
		if tyVars != nil {
			p.expected("datatype name without type variables")
		}
		p.next()
		p.next()
		return nil, name, p.longIdent()
	}
	return p.parseDatBinds(tyVars, name), ast.Ident{}, ast.LongIdent{}
}

// parseDatBinds parses datbinds whose first type variables and name have
// already been read.
func (p *parser) parseDatBinds(tyVars []ast.Ident, name ast.Ident) []ast.DatBind {
	var binds []ast.DatBind
	for {
		p.expect(lexer.Equals)
		db := ast.DatBind{TyVars: tyVars, Name: name}
		for {
			cb := ast.ConBind{Name: p.opIdent()}
			if p.got(lexer.Of) {
				cb.Arg = p.parseTy()
			}
			db.Ctors = append(db.Ctors, cb)
			if !p.got(lexer.Bar) {
				break
			}
		}
		binds = append(binds, db)
		if !p.got(lexer.And) {
			return binds
		}
		tyVars = p.tyVarSeq()
		name = p.ident(false)
	}
}
