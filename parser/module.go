package parser

import (
	"github.com/smasher164/mlcheck/ast"
	"github.com/smasher164/mlcheck/lexer"
)

func (p *parser) beginsStrDec() bool {
	return p.beginsDec() || p.tok.Type == lexer.Structure
}

func (p *parser) parseStrDec() ast.StrDec {
	defer p.trace("parseStrDec")()
	start := p.tok.Span
	var decs []ast.StrDec
	for {
		for p.got(lexer.Semicolon) {
		}
		if !p.beginsStrDec() {
			break
		}
		decs = append(decs, p.parseStrDecOne())
	}
	if len(decs) == 1 {
		return decs[0]
	}
	loc := start
	if len(decs) > 0 {
		loc = decs[0].Span().Add(decs[len(decs)-1].Span())
	}
	return &ast.SeqStrDec{Decs: decs, Loc: loc}
}

func (p *parser) parseStrDecOne() ast.StrDec {
	defer p.trace("parseStrDecOne")()
	start := p.tok.Span
	switch p.tok.Type {
	case lexer.Structure:
		p.next()
		var binds []ast.StrBind
		for {
			sb := ast.StrBind{Name: p.ident(false)}
			switch {
			case p.got(lexer.Colon):
				sb.Sig = p.parseSigExp()
			case p.got(lexer.ColonGt):
				sb.Sig = p.parseSigExp()
				sb.Opaque = true
			}
			p.expect(lexer.Equals)
			sb.Exp = p.parseStrExp()
			binds = append(binds, sb)
			if !p.got(lexer.And) {
				break
			}
		}
		return &ast.StructureStrDec{Binds: binds, Loc: start.Add(binds[len(binds)-1].Exp.Span())}
	case lexer.Local:
		p.next()
		saved := p.saveFix()
		local := p.parseStrDec()
		p.expect(lexer.In)
		mid := p.saveFix()
		in := p.parseStrDec()
		end := p.expect(lexer.End)
		p.restoreFix(saved, mid)
		return &ast.LocalStrDec{Local: local, In: in, Loc: start.Add(end.Span)}
	}
	return &ast.CoreStrDec{Dec: p.parseDecOne()}
}

func (p *parser) parseStrExp() ast.StrExp {
	defer p.trace("parseStrExp")()
	e := p.parseAtStrExp()
	for p.tok.Type == lexer.Colon || p.tok.Type == lexer.ColonGt {
		loc := p.tok.Span
		opaque := p.tok.Type == lexer.ColonGt
		p.next()
		e = &ast.AscribeStrExp{Exp: e, Sig: p.parseSigExp(), Opaque: opaque, Loc: loc}
	}
	return e
}

func (p *parser) parseAtStrExp() ast.StrExp {
	start := p.tok.Span
	switch p.tok.Type {
	case lexer.Struct:
		p.next()
		dec := p.parseStrDec()
		end := p.expect(lexer.End)
		return &ast.StructStrExp{Dec: dec, Loc: start.Add(end.Span)}
	case lexer.Let:
		p.next()
		saved := p.saveFix()
		dec := p.parseStrDec()
		p.expect(lexer.In)
		body := p.parseStrExp()
		end := p.expect(lexer.End)
		p.fix = saved
		return &ast.LetStrExp{Dec: dec, Body: body, Loc: start.Add(end.Span)}
	case lexer.Ident:
		if isLong(p.tok) || p.peek().Type != lexer.LeftParen {
			return &ast.NameStrExp{Name: p.longIdent()}
		}
		functor := p.ident(false)
		p.expect(lexer.LeftParen)
		var arg ast.StrExp
		if argStart := p.tok.Span; p.beginsStrDec() || p.tok.Type == lexer.RightParen {
			dec := p.parseStrDec()
			arg = &ast.StructStrExp{Dec: dec, Loc: argStart.Add(dec.Span())}
		} else {
			arg = p.parseStrExp()
		}
		end := p.expect(lexer.RightParen)
		return &ast.FunctorAppStrExp{Functor: functor, Arg: arg, Loc: start.Add(end.Span)}
	}
	p.expected("structure expression")
	return nil
}

func (p *parser) parseSigExp() ast.SigExp {
	defer p.trace("parseSigExp")()
	e := p.parseAtSigExp()
	for {
		loc := p.tok.Span
		switch {
		case p.tok.Type == lexer.Where:
			p.next()
			p.expect(lexer.Type)
		case p.tok.Type == lexer.And && p.peek().Type == lexer.Type && isWhere(e):
			p.next()
			p.next()
		default:
			return e
		}
		wt := &ast.WhereTypeSigExp{Sig: e, TyVars: p.tyVarSeq(), Name: p.longIdent(), Loc: loc}
		p.expect(lexer.Equals)
		wt.Ty = p.parseTy()
		e = wt
	}
}

func isWhere(e ast.SigExp) bool {
	_, ok := e.(*ast.WhereTypeSigExp)
	return ok
}

func (p *parser) parseAtSigExp() ast.SigExp {
	start := p.tok.Span
	switch p.tok.Type {
	case lexer.Sig:
		p.next()
		spec := p.parseSpec()
		end := p.expect(lexer.End)
		return &ast.SigSigExp{Spec: spec, Loc: start.Add(end.Span)}
	case lexer.Ident:
		return &ast.NameSigExp{Name: p.ident(false)}
	}
	p.expected("signature expression")
	return nil
}

func (p *parser) parseSpec() ast.Spec {
	defer p.trace("parseSpec")()
	start := p.tok.Span
	var specs []ast.Spec
	seq := func() ast.Spec {
		if len(specs) == 1 {
			return specs[0]
		}
		loc := start
		if len(specs) > 0 {
			loc = specs[0].Span().Add(specs[len(specs)-1].Span())
		}
		return &ast.SeqSpec{Specs: specs, Loc: loc}
	}
	for {
		for p.got(lexer.Semicolon) {
		}
		loc := p.tok.Span
		switch p.tok.Type {
		case lexer.Val:
			p.next()
			var binds []ast.ValDesc
			for {
				p.got(lexer.Op)
				name := p.ident(true)
				p.expect(lexer.Colon)
				binds = append(binds, ast.ValDesc{Name: name, Ty: p.parseTy()})
				if !p.got(lexer.And) {
					break
				}
			}
			specs = append(specs, &ast.ValSpec{Binds: binds, Loc: loc.Add(binds[len(binds)-1].Ty.Span())})
		case lexer.Type, lexer.Eqtype:
			eq := p.tok.Type == lexer.Eqtype
			p.next()
			for {
				tyVars := p.tyVarSeq()
				name := p.ident(false)
				if !eq && p.got(lexer.Equals) {
					ty := p.parseTy()
					specs = append(specs, &ast.TypeAbbrevSpec{
						Binds: []ast.TyBind{{TyVars: tyVars, Name: name, Ty: ty}},
						Loc:   loc.Add(ty.Span()),
					})
				} else {
					specs = append(specs, &ast.TypeSpec{
						Eq:    eq,
						Binds: []ast.TyDesc{{TyVars: tyVars, Name: name}},
						Loc:   loc.Add(name.Loc),
					})
				}
				if !p.got(lexer.And) {
					break
				}
				loc = p.tok.Span
			}
		case lexer.Datatype:
			p.next()
			binds, name, orig := p.parseDatatypeBody()
			if binds == nil {
				specs = append(specs, &ast.DatatypeCopySpec{Name: name, Orig: orig, Loc: loc.Add(orig.Span())})
			} else {
				specs = append(specs, &ast.DatatypeSpec{Binds: binds, Loc: loc.Add(p.prevSpan(binds))})
			}
		case lexer.Exception:
			p.next()
			var binds []ast.ExDesc
			end := loc
			for {
				p.got(lexer.Op)
				ed := ast.ExDesc{Name: p.ident(false)}
				end = ed.Name.Loc
				if p.got(lexer.Of) {
					ed.Arg = p.parseTy()
					end = ed.Arg.Span()
				}
				binds = append(binds, ed)
				if !p.got(lexer.And) {
					break
				}
			}
			specs = append(specs, &ast.ExceptionSpec{Binds: binds, Loc: loc.Add(end)})
		case lexer.Structure:
			p.next()
			var binds []ast.StrDesc
			for {
				name := p.ident(false)
				p.expect(lexer.Colon)
				binds = append(binds, ast.StrDesc{Name: name, Sig: p.parseSigExp()})
				if !p.got(lexer.And) {
					break
				}
			}
			specs = append(specs, &ast.StructureSpec{Binds: binds, Loc: loc.Add(binds[len(binds)-1].Sig.Span())})
		case lexer.Include:
			p.next()
			sig := p.parseSigExp()
			specs = append(specs, &ast.IncludeSpec{Sig: sig, Loc: loc.Add(sig.Span())})
			for p.tok.Type == lexer.Ident && !isLong(p.tok) {
				name := p.ident(false)
				specs = append(specs, &ast.IncludeSpec{Sig: &ast.NameSigExp{Name: name}, Loc: name.Loc})
			}
		case lexer.Sharing:
			p.next()
			isType := p.got(lexer.Type)
			names := []ast.LongIdent{p.longIdent()}
			for p.got(lexer.Equals) {
				names = append(names, p.longIdent())
			}
			sh := &ast.SharingSpec{Spec: seq(), Type: isType, Names: names, Loc: loc.Add(names[len(names)-1].Span())}
			specs = []ast.Spec{sh}
		default:
			return seq()
		}
	}
}

func (p *parser) parseSignatureDec() ast.TopDec {
	defer p.trace("parseSignatureDec")()
	start := p.tok.Span
	p.next()
	var binds []ast.SigBind
	for {
		name := p.ident(false)
		p.expect(lexer.Equals)
		binds = append(binds, ast.SigBind{Name: name, Sig: p.parseSigExp()})
		if !p.got(lexer.And) {
			break
		}
	}
	return &ast.SignatureDec{Binds: binds, Loc: start.Add(binds[len(binds)-1].Sig.Span())}
}

func (p *parser) parseFunctorDec() ast.TopDec {
	defer p.trace("parseFunctorDec")()
	start := p.tok.Span
	p.next()
	var binds []ast.FunctorBind
	for {
		fb := ast.FunctorBind{Name: p.ident(false)}
		open := p.expect(lexer.LeftParen)
		if p.tok.Type == lexer.Ident && p.peek().Type == lexer.Colon {
			fb.Param = p.ident(false)
			p.expect(lexer.Colon)
			fb.ParamSig = p.parseSigExp()
		} else {
			spec := p.parseSpec()
			fb.ParamSig = &ast.SigSigExp{Spec: spec, Loc: open.Span.Add(spec.Span())}
		}
		p.expect(lexer.RightParen)
		var resSig ast.SigExp
		opaque := false
		resLoc := p.tok.Span
		switch {
		case p.got(lexer.Colon):
			resSig = p.parseSigExp()
		case p.got(lexer.ColonGt):
			resSig = p.parseSigExp()
			opaque = true
		}
		p.expect(lexer.Equals)
		fb.Body = p.parseStrExp()
		if resSig != nil {
			fb.Body = &ast.AscribeStrExp{Exp: fb.Body, Sig: resSig, Opaque: opaque, Loc: resLoc}
		}
		binds = append(binds, fb)
		if !p.got(lexer.And) {
			break
		}
	}
	return &ast.FunctorDec{Binds: binds, Loc: start.Add(binds[len(binds)-1].Body.Span())}
}
