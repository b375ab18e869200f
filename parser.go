package rdfkit

import (
	"fmt"
	"strings"
)

// ParsingFlags relax individual rules of the Turtle grammar. All flags
// default to off, which yields a strict W3C Turtle 1.1 parser.
type ParsingFlags struct {
	// AllowIdentifiersWithoutColon treats a bare identifier as if it were
	// written in the empty prefix; a base URI is then required.
	AllowIdentifiersWithoutColon bool

	// AllowDigitInLocalName permits a leading digit in PN_LOCAL.
	AllowDigitInLocalName bool

	// AllowMissingDotAfterPrefix forgives a missing '.' terminator on a
	// @prefix/@base/PREFIX/BASE directive when the next token clearly
	// starts a new production.
	AllowMissingDotAfterPrefix bool

	// AllowMissingFinalDot forgives a missing final '.' at end of input.
	AllowMissingFinalDot bool

	// AllowPrefixWithoutAtSign accepts SPARQL-style PREFIX and BASE
	// directives, case-insensitively.
	AllowPrefixWithoutAtSign bool

	// AutoAddCommonPrefixes binds a well-known prefix on first use when
	// the document forgot to declare it.
	AutoAddCommonPrefixes bool
}

// ParserOptions configures a Turtle decoding session.
type ParserOptions struct {
	Flags ParsingFlags

	// NamespaceMappings seeds the prefix table; it is consulted before
	// the well-known table.
	NamespaceMappings map[string]string
}

// turtleParser holds the state of one decoding session: the base IRI, the
// prefix table and the blank node label map. All of it is discarded when
// the session ends.
type turtleParser struct {
	lex  *lexer
	opts ParserOptions

	base   string
	ns     map[string]string
	bnodes map[string]Term
	bnodeN int

	graph *Graph

	tok      token
	havePeek bool
}

// ParseTurtle parses a complete Turtle document into a new graph. The
// documentURL, when non-empty, is the base against which relative IRIs
// resolve until a @base directive overrides it. The first error is fatal:
// no partial graph is returned.
func ParseTurtle(text string, documentURL string, opts *ParserOptions) (*Graph, error) {
	var o ParserOptions
	if opts != nil {
		o = *opts
	}
	p := &turtleParser{
		lex:    newLexer(text, o.Flags),
		opts:   o,
		base:   documentURL,
		ns:     make(map[string]string),
		bnodes: make(map[string]Term),
		graph:  NewGraph(documentURL),
	}
	for prefix, ns := range o.NamespaceMappings {
		p.ns[prefix] = ns
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokenEOF {
			return p.graph, nil
		}
		if err := p.parseStatement(); err != nil {
			return nil, err
		}
	}
}

func (p *turtleParser) peek() (token, error) {
	if !p.havePeek {
		tok, err := p.lex.nextToken()
		if err != nil {
			return token{}, err
		}
		p.tok = tok
		p.havePeek = true
	}
	return p.tok, nil
}

func (p *turtleParser) next() (token, error) {
	tok, err := p.peek()
	p.havePeek = false
	return tok, err
}

func (p *turtleParser) errorf(tok token, format string, args ...interface{}) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: tok.line, Col: tok.col}
}

func (p *turtleParser) freshBNode() Term {
	p.bnodeN++
	return NewBlankNode(fmt.Sprintf("b%d", p.bnodeN))
}

// labeledBNode returns the session's node for a source label, allocating
// one on first sight so that _:x at any two positions is the same node.
func (p *turtleParser) labeledBNode(label string) Term {
	if node, ok := p.bnodes[label]; ok {
		return node
	}
	node := p.freshBNode()
	p.bnodes[label] = node
	return node
}

func (p *turtleParser) parseStatement() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	switch tok.typ {
	case tokenPrefixDecl:
		return p.parsePrefixDirective()
	case tokenBaseDecl:
		return p.parseBaseDirective()
	case tokenIdentifier:
		if p.opts.Flags.AllowPrefixWithoutAtSign {
			if strings.EqualFold(tok.text, "prefix") {
				return p.parsePrefixDirective()
			}
			if strings.EqualFold(tok.text, "base") {
				return p.parseBaseDirective()
			}
		}
	}
	return p.parseTriples()
}

func (p *turtleParser) parsePrefixDirective() error {
	directive, err := p.next()
	if err != nil {
		return err
	}
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.typ != tokenPrefixedName {
		return p.errorf(tok, "expected prefix label in @prefix directive, got %v", tok.typ)
	}
	colon := strings.IndexByte(tok.text, ':')
	prefix, local := tok.text[:colon], tok.text[colon+1:]
	if local != "" {
		return p.errorf(tok, "unexpected local name %q in @prefix directive", local)
	}
	iriTok, err := p.next()
	if err != nil {
		return err
	}
	if iriTok.typ != tokenIRIRef {
		return p.errorf(iriTok, "expected namespace IRI in @prefix directive, got %v", iriTok.typ)
	}
	ns, err := p.resolveRef(iriTok)
	if err != nil {
		return err
	}
	p.ns[prefix] = ns
	return p.parseDirectiveEnd(directive)
}

func (p *turtleParser) parseBaseDirective() error {
	directive, err := p.next()
	if err != nil {
		return err
	}
	iriTok, err := p.next()
	if err != nil {
		return err
	}
	if iriTok.typ != tokenIRIRef {
		return p.errorf(iriTok, "expected base IRI in @base directive, got %v", iriTok.typ)
	}
	// A later @base overrides the former (or the constructor-supplied
	// document URL) from this point forward.
	base, err := p.resolveRef(iriTok)
	if err != nil {
		return err
	}
	p.base = base
	return p.parseDirectiveEnd(directive)
}

// parseDirectiveEnd consumes the '.' terminating a directive, or forgives
// its absence under AllowMissingDotAfterPrefix when the next token starts
// a new production.
func (p *turtleParser) parseDirectiveEnd(directive token) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.typ == tokenDot {
		_, err = p.next()
		return err
	}
	if p.opts.Flags.AllowMissingDotAfterPrefix && startsProduction(tok.typ) {
		return nil
	}
	return p.errorf(tok, "expected '.' after directive, got %v", tok.typ)
}

func startsProduction(typ tokenType) bool {
	switch typ {
	case tokenIRIRef, tokenPrefixedName, tokenIdentifier, tokenBNodeLabel,
		tokenAnon, tokenLBracket, tokenLParen, tokenPrefixDecl, tokenBaseDecl, tokenEOF:
		return true
	}
	return false
}

func (p *turtleParser) parseTriples() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}

	var subject Term
	switch tok.typ {
	case tokenLBracket:
		if _, err := p.next(); err != nil {
			return err
		}
		subject = p.freshBNode()
		if err := p.parsePredicateObjectList(subject); err != nil {
			return err
		}
		end, err := p.next()
		if err != nil {
			return err
		}
		if end.typ != tokenRBracket {
			return p.errorf(end, "expected ']' closing blank node property list, got %v", end.typ)
		}
		// A property list subject may stand alone as a full statement.
		if dot, err := p.peek(); err != nil {
			return err
		} else if dot.typ == tokenDot {
			_, err := p.next()
			return err
		}
	case tokenLParen:
		subject, err = p.parseCollection()
		if err != nil {
			return err
		}
	default:
		subject, err = p.parseSubjectTerm()
		if err != nil {
			return err
		}
	}

	if err := p.parsePredicateObjectList(subject); err != nil {
		return err
	}

	end, err := p.next()
	if err != nil {
		return err
	}
	if end.typ == tokenDot {
		return nil
	}
	if end.typ == tokenEOF && p.opts.Flags.AllowMissingFinalDot {
		return nil
	}
	return p.errorf(end, "expected '.' terminating statement, got %v", end.typ)
}

func (p *turtleParser) parseSubjectTerm() (Term, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.typ {
	case tokenIRIRef:
		iri, err := p.resolveRef(tok)
		if err != nil {
			return nil, err
		}
		return NewResourceUnsafe(iri), nil
	case tokenPrefixedName:
		return p.expandPrefixedName(tok)
	case tokenIdentifier:
		return p.expandIdentifier(tok)
	case tokenBNodeLabel:
		return p.labeledBNode(tok.text), nil
	case tokenAnon:
		return p.freshBNode(), nil
	case tokenA:
		return nil, p.errorf(tok, "'a' is only legal as a predicate")
	case tokenString, tokenInteger, tokenDecimal, tokenDouble, tokenBoolean:
		return nil, p.errorf(tok, "a literal cannot be used as a subject")
	}
	return nil, p.errorf(tok, "unexpected %v as subject", tok.typ)
}

func (p *turtleParser) parseVerb() (Term, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.typ {
	case tokenA:
		return RDFType, nil
	case tokenIRIRef:
		iri, err := p.resolveRef(tok)
		if err != nil {
			return nil, err
		}
		return NewResourceUnsafe(iri), nil
	case tokenPrefixedName:
		return p.expandPrefixedName(tok)
	case tokenIdentifier:
		return p.expandIdentifier(tok)
	}
	return nil, p.errorf(tok, "unexpected %v as predicate", tok.typ)
}

func (p *turtleParser) parsePredicateObjectList(subject Term) error {
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return err
		}
		if err := p.parseObjectInto(subject, verb); err != nil {
			return err
		}
		for {
			tok, err := p.peek()
			if err != nil {
				return err
			}
			if tok.typ != tokenComma {
				break
			}
			if _, err := p.next(); err != nil {
				return err
			}
			if err := p.parseObjectInto(subject, verb); err != nil {
				return err
			}
		}
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.typ != tokenSemicolon {
			return nil
		}
		for tok.typ == tokenSemicolon {
			if _, err := p.next(); err != nil {
				return err
			}
			tok, err = p.peek()
			if err != nil {
				return err
			}
		}
		// A trailing semicolon before the statement end is legal.
		if tok.typ == tokenDot || tok.typ == tokenRBracket || tok.typ == tokenEOF {
			return nil
		}
	}
}

// parseObjectInto parses one object for the given subject and predicate
// and appends the resulting triples. Property lists and collections emit
// the containing triple first, then their own triples, so document order
// is preserved.
func (p *turtleParser) parseObjectInto(subject Term, predicate Term) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	switch tok.typ {
	case tokenLBracket:
		if _, err := p.next(); err != nil {
			return err
		}
		node := p.freshBNode()
		p.graph.AddTriple(subject, predicate, node)
		if err := p.parsePredicateObjectList(node); err != nil {
			return err
		}
		end, err := p.next()
		if err != nil {
			return err
		}
		if end.typ != tokenRBracket {
			return p.errorf(end, "expected ']' closing blank node property list, got %v", end.typ)
		}
		return nil
	case tokenLParen:
		if _, err := p.next(); err != nil {
			return err
		}
		peeked, err := p.peek()
		if err != nil {
			return err
		}
		if peeked.typ == tokenRParen {
			if _, err := p.next(); err != nil {
				return err
			}
			p.graph.AddTriple(subject, predicate, RDFNil)
			return nil
		}
		head := p.freshBNode()
		p.graph.AddTriple(subject, predicate, head)
		return p.parseCollectionChain(head)
	}
	object, err := p.parseObjectTerm()
	if err != nil {
		return err
	}
	p.graph.AddTriple(subject, predicate, object)
	return nil
}

// parseCollection parses '( ... )' in subject position and returns its
// head: rdf:nil for the empty collection, else a fresh blank node whose
// rdf:first/rdf:rest chain has been emitted.
func (p *turtleParser) parseCollection() (Term, error) {
	if _, err := p.next(); err != nil { // consume '('
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.typ == tokenRParen {
		_, err := p.next()
		return RDFNil, err
	}
	head := p.freshBNode()
	if err := p.parseCollectionChain(head); err != nil {
		return nil, err
	}
	return head, nil
}

// parseCollectionChain emits the rdf:first/rdf:rest triples for the items
// following an already consumed '(' with at least one item pending.
func (p *turtleParser) parseCollectionChain(head Term) error {
	current := head
	for {
		if err := p.parseObjectInto(current, RDFFirst); err != nil {
			return err
		}
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.typ == tokenRParen {
			if _, err := p.next(); err != nil {
				return err
			}
			p.graph.AddTriple(current, RDFRest, RDFNil)
			return nil
		}
		if tok.typ == tokenEOF {
			return p.errorf(tok, "unterminated collection")
		}
		next := p.freshBNode()
		p.graph.AddTriple(current, RDFRest, next)
		current = next
	}
}

// parseObjectTerm parses a simple (non-bracketed) object: an IRI, a blank
// node label, or a literal.
func (p *turtleParser) parseObjectTerm() (Term, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.typ {
	case tokenIRIRef:
		iri, err := p.resolveRef(tok)
		if err != nil {
			return nil, err
		}
		return NewResourceUnsafe(iri), nil
	case tokenPrefixedName:
		return p.expandPrefixedName(tok)
	case tokenIdentifier:
		return p.expandIdentifier(tok)
	case tokenBNodeLabel:
		return p.labeledBNode(tok.text), nil
	case tokenAnon:
		return p.freshBNode(), nil
	case tokenString:
		return p.parseLiteralRest(tok)
	case tokenInteger:
		return NewLiteralWithDatatype(tok.text, XSDInteger), nil
	case tokenDecimal:
		return NewLiteralWithDatatype(tok.text, XSDDecimal), nil
	case tokenDouble:
		return NewLiteralWithDatatype(tok.text, XSDDouble), nil
	case tokenBoolean:
		return NewLiteralWithDatatype(tok.text, XSDBoolean), nil
	}
	return nil, p.errorf(tok, "unexpected %v as object", tok.typ)
}

// parseLiteralRest attaches an optional language tag or datatype to a
// just-consumed string token.
func (p *turtleParser) parseLiteralRest(str token) (Term, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.typ {
	case tokenLangTag:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		return NewLiteralWithLanguage(str.text, tok.text), nil
	case tokenDatatypeMarker:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		dtTok, err := p.next()
		if err != nil {
			return nil, err
		}
		var datatype Term
		switch dtTok.typ {
		case tokenIRIRef:
			iri, err := p.resolveRef(dtTok)
			if err != nil {
				return nil, err
			}
			datatype = NewResourceUnsafe(iri)
		case tokenPrefixedName:
			datatype, err = p.expandPrefixedName(dtTok)
			if err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(dtTok, "expected datatype IRI after '^^', got %v", dtTok.typ)
		}
		return NewLiteralWithDatatype(str.text, datatype), nil
	}
	return NewLiteral(str.text), nil
}

// resolveRef resolves an IRI reference token against the current base and
// validates the result.
func (p *turtleParser) resolveRef(tok token) (string, error) {
	ref := tok.text
	for _, r := range ref {
		switch {
		case r == ' ', r == '<', r == '"', r == '{', r == '}', r == '|', r == '^', r == '`', r < 0x20:
			return "", &InvalidIRIError{IRI: ref, Reason: fmt.Sprintf("disallowed character %q", r), Line: tok.line, Col: tok.col}
		}
	}
	if isAbsoluteIRI(ref) {
		return ref, nil
	}
	if p.base == "" {
		return "", &InvalidIRIError{IRI: ref, Reason: "Cannot use relative IRI without a base URI", Line: tok.line, Col: tok.col}
	}
	return ResolveIRI(ref, p.base)
}

// expandPrefixedName expands pfx:local using the session prefix table,
// falling back to the well-known table under AutoAddCommonPrefixes.
func (p *turtleParser) expandPrefixedName(tok token) (Term, error) {
	colon := strings.IndexByte(tok.text, ':')
	prefix, local := tok.text[:colon], tok.text[colon+1:]
	ns, ok := p.ns[prefix]
	if !ok {
		if p.opts.Flags.AutoAddCommonPrefixes {
			if known, found := WellKnownPrefix(prefix); found {
				p.ns[prefix] = known
				ns = known
				ok = true
			}
		}
	}
	if !ok {
		return nil, &UnknownPrefixError{Prefix: prefix, Line: tok.line, Col: tok.col}
	}
	return NewResourceUnsafe(ns + local), nil
}

// expandIdentifier handles a bare identifier under the
// AllowIdentifiersWithoutColon flag: it behaves as a name in the empty
// prefix and requires a base URI.
func (p *turtleParser) expandIdentifier(tok token) (Term, error) {
	if !p.opts.Flags.AllowIdentifiersWithoutColon {
		return nil, p.errorf(tok, "unexpected identifier %q; prefixed names require a colon", tok.text)
	}
	if ns, ok := p.ns[""]; ok {
		return NewResourceUnsafe(ns + tok.text), nil
	}
	if p.base == "" {
		return nil, &BaseIRIRequiredError{Ref: tok.text}
	}
	iri, err := ResolveIRI(tok.text, p.base)
	if err != nil {
		return nil, err
	}
	return NewResourceUnsafe(iri), nil
}
