package rdfkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, text string, base string) *Graph {
	t.Helper()
	g, err := ParseTurtle(text, base, nil)
	assert.NoError(t, err)
	return g
}

func TestParseEmptyDocument(t *testing.T) {
	g := mustParse(t, "", "")
	assert.Equal(t, 0, g.Len())

	g = mustParse(t, "   \n# just a comment\n", "")
	assert.Equal(t, 0, g.Len())
}

func TestParsePrefixAndSimpleTriple(t *testing.T) {
	g := mustParse(t, "@prefix ex: <http://example.org/> .\nex:a ex:b \"c\" .", "")
	assert.Equal(t, 1, g.Len())
	triple := g.One(nil, nil, nil)
	assert.True(t, triple.Subject.Equal(NewResourceUnsafe("http://example.org/a")))
	assert.True(t, triple.Predicate.Equal(NewResourceUnsafe("http://example.org/b")))
	assert.True(t, triple.Object.Equal(NewLiteralWithDatatype("c", XSDString)))
}

func TestParseCollection(t *testing.T) {
	g := mustParse(t, "<s> <p> (\"x\" \"y\") .", "http://ex/")
	assert.Equal(t, 5, g.Len())

	s := NewResourceUnsafe("http://ex/s")
	p := NewResourceUnsafe("http://ex/p")
	head := g.One(s, p, nil)
	assert.NotNil(t, head)
	b1, ok := head.Object.(*BlankNode)
	assert.True(t, ok)

	first := g.One(b1, RDFFirst, nil)
	assert.NotNil(t, first)
	assert.True(t, first.Object.Equal(NewLiteral("x")))

	rest := g.One(b1, RDFRest, nil)
	assert.NotNil(t, rest)
	b2, ok := rest.Object.(*BlankNode)
	assert.True(t, ok)

	assert.True(t, g.One(b2, RDFFirst, nil).Object.Equal(NewLiteral("y")))
	assert.True(t, g.One(b2, RDFRest, nil).Object.Equal(RDFNil))
}

func TestParseEmptyCollection(t *testing.T) {
	g := mustParse(t, "<s> <p> () .", "http://ex/")
	assert.Equal(t, 1, g.Len())
	triple := g.One(nil, nil, nil)
	assert.True(t, triple.Object.Equal(RDFNil))
}

func TestParseBlankNodePropertyList(t *testing.T) {
	g := mustParse(t, "<s> <p> [ <q> \"v\" ] .", "http://ex/")
	assert.Equal(t, 2, g.Len())

	outer := g.One(NewResourceUnsafe("http://ex/s"), nil, nil)
	assert.NotNil(t, outer)
	b, ok := outer.Object.(*BlankNode)
	assert.True(t, ok)

	inner := g.One(b, NewResourceUnsafe("http://ex/q"), nil)
	assert.NotNil(t, inner)
	assert.True(t, inner.Object.Equal(NewLiteral("v")))
}

func TestParsePropertyListAsSubject(t *testing.T) {
	g := mustParse(t, "[ <p> \"v\" ] <q> \"w\" .", "http://ex/")
	assert.Equal(t, 2, g.Len())

	g = mustParse(t, "[ <p> \"v\" ] .", "http://ex/")
	assert.Equal(t, 1, g.Len())
}

func TestParseBlankNodeIdentity(t *testing.T) {
	g := mustParse(t, "_:x <p> \"a\" .\n_:x <p> \"b\" .\n_:y <p> \"c\" .", "http://ex/")
	assert.Equal(t, 3, g.Len())

	a := g.One(nil, nil, NewLiteral("a")).Subject
	b := g.One(nil, nil, NewLiteral("b")).Subject
	c := g.One(nil, nil, NewLiteral("c")).Subject
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestParseAnonNodesNeverAlias(t *testing.T) {
	g := mustParse(t, "<s> <p> [], [] .", "http://ex/")
	assert.Equal(t, 2, g.Len())
	triples := g.All(NewResourceUnsafe("http://ex/s"), nil, nil)
	assert.Equal(t, 2, len(triples))
	assert.False(t, triples[0].Object.Equal(triples[1].Object))
}

func TestParseSemicolonsAndCommas(t *testing.T) {
	g := mustParse(t, "<s> <p> \"a\", \"b\" ; <q> \"c\" ; .", "http://ex/")
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, len(g.All(nil, NewResourceUnsafe("http://ex/p"), nil)))
	assert.Equal(t, 1, len(g.All(nil, NewResourceUnsafe("http://ex/q"), nil)))
}

func TestParseAKeyword(t *testing.T) {
	g := mustParse(t, "<s> a <T> .", "http://ex/")
	triple := g.One(nil, nil, nil)
	assert.True(t, triple.Predicate.Equal(RDFType))

	_, err := ParseTurtle("a <p> <o> .", "http://ex/", nil)
	assert.Error(t, err)
}

func TestParseNumericAndBooleanLiterals(t *testing.T) {
	g := mustParse(t, "<s> <p> 42, -3.14, 1.0e6, true, false .", "http://ex/")
	assert.Equal(t, 5, g.Len())
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("42", XSDInteger)))
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("-3.14", XSDDecimal)))
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("1.0e6", XSDDouble)))
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("true", XSDBoolean)))
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("false", XSDBoolean)))
}

func TestParseDecimalKeepsLexicalForm(t *testing.T) {
	g := mustParse(t, "<s> <p> 0.0 .", "http://ex/")
	lit := g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, "0.0", lit.Value)
	assert.True(t, lit.Datatype.Equal(XSDDecimal))
}

func TestParseTypedAndLangLiterals(t *testing.T) {
	g := mustParse(t, "@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .\n<s> <p> \"5\"^^xsd:int, \"hi\"@en, \"x\"^^<http://ex/dt> .", "http://ex/")
	assert.Equal(t, 3, g.Len())
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("5", NewResourceUnsafe("http://www.w3.org/2001/XMLSchema#int"))))
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithLanguage("hi", "en")))
	assert.NotNil(t, g.One(nil, nil, NewLiteralWithDatatype("x", NewResourceUnsafe("http://ex/dt"))))
}

func TestParseLangTagWithSubtag(t *testing.T) {
	g := mustParse(t, "<s> <p> \"color\"@en-US .", "http://ex/")
	lit := g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, "en-US", lit.Language)
}

func TestParseTripleQuotedStrings(t *testing.T) {
	g := mustParse(t, "<s> <p> \"\"\"line one\nline \"two\" 'and' more\"\"\" .", "http://ex/")
	lit := g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, "line one\nline \"two\" 'and' more", lit.Value)

	g = mustParse(t, "<s> <p> '''a\nb''' .", "http://ex/")
	lit = g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, "a\nb", lit.Value)
}

func TestParseStringEscapes(t *testing.T) {
	g := mustParse(t, `<s> <p> "t\tn\nq\"b\\e" .`, "http://ex/")
	lit := g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, "t\tn\nq\"b\\e", lit.Value)

	g = mustParse(t, `<s> <p> "é and \U0001F600" .`, "http://ex/")
	lit = g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, "é and \U0001F600", lit.Value)
}

func TestParseInvalidEscapesPreservedVerbatim(t *testing.T) {
	g := mustParse(t, `<s> <p> "\uXYZW" .`, "http://ex/")
	lit := g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, `\uXYZW`, lit.Value)

	g = mustParse(t, `<s> <p> "\q" .`, "http://ex/")
	lit = g.One(nil, nil, nil).Object.(*Literal)
	assert.Equal(t, `\q`, lit.Value)
}

func TestParseRelativeIRIsResolve(t *testing.T) {
	g := mustParse(t, "<a> <b> <../c> .", "http://ex/dir/doc")
	triple := g.One(nil, nil, nil)
	assert.True(t, triple.Subject.Equal(NewResourceUnsafe("http://ex/dir/a")))
	assert.True(t, triple.Object.Equal(NewResourceUnsafe("http://ex/c")))
}

func TestParseRelativeIRIWithoutBase(t *testing.T) {
	_, err := ParseTurtle("<a> <b> <c> .", "", nil)
	assert.Error(t, err)
	iriErr, ok := err.(*InvalidIRIError)
	assert.True(t, ok)
	assert.Equal(t, "Cannot use relative IRI without a base URI", iriErr.Reason)
}

func TestParseBaseDirectiveOverrides(t *testing.T) {
	doc := "@base <http://one/> .\n<a> <p> <b> .\n@base <http://two/> .\n<c> <p> <d> ."
	g := mustParse(t, doc, "http://zero/")
	assert.NotNil(t, g.One(NewResourceUnsafe("http://one/a"), nil, nil))
	assert.NotNil(t, g.One(NewResourceUnsafe("http://two/c"), nil, nil))
}

func TestParsePrefixIRIResolvesAgainstBase(t *testing.T) {
	doc := "@base <http://ex/> .\n@prefix e: <ns/> .\ne:a e:b e:c ."
	g := mustParse(t, doc, "")
	assert.NotNil(t, g.One(NewResourceUnsafe("http://ex/ns/a"), nil, nil))
}

func TestParseUnknownPrefix(t *testing.T) {
	_, err := ParseTurtle("ex:a ex:b ex:c .", "", nil)
	assert.Error(t, err)
	prefErr, ok := err.(*UnknownPrefixError)
	assert.True(t, ok)
	assert.Equal(t, "ex", prefErr.Prefix)
}

func TestParseSeedNamespaceMappings(t *testing.T) {
	opts := &ParserOptions{NamespaceMappings: map[string]string{"ex": "http://seeded/"}}
	g, err := ParseTurtle("ex:a ex:b ex:c .", "", opts)
	assert.NoError(t, err)
	assert.NotNil(t, g.One(NewResourceUnsafe("http://seeded/a"), nil, nil))
}

func TestParseAutoAddCommonPrefixes(t *testing.T) {
	doc := "<s> a foaf:Person ."

	_, err := ParseTurtle(doc, "http://ex/", nil)
	assert.Error(t, err)

	opts := &ParserOptions{Flags: ParsingFlags{AutoAddCommonPrefixes: true}}
	g, err := ParseTurtle(doc, "http://ex/", opts)
	assert.NoError(t, err)
	assert.NotNil(t, g.One(nil, nil, NewResourceUnsafe("http://xmlns.com/foaf/0.1/Person")))
}

func TestParseSparqlStyleDirectives(t *testing.T) {
	doc := "prefix ex: <http://ex/> ex:a ex:b \"c\" ."

	_, err := ParseTurtle(doc, "", nil)
	assert.Error(t, err)

	opts := &ParserOptions{Flags: ParsingFlags{AllowPrefixWithoutAtSign: true}}
	_, err = ParseTurtle(doc, "", opts)
	assert.Error(t, err)

	opts = &ParserOptions{Flags: ParsingFlags{
		AllowPrefixWithoutAtSign:   true,
		AllowMissingDotAfterPrefix: true,
	}}
	g, err := ParseTurtle(doc, "", opts)
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.NotNil(t, g.One(NewResourceUnsafe("http://ex/a"), NewResourceUnsafe("http://ex/b"), NewLiteral("c")))
}

func TestParseSparqlBaseDirective(t *testing.T) {
	opts := &ParserOptions{Flags: ParsingFlags{
		AllowPrefixWithoutAtSign:   true,
		AllowMissingDotAfterPrefix: true,
	}}
	g, err := ParseTurtle("BASE <http://ex/> <a> <b> <c> .", "", opts)
	assert.NoError(t, err)
	assert.NotNil(t, g.One(NewResourceUnsafe("http://ex/a"), nil, nil))
}

func TestParseMissingFinalDot(t *testing.T) {
	doc := "<s> <p> <o>"

	_, err := ParseTurtle(doc, "http://ex/", nil)
	assert.Error(t, err)

	opts := &ParserOptions{Flags: ParsingFlags{AllowMissingFinalDot: true}}
	g, err := ParseTurtle(doc, "http://ex/", opts)
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

func TestParseIdentifiersWithoutColon(t *testing.T) {
	doc := "@prefix ex: <http://ex/> .\nex:s ex:p name ."

	_, err := ParseTurtle(doc, "http://base/", nil)
	assert.Error(t, err)

	opts := &ParserOptions{Flags: ParsingFlags{AllowIdentifiersWithoutColon: true}}
	g, err := ParseTurtle(doc, "http://base/", opts)
	assert.NoError(t, err)
	assert.NotNil(t, g.One(nil, nil, NewResourceUnsafe("http://base/name")))

	// Without a base the identifier has nothing to resolve against.
	_, err = ParseTurtle(doc, "", opts)
	assert.Error(t, err)
}

func TestParseDigitInLocalName(t *testing.T) {
	doc := "@prefix ex: <http://ex/> .\nex:s ex:p ex:123abc ."

	_, err := ParseTurtle(doc, "", nil)
	assert.Error(t, err)

	opts := &ParserOptions{Flags: ParsingFlags{AllowDigitInLocalName: true}}
	g, err := ParseTurtle(doc, "", opts)
	assert.NoError(t, err)
	assert.NotNil(t, g.One(nil, nil, NewResourceUnsafe("http://ex/123abc")))
}

func TestParseErrorsCarryPosition(t *testing.T) {
	_, err := ParseTurtle("<s> <p>\n  ; .", "http://ex/", nil)
	assert.Error(t, err)
	synErr, ok := err.(*SyntaxError)
	assert.True(t, ok)
	assert.Equal(t, 2, synErr.Line)
}

func TestParseIRIWithWhitespaceRejected(t *testing.T) {
	_, err := ParseTurtle("<http://ex/a b> <http://ex/p> <http://ex/o> .", "", nil)
	assert.Error(t, err)
	assert.IsType(t, &InvalidIRIError{}, err)
}

func TestParseFatalErrorReturnsNoGraph(t *testing.T) {
	g, err := ParseTurtle("<http://ex/s> <http://ex/p> <http://ex/o> .\n<broken", "", nil)
	assert.Error(t, err)
	assert.Nil(t, g)
}

func TestParseCommentsEverywhere(t *testing.T) {
	doc := "# leading\n<s> <p> # mid\n  \"v\" . # trailing"
	g := mustParse(t, doc, "http://ex/")
	assert.Equal(t, 1, g.Len())
}

func TestParseNestedStructures(t *testing.T) {
	doc := "<s> <p> [ <q> ( \"a\" [ <r> \"b\" ] ) ] ."
	g := mustParse(t, doc, "http://ex/")
	// (s p b1), (b1 q head), 2 chain links of 2 triples each, (inner r b).
	assert.Equal(t, 7, g.Len())
	assert.Equal(t, 2, len(g.All(nil, RDFFirst, nil)))
	assert.NotNil(t, g.One(nil, NewResourceUnsafe("http://ex/r"), NewLiteral("b")))
}
