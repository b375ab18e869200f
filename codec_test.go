package rdfkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanParseTurtleInputs(t *testing.T) {
	valid := []string{
		"@prefix ex: <http://ex/> .",
		"@base <http://ex/> .",
		"PREFIX ex: <http://ex/>",
		"prefix ex: <http://ex/>",
		"BASE <http://ex/>",
		"<http://ex/a> <http://ex/b> <http://ex/c> .",
		"_:b <http://ex/p> \"v\" .",
		"ex:a ex:b ex:c .",
		"  \n# a comment\n@prefix ex: <http://ex/> .",
	}
	for _, doc := range valid {
		assert.True(t, CanParse(doc), "should accept %q", doc)
	}

	invalid := []string{
		"",
		"   \n# only a comment",
		"<?xml version=\"1.0\"?><rdf:RDF/>",
		"<!DOCTYPE html><html></html>",
		"<html><body/></html>",
		"<rdf:RDF xmlns:rdf=\"...\">",
		"{ \"@id\": \"http://ex/a\" }",
		"[1, 2, 3]",
		"just some plain text",
	}
	for _, doc := range invalid {
		assert.False(t, CanParse(doc), "should reject %q", doc)
	}
}

func TestDetectFormat(t *testing.T) {
	c, ok := DetectFormat("@prefix ex: <http://ex/> .")
	assert.True(t, ok)
	assert.Equal(t, "text/turtle", c.MimeTypes()[0])

	c, ok = DetectFormat("{ \"@id\": \"http://ex/a\" }")
	assert.True(t, ok)
	assert.Equal(t, "application/ld+json", c.MimeTypes()[0])

	_, ok = DetectFormat("plain text, no RDF here")
	assert.False(t, ok)
}

func TestDecodeDispatch(t *testing.T) {
	g, err := Decode("<http://ex/a> <http://ex/b> \"c\" .", "text/turtle", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	g, err = Decode("<http://ex/a> <http://ex/b> \"c\" .", "application/n-triples", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	// Content type parameters are ignored.
	g, err = Decode("<http://ex/a> <http://ex/b> \"c\" .", "text/turtle; charset=utf-8", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	_, err = Decode("anything", "application/pdf", "")
	assert.Error(t, err)
}

func TestDecodeAutoDetect(t *testing.T) {
	g, err := Decode("@prefix ex: <http://ex/> .\nex:a ex:b \"c\" .", "", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	_, err = Decode("no rdf in sight", "", "")
	assert.Error(t, err)
}

func TestNTriplesEncode(t *testing.T) {
	g := NewGraph()
	g.AddTriple(NewResourceUnsafe("http://ex/a"), NewResourceUnsafe("http://ex/b"), NewLiteral("c"))
	g.AddTriple(NewResourceUnsafe("http://ex/a"), NewResourceUnsafe("http://ex/b"), NewLiteralWithLanguage("d", "en"))

	out, err := Encode(g, "application/n-triples", "")
	assert.NoError(t, err)
	assert.Equal(t, "<http://ex/a> <http://ex/b> \"c\" .\n<http://ex/a> <http://ex/b> \"d\"@en .\n", out)
}

func TestNTriplesRoundTrip(t *testing.T) {
	g := NewGraph()
	g.AddTriple(NewResourceUnsafe("http://ex/a"), NewResourceUnsafe("http://ex/b"), NewLiteral("line\nbreak"))

	out, err := Encode(g, "application/n-triples", "")
	assert.NoError(t, err)

	g2, err := Decode(out, "application/n-triples", "")
	assert.NoError(t, err)
	assert.True(t, g.Equal(g2))
}

func TestNTriplesEncodeRejectsBadIRI(t *testing.T) {
	g := NewGraph()
	g.AddTriple(NewResourceUnsafe("http://ex/a b"), NewResourceUnsafe("http://ex/p"), NewLiteral("v"))

	_, err := Encode(g, "application/n-triples", "")
	assert.Error(t, err)
}

func TestTurtleCodecCarriesOptions(t *testing.T) {
	codec := &TurtleCodec{
		ParserOptions: &ParserOptions{Flags: ParsingFlags{AllowMissingFinalDot: true}},
	}
	g, err := codec.Decode("<http://ex/a> <http://ex/b> \"c\"", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

func TestMimeForExtension(t *testing.T) {
	assert.Equal(t, "text/turtle", mimeForExtension("data.ttl"))
	assert.Equal(t, "application/n-triples", mimeForExtension("data.nt"))
	assert.Equal(t, "application/ld+json", mimeForExtension("data.jsonld"))
	assert.Equal(t, "text/turtle", mimeForExtension("data.unknown"))
}
