package rdfkit

import (
	"encoding/json"

	jsonld "github.com/linkeddata/gojsonld"
)

// JSONLDCodec parses and serializes application/ld+json documents.
type JSONLDCodec struct{}

// MimeTypes returns the JSON-LD MIME types.
func (c *JSONLDCodec) MimeTypes() []string {
	return []string{"application/ld+json", "application/json"}
}

// Decode expands a JSON-LD document to RDF and collects its triples.
func (c *JSONLDCodec) Decode(text string, documentURL string) (*Graph, error) {
	jsonData, err := jsonld.ReadJSON([]byte(text))
	if err != nil {
		return nil, err
	}
	options := &jsonld.Options{}
	options.Base = documentURL
	options.ProduceGeneralizedRdf = false
	dataSet, err := jsonld.ToRDF(jsonData, options)
	if err != nil {
		return nil, err
	}
	g := NewGraph(documentURL)
	for t := range dataSet.IterTriples() {
		g.AddTriple(jterm2term(t.Subject), jterm2term(t.Predicate), jterm2term(t.Object))
	}
	return g, nil
}

// Encode writes the graph as an expanded JSON-LD document.
func (c *JSONLDCodec) Encode(g *Graph, baseURI string) (string, error) {
	r := []map[string]interface{}{}
	for _, elt := range g.Triples() {
		one := map[string]interface{}{
			"@id": subjectID(elt.Subject),
		}
		switch t := elt.Object.(type) {
		case *Resource:
			one[elt.Predicate.RawValue()] = []map[string]string{
				{
					"@id": t.URI,
				},
			}
		case *BlankNode:
			one[elt.Predicate.RawValue()] = []map[string]string{
				{
					"@id": t.String(),
				},
			}
		case *Literal:
			v := map[string]string{
				"@value": t.Value,
			}
			if len(t.Language) > 0 {
				v["@language"] = t.Language
			} else if t.Datatype != nil && !t.Datatype.Equal(XSDString) {
				v["@type"] = t.Datatype.RawValue()
			}
			one[elt.Predicate.RawValue()] = []map[string]string{v}
		}
		r = append(r, one)
	}
	tree, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(tree), nil
}

func subjectID(s Term) string {
	if b, ok := s.(*BlankNode); ok {
		return b.String()
	}
	return s.RawValue()
}

// CanParse sniffs for a JSON document.
func (c *JSONLDCodec) CanParse(text string) bool {
	rest := skipWhitespaceAndComments(text)
	return len(rest) > 0 && (rest[0] == '{' || rest[0] == '[')
}

func jterm2term(term jsonld.Term) Term {
	switch term := term.(type) {
	case *jsonld.BlankNode:
		return NewBlankNode(term.RawValue())
	case *jsonld.Literal:
		if len(term.Language) > 0 {
			return NewLiteralWithLanguage(term.Value, term.Language)
		}
		if term.Datatype != nil && len(term.Datatype.String()) > 0 {
			return NewLiteralWithDatatype(term.Value, NewResourceUnsafe(term.Datatype.RawValue()))
		}
		return NewLiteral(term.Value)
	case *jsonld.Resource:
		return NewResourceUnsafe(term.RawValue())
	}
	return nil
}

func term2jterm(term Term) jsonld.Term {
	switch term := term.(type) {
	case *BlankNode:
		return jsonld.NewBlankNode(term.RawValue())
	case *Literal:
		if len(term.Language) > 0 {
			return jsonld.NewLiteralWithLanguage(term.Value, term.Language)
		}
		if term.Datatype != nil && len(term.Datatype.String()) > 0 {
			return jsonld.NewLiteralWithDatatype(term.Value, jsonld.NewResource(debrack(term.Datatype.String())))
		}
		return jsonld.NewLiteral(term.Value)
	case *Resource:
		return jsonld.NewResource(term.RawValue())
	}
	return nil
}
