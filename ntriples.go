package rdfkit

import "strings"

// NTriplesCodec serializes one triple per line in canonical N-Triples
// form. Decoding reuses the Turtle parser, of which N-Triples is a
// syntactic subset.
type NTriplesCodec struct{}

// MimeTypes returns the N-Triples MIME types.
func (c *NTriplesCodec) MimeTypes() []string {
	return []string{"application/n-triples", "text/plain"}
}

// Decode parses an N-Triples document.
func (c *NTriplesCodec) Decode(text string, documentURL string) (*Graph, error) {
	return ParseTurtle(text, documentURL, nil)
}

// Encode writes each triple on its own line, without abbreviations.
func (c *NTriplesCodec) Encode(g *Graph, baseURI string) (string, error) {
	var b strings.Builder
	for _, t := range g.Triples() {
		if res, ok := t.Subject.(*Resource); ok {
			if err := checkIRIWritable(res.URI); err != nil {
				return "", err
			}
		}
		if res, ok := t.Predicate.(*Resource); ok {
			if err := checkIRIWritable(res.URI); err != nil {
				return "", err
			}
		}
		if res, ok := t.Object.(*Resource); ok {
			if err := checkIRIWritable(res.URI); err != nil {
				return "", err
			}
		}
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// CanParse sniffs for the line-based <s> <p> o . shape: IRI or blank
// subjects only, no directives.
func (c *NTriplesCodec) CanParse(text string) bool {
	rest := skipWhitespaceAndComments(text)
	if rest == "" {
		return false
	}
	if !strings.HasPrefix(rest, "<") && !strings.HasPrefix(rest, "_:") {
		return false
	}
	line := rest
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.HasSuffix(strings.TrimRight(line, " \t\r"), ".")
}
