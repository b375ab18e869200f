package rdfkit

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Codec is the uniform decode/encode surface every registered format
// implements. Decoders consume complete documents; no streaming.
type Codec interface {
	// Decode parses text into a new graph. The documentURL, when
	// non-empty, serves as the base for relative IRIs.
	Decode(text string, documentURL string) (*Graph, error)

	// Encode serializes a graph, relativizing against baseURI when the
	// format supports it.
	Encode(g *Graph, baseURI string) (string, error)

	// CanParse sniffs whether the input plausibly starts in this format.
	CanParse(text string) bool

	// MimeTypes returns the MIME types served, canonical first.
	MimeTypes() []string
}

var mimeCodecs = map[string]Codec{}
var codecOrder []Codec

// RegisterCodec adds a codec to the registry under all its MIME types.
func RegisterCodec(c Codec) {
	for _, mime := range c.MimeTypes() {
		mimeCodecs[mime] = c
	}
	codecOrder = append(codecOrder, c)
}

func init() {
	RegisterCodec(&TurtleCodec{})
	RegisterCodec(&NTriplesCodec{})
	RegisterCodec(&JSONLDCodec{})
}

var mimeRdfExt = map[string]string{
	".ttl":    "text/turtle",
	".nt":     "application/n-triples",
	".jsonld": "application/ld+json",
	".json":   "application/ld+json",
}

func mimeForExtension(filename string) string {
	if mime, ok := mimeRdfExt[filepath.Ext(filename)]; ok {
		return mime
	}
	return "text/turtle"
}

// codecForMime looks up a codec by MIME type, ignoring parameters such as
// "; charset=utf-8".
func codecForMime(mime string) (Codec, error) {
	mime = strings.TrimSpace(mime)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" {
		mime = "text/turtle"
	}
	c, ok := mimeCodecs[mime]
	if !ok {
		return nil, fmt.Errorf("%s is not supported by the parser", mime)
	}
	return c, nil
}

// Decode parses text using the codec registered for contentType, or
// format detection when contentType is empty.
func Decode(text string, contentType string, documentURL string) (*Graph, error) {
	if contentType == "" {
		if c, ok := DetectFormat(text); ok {
			return c.Decode(text, documentURL)
		}
		return nil, fmt.Errorf("unable to detect the RDF format of the input")
	}
	c, err := codecForMime(contentType)
	if err != nil {
		return nil, err
	}
	return c.Decode(text, documentURL)
}

// Encode serializes a graph using the codec registered for contentType;
// Turtle is the default.
func Encode(g *Graph, contentType string, baseURI string) (string, error) {
	c, err := codecForMime(contentType)
	if err != nil {
		return "", err
	}
	return c.Encode(g, baseURI)
}

// CanParse reports whether the input starts with Turtle-compatible tokens.
func CanParse(text string) bool {
	return (&TurtleCodec{}).CanParse(text)
}

// DetectFormat returns the first registered codec claiming the input.
func DetectFormat(text string) (Codec, bool) {
	for _, c := range codecOrder {
		if c.CanParse(text) {
			return c, true
		}
	}
	return nil, false
}

// TurtleCodec parses and serializes text/turtle.
type TurtleCodec struct {
	ParserOptions     *ParserOptions
	SerializerOptions *SerializerOptions
}

// MimeTypes returns the Turtle MIME types, text/turtle first.
func (c *TurtleCodec) MimeTypes() []string {
	return []string{"text/turtle", "application/x-turtle", "text/n3"}
}

// Decode parses a Turtle document.
func (c *TurtleCodec) Decode(text string, documentURL string) (*Graph, error) {
	return ParseTurtle(text, documentURL, c.ParserOptions)
}

// Encode serializes a graph as pretty-printed Turtle.
func (c *TurtleCodec) Encode(g *Graph, baseURI string) (string, error) {
	return SerializeTurtle(g, baseURI, c.SerializerOptions)
}

// CanParse returns true only when the input starts with Turtle-compatible
// tokens after skipping leading whitespace and comments. HTML, XML and
// JSON prefixes return false.
func (c *TurtleCodec) CanParse(text string) bool {
	rest := skipWhitespaceAndComments(text)
	if rest == "" {
		return false
	}
	lower := strings.ToLower(rest)
	switch rest[0] {
	case '{', '}', '[':
		return false
	case '@':
		return strings.HasPrefix(rest, "@prefix") || strings.HasPrefix(rest, "@base")
	case '<':
		if strings.HasPrefix(lower, "<?xml") || strings.HasPrefix(lower, "<!") ||
			strings.HasPrefix(lower, "<html") || strings.HasPrefix(lower, "<rdf") {
			return false
		}
		// An IRI reference closes before any whitespace.
		for i := 1; i < len(rest); i++ {
			switch rest[i] {
			case '>':
				return true
			case ' ', '\t', '\r', '\n':
				return false
			}
		}
		return false
	case '_':
		return strings.HasPrefix(rest, "_:")
	}
	if strings.HasPrefix(lower, "prefix") || strings.HasPrefix(lower, "base") {
		return true
	}
	// A prefixed name: PN_CHARS up to a colon.
	for i, r := range rest {
		if r == ':' {
			return true
		}
		if !isPnChars(r) && r != '.' {
			return false
		}
		if i > 256 {
			return false
		}
	}
	return false
}

func skipWhitespaceAndComments(text string) string {
	for {
		text = strings.TrimLeft(text, " \t\r\n")
		if !strings.HasPrefix(text, "#") {
			return text
		}
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			return ""
		}
	}
}
