package rdfkit

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

var httpClient = &http.Client{}

// Graph is a logical multiset of triples. Insertion order is preserved, so
// serialization is stable when no reordering policy applies. Duplicate
// triples are permitted.
//
// A Graph is not safe for concurrent mutation; concurrent readers of an
// unmutated graph are safe.
type Graph struct {
	triples []*Triple

	bySubject   map[string][]*Triple
	byPredicate map[string][]*Triple
	byObject    map[string][]*Triple

	uri  string
	term Term
}

// NewGraph creates a Graph object, optionally bound to a document URI that
// parsers use as the default base.
func NewGraph(uri ...string) *Graph {
	g := &Graph{
		bySubject:   make(map[string][]*Triple),
		byPredicate: make(map[string][]*Triple),
		byObject:    make(map[string][]*Triple),
	}
	if len(uri) > 0 && len(uri[0]) > 0 {
		g.uri = uri[0]
		g.term = NewResourceUnsafe(uri[0])
	}
	return g
}

// Len returns the length of the graph as number of triples in the graph
func (g *Graph) Len() int {
	return len(g.triples)
}

// Term returns a Graph Term object
func (g *Graph) Term() Term {
	return g.term
}

// URI returns a Graph URI object
func (g *Graph) URI() string {
	return g.uri
}

// Add is used to add a Triple object to the graph
func (g *Graph) Add(t *Triple) {
	g.triples = append(g.triples, t)
	g.bySubject[encodeTerm(t.Subject)] = append(g.bySubject[encodeTerm(t.Subject)], t)
	g.byPredicate[encodeTerm(t.Predicate)] = append(g.byPredicate[encodeTerm(t.Predicate)], t)
	g.byObject[encodeTerm(t.Object)] = append(g.byObject[encodeTerm(t.Object)], t)
}

// AddTriple is used to add a triple made of individual S, P, O objects
func (g *Graph) AddTriple(s Term, p Term, o Term) {
	g.Add(NewTriple(s, p, o))
}

// AddAll adds every triple in the given slice to the graph.
func (g *Graph) AddAll(ts []*Triple) {
	for _, t := range ts {
		g.Add(t)
	}
}

// WithTriple returns a new graph holding this graph's triples plus the
// given one. The receiver is left untouched.
func (g *Graph) WithTriple(t *Triple) *Graph {
	ng := NewGraph(g.uri)
	ng.AddAll(g.triples)
	ng.Add(t)
	return ng
}

// Remove is used to remove a Triple object
func (g *Graph) Remove(t *Triple) {
	for i, triple := range g.triples {
		if triple.Equal(t) {
			g.triples = append(g.triples[:i], g.triples[i+1:]...)
			break
		}
	}
	g.bySubject[encodeTerm(t.Subject)] = removeFrom(g.bySubject[encodeTerm(t.Subject)], t)
	g.byPredicate[encodeTerm(t.Predicate)] = removeFrom(g.byPredicate[encodeTerm(t.Predicate)], t)
	g.byObject[encodeTerm(t.Object)] = removeFrom(g.byObject[encodeTerm(t.Object)], t)
}

func removeFrom(ts []*Triple, t *Triple) []*Triple {
	for i, triple := range ts {
		if triple.Equal(t) {
			return append(ts[:i], ts[i+1:]...)
		}
	}
	return ts
}

// Triples returns the graph's triples in insertion order.
func (g *Graph) Triples() []*Triple {
	return g.triples
}

// IterTriples iterates through all the triples in a graph
func (g *Graph) IterTriples() (ch chan *Triple) {
	ch = make(chan *Triple)
	go func() {
		for _, triple := range g.triples {
			ch <- triple
		}
		close(ch)
	}()
	return ch
}

func matches(t *Triple, s Term, p Term, o Term) bool {
	if s != nil && !t.Subject.Equal(s) {
		return false
	}
	if p != nil && !t.Predicate.Equal(p) {
		return false
	}
	if o != nil && !t.Object.Equal(o) {
		return false
	}
	return true
}

// candidates picks the narrowest index for the given pattern, falling back
// to the full triple list for (nil, nil, nil).
func (g *Graph) candidates(s Term, p Term, o Term) []*Triple {
	switch {
	case s != nil:
		return g.bySubject[encodeTerm(s)]
	case o != nil:
		return g.byObject[encodeTerm(o)]
	case p != nil:
		return g.byPredicate[encodeTerm(p)]
	}
	return g.triples
}

// One returns one triple based on a triple pattern of S, P, O objects
func (g *Graph) One(s Term, p Term, o Term) *Triple {
	for _, triple := range g.candidates(s, p, o) {
		if matches(triple, s, p, o) {
			return triple
		}
	}
	return nil
}

// All is used to return all triples that match a given pattern of S, P, O
// objects. The full-wildcard pattern returns nil; use Triples to iterate
// everything.
func (g *Graph) All(s Term, p Term, o Term) []*Triple {
	var triples []*Triple
	if s == nil && p == nil && o == nil {
		return triples
	}
	for _, triple := range g.candidates(s, p, o) {
		if matches(triple, s, p, o) {
			triples = append(triples, triple)
		}
	}
	return triples
}

// Merge is used to add all the triples of a graph to another one
func (g *Graph) Merge(toMerge *Graph) {
	for _, triple := range toMerge.triples {
		g.Add(triple)
	}
}

// Equal reports whether both graphs contain the same triples as multisets.
// Blank nodes are compared by their ids, not up to isomorphism.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	counts := make(map[string]int, len(g.triples))
	for _, t := range g.triples {
		counts[t.String()]++
	}
	for _, t := range other.triples {
		counts[t.String()]--
		if counts[t.String()] < 0 {
			return false
		}
	}
	return true
}

// Parse is used to parse RDF data from a reader, using the provided mime type
func (g *Graph) Parse(reader io.Reader, mime string) error {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(reader); err != nil {
		return err
	}
	codec, err := codecForMime(mime)
	if err != nil {
		return err
	}
	parsed, err := codec.Decode(buf.String(), g.uri)
	if err != nil {
		return err
	}
	g.Merge(parsed)
	return nil
}

// Serialize is used to serialize a graph based on a given mime type
func (g *Graph) Serialize(w io.Writer, mime string) error {
	codec, err := codecForMime(mime)
	if err != nil {
		return err
	}
	out, err := codec.Encode(g, g.uri)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// String returns the NTriples representation of the graph.
func (g *Graph) String() string {
	var toString string
	for _, triple := range g.triples {
		toString += triple.String() + "\n"
	}
	return toString
}

// ReadFile is used to read RDF data from a file into the graph
func (g *Graph) ReadFile(filename string) {
	stat, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return
	} else if stat.IsDir() {
		return
	} else if !stat.IsDir() && err != nil {
		log.Println(err)
		return
	}
	f, err := os.OpenFile(filename, os.O_RDONLY, 0)
	if err != nil {
		log.Println(err)
		return
	}
	defer f.Close()
	g.Parse(f, mimeForExtension(filename))
}

// LoadURI is used to load RDF data from a specific URI
func (g *Graph) LoadURI(uri string) (err error) {
	doc := defrag(uri)
	q, err := http.NewRequest("GET", doc, nil)
	if err != nil {
		return
	}
	if len(g.uri) == 0 {
		g.uri = doc
	}
	q.Header.Set("Accept", "text/turtle,application/ld+json,application/n-triples")
	r, err := httpClient.Do(q)
	if err != nil {
		return
	}
	if r != nil {
		defer r.Body.Close()
		if r.StatusCode == 200 {
			g.Parse(r.Body, r.Header.Get("Content-Type"))
		} else {
			err = fmt.Errorf("Could not fetch graph from %s - HTTP %d", uri, r.StatusCode)
		}
	}
	return
}
