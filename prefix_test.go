package rdfkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWellKnownPrefix(t *testing.T) {
	ns, ok := WellKnownPrefix("rdf")
	assert.True(t, ok)
	assert.Equal(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#", ns)

	_, ok = WellKnownPrefix("nope")
	assert.False(t, ok)
}

func TestPrefixMapBind(t *testing.T) {
	pm := NewPrefixMap()
	pm.Bind("ex", "http://ex/")

	ns, ok := pm.Namespace("ex")
	assert.True(t, ok)
	assert.Equal(t, "http://ex/", ns)

	prefix, ok := pm.Prefix("http://ex/")
	assert.True(t, ok)
	assert.Equal(t, "ex", prefix)

	// Rebinding replaces the namespace.
	pm.Bind("ex", "http://other/")
	ns, _ = pm.Namespace("ex")
	assert.Equal(t, "http://other/", ns)
	_, ok = pm.Prefix("http://ex/")
	assert.False(t, ok)
}

func TestPrefixMapEmptyPrefix(t *testing.T) {
	pm := NewPrefixMap()
	pm.Bind("", "http://ex/doc#")
	ns, ok := pm.Namespace("")
	assert.True(t, ok)
	assert.Equal(t, "http://ex/doc#", ns)
}

func TestSynthesizePrefersWellKnown(t *testing.T) {
	pm := NewPrefixMap()
	assert.Equal(t, "foaf", pm.Synthesize("http://xmlns.com/foaf/0.1/"))
	// Synthesizing again reuses the binding.
	assert.Equal(t, "foaf", pm.Synthesize("http://xmlns.com/foaf/0.1/"))
}

func TestSynthesizeFromPathSegment(t *testing.T) {
	pm := NewPrefixMap()
	assert.Equal(t, "vocab", pm.Synthesize("http://example.org/vocab#"))
	assert.Equal(t, "terms", pm.Synthesize("http://example.org/my/terms/"))
}

func TestSynthesizeFromHost(t *testing.T) {
	pm := NewPrefixMap()
	assert.Equal(t, "example", pm.Synthesize("http://example.org/"))
}

func TestSynthesizeSkipsNumericSegments(t *testing.T) {
	pm := NewPrefixMap()
	// The version segment is useless as a prefix name.
	assert.Equal(t, "vocab", pm.Synthesize("http://example.org/vocab/0.1/"))
}

func TestSynthesizeCollisionSuffixing(t *testing.T) {
	pm := NewPrefixMap()
	assert.Equal(t, "vocab", pm.Synthesize("http://one.example/vocab#"))
	assert.Equal(t, "vocab1", pm.Synthesize("http://two.example/vocab#"))
	assert.Equal(t, "vocab2", pm.Synthesize("http://three.example/vocab#"))
}

func TestSynthesizeStripsHyphens(t *testing.T) {
	pm := NewPrefixMap()
	prefix := pm.Synthesize("http://example.org/my-vocab#")
	assert.Equal(t, "myvocab", prefix)
	assert.NotContains(t, prefix, "-")
}

func TestPrefixesSorted(t *testing.T) {
	pm := NewPrefixMap()
	pm.Bind("z", "http://z/")
	pm.Bind("a", "http://a/")
	pm.Bind("m", "http://m/")
	assert.Equal(t, []string{"a", "m", "z"}, pm.Prefixes())
}
