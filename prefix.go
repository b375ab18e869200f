package rdfkit

import (
	"fmt"
	"sort"
	"strings"
)

// wellKnownPrefixes is the curated table consulted on decode (when the
// AutoAddCommonPrefixes flag is set) and on encode (to produce readable
// output). It is read-only process-wide data; never mutate it.
var wellKnownPrefixes = map[string]string{
	"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":     "http://www.w3.org/2001/XMLSchema#",
	"owl":     "http://www.w3.org/2002/07/owl#",
	"foaf":    "http://xmlns.com/foaf/0.1/",
	"schema":  "https://schema.org/",
	"dc":      "http://purl.org/dc/elements/1.1/",
	"dcterms": "http://purl.org/dc/terms/",
	"skos":    "http://www.w3.org/2004/02/skos/core#",
	"vcard":   "http://www.w3.org/2006/vcard/ns#",
	"geo":     "http://www.w3.org/2003/01/geo/wgs84_pos#",
	"prov":    "http://www.w3.org/ns/prov#",
	"sh":      "http://www.w3.org/ns/shacl#",
	"void":    "http://rdfs.org/ns/void#",
	"ldp":     "http://www.w3.org/ns/ldp#",
	"solid":   "http://www.w3.org/ns/solid/terms#",
	"vann":    "http://purl.org/vocab/vann/",
	"doap":    "http://usefulinc.com/ns/doap#",
	"sioc":    "http://rdfs.org/sioc/ns#",
	"time":    "http://www.w3.org/2006/time#",
	"qb":      "http://purl.org/linked-data/cube#",
	"org":     "http://www.w3.org/ns/org#",
}

// WellKnownPrefix returns the namespace bound to a curated prefix name.
func WellKnownPrefix(prefix string) (string, bool) {
	ns, ok := wellKnownPrefixes[prefix]
	return ns, ok
}

// wellKnownForNamespace returns the curated prefix for a namespace, if any.
func wellKnownForNamespace(ns string) (string, bool) {
	for prefix, candidate := range wellKnownPrefixes {
		if candidate == ns {
			return prefix, true
		}
	}
	return "", false
}

// PrefixMap holds prefix to namespace bindings. The empty prefix is legal.
// Bindings have document scope in a decoder session and serializer scope
// in an encoder session.
type PrefixMap struct {
	byPrefix    map[string]string
	byNamespace map[string]string
}

// NewPrefixMap returns an empty prefix map.
func NewPrefixMap() *PrefixMap {
	return &PrefixMap{
		byPrefix:    make(map[string]string),
		byNamespace: make(map[string]string),
	}
}

// Bind binds prefix to namespace, replacing an existing binding of the
// same prefix.
func (pm *PrefixMap) Bind(prefix string, namespace string) {
	if old, ok := pm.byPrefix[prefix]; ok {
		if pm.byNamespace[old] == prefix {
			delete(pm.byNamespace, old)
		}
	}
	pm.byPrefix[prefix] = namespace
	if _, taken := pm.byNamespace[namespace]; !taken {
		pm.byNamespace[namespace] = prefix
	}
}

// Namespace returns the namespace bound to prefix.
func (pm *PrefixMap) Namespace(prefix string) (string, bool) {
	ns, ok := pm.byPrefix[prefix]
	return ns, ok
}

// Prefix returns the prefix bound to namespace.
func (pm *PrefixMap) Prefix(namespace string) (string, bool) {
	prefix, ok := pm.byNamespace[namespace]
	return prefix, ok
}

// Len returns the number of bindings.
func (pm *PrefixMap) Len() int {
	return len(pm.byPrefix)
}

// Prefixes returns the bound prefixes sorted by name, for stable output.
func (pm *PrefixMap) Prefixes() []string {
	prefixes := make([]string, 0, len(pm.byPrefix))
	for prefix := range pm.byPrefix {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Synthesize derives a prefix for namespace and binds it, reusing an
// existing binding or a well-known entry when available. Generated
// prefixes never contain hyphens and never collide with existing
// bindings; collisions are resolved by numeric suffixing.
func (pm *PrefixMap) Synthesize(namespace string) string {
	if prefix, ok := pm.Prefix(namespace); ok {
		return prefix
	}
	base := ""
	if prefix, ok := wellKnownForNamespace(namespace); ok {
		base = prefix
	} else {
		base = prefixFromNamespace(namespace)
	}
	prefix := base
	for n := 1; ; n++ {
		if _, taken := pm.byPrefix[prefix]; !taken && prefix != "" {
			break
		}
		prefix = fmt.Sprintf("%s%d", base, n)
	}
	pm.Bind(prefix, namespace)
	return prefix
}

// prefixFromNamespace derives a candidate prefix name from a namespace
// IRI: the last non-empty, non-numeric path segment stripped of
// non-alphanumerics; else the first label of the host; else the initials
// of the host and path segments.
func prefixFromNamespace(ns string) string {
	trimmed := strings.TrimRight(ns, "#/")
	if i := strings.IndexByte(trimmed, ':'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.TrimLeft(trimmed, "/")
	segments := strings.Split(trimmed, "/")
	for i := len(segments) - 1; i >= 1; i-- {
		candidate := stripNonAlnum(segments[i])
		if candidate != "" && !isNumericOnly(candidate) {
			return sanitizePrefix(candidate)
		}
	}
	// Only the host is left; its first label usually names the vocabulary
	// (e.g. "example" for example.org).
	if len(segments) > 0 {
		label := segments[0]
		if i := strings.IndexByte(label, '.'); i >= 0 {
			label = label[:i]
		}
		if candidate := stripNonAlnum(label); candidate != "" && !isNumericOnly(candidate) {
			return sanitizePrefix(candidate)
		}
	}
	var initials strings.Builder
	for _, seg := range segments {
		for _, r := range seg {
			if isAlpha(r) {
				initials.WriteRune(r)
				break
			}
		}
	}
	return sanitizePrefix(initials.String())
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isAlphaOrDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumericOnly(s string) bool {
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// sanitizePrefix forces the candidate into PN_PREFIX shape: it must start
// with a letter and contains no hyphens.
func sanitizePrefix(s string) string {
	s = strings.ToLower(stripNonAlnum(s))
	for len(s) > 0 && !isAlpha(rune(s[0])) {
		s = s[1:]
	}
	if s == "" {
		return "ns"
	}
	return s
}
