package rdfkit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// iriParts holds the five RFC 3986 components of an IRI reference. The
// has* flags distinguish an empty component from an absent one, which
// matters during resolution ("?": empty query, "": no query).
type iriParts struct {
	scheme   string
	auth     string
	path     string
	query    string
	fragment string

	hasScheme   bool
	hasAuth     bool
	hasQuery    bool
	hasFragment bool
}

// re from RFC 3986 page 50.
var iriRefRE = regexp.MustCompile(`(?s)^(([^:/?#]+):)?(//([^/?#]*))?([^?#]*)(\?([^#]*))?(#(.*))?$`)

func parseIRIRef(s string) iriParts {
	m := iriRefRE.FindStringSubmatch(s)
	if m == nil {
		// The expression matches any string; this is unreachable but keeps
		// the zero value meaningful.
		return iriParts{path: s}
	}
	return iriParts{
		scheme:      m[2],
		auth:        m[4],
		path:        m[5],
		query:       m[7],
		fragment:    m[9],
		hasScheme:   m[1] != "",
		hasAuth:     m[3] != "",
		hasQuery:    m[6] != "",
		hasFragment: m[8] != "",
	}
}

func (p iriParts) String() string {
	var b strings.Builder
	if p.hasScheme {
		b.WriteString(p.scheme)
		b.WriteByte(':')
	}
	if p.hasAuth {
		b.WriteString("//")
		b.WriteString(p.auth)
	}
	b.WriteString(p.path)
	if p.hasQuery {
		b.WriteByte('?')
		b.WriteString(p.query)
	}
	if p.hasFragment {
		b.WriteByte('#')
		b.WriteString(p.fragment)
	}
	return b.String()
}

// isAbsoluteIRI reports whether s begins with a well-formed scheme, i.e.
// parses as an absolute IRI rather than a relative reference.
func isAbsoluteIRI(s string) bool {
	colon := strings.IndexByte(s, ':')
	if colon < 1 {
		return false
	}
	if !isAlpha(rune(s[0])) {
		return false
	}
	for _, r := range s[1:colon] {
		if !isAlphaOrDigit(r) && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

// removeDotSegments implements RFC 3986 section 5.2.4.
func removeDotSegments(path string) string {
	var out []string
	in := path
	for len(in) > 0 {
		switch {
		case strings.HasPrefix(in, "../"):
			in = in[3:]
		case strings.HasPrefix(in, "./"):
			in = in[2:]
		case strings.HasPrefix(in, "/./"):
			in = in[2:]
		case in == "/.":
			in = "/"
		case strings.HasPrefix(in, "/../"):
			in = in[3:]
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "/..":
			in = "/"
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "." || in == "..":
			in = ""
		default:
			i := strings.IndexByte(in[1:], '/')
			if i < 0 {
				out = append(out, in)
				in = ""
			} else {
				out = append(out, in[:i+1])
				in = in[i+1:]
			}
		}
	}
	return strings.Join(out, "")
}

// mergePaths implements RFC 3986 section 5.3.3.
func mergePaths(base iriParts, refPath string) string {
	if base.hasAuth && base.path == "" {
		return "/" + refPath
	}
	i := strings.LastIndexByte(base.path, '/')
	if i < 0 {
		return refPath
	}
	return base.path[:i+1] + refPath
}

// ResolveIRI resolves the reference ref against base following RFC 3986
// section 5.3. An already absolute ref is returned unchanged. A relative
// ref with an empty base yields a BaseIRIRequiredError. A malformed base
// (one without a scheme) falls back to a plain textual join at the base's
// last path separator.
func ResolveIRI(ref string, base string) (string, error) {
	if isAbsoluteIRI(ref) {
		return ref, nil
	}
	if len(base) == 0 {
		return "", &BaseIRIRequiredError{Ref: ref}
	}

	b := parseIRIRef(base)
	if !b.hasScheme {
		return concatFallback(ref, base), nil
	}

	r := parseIRIRef(ref)
	t := iriParts{scheme: b.scheme, hasScheme: true}
	switch {
	case r.hasAuth:
		t.auth, t.hasAuth = r.auth, true
		t.path = removeDotSegments(r.path)
		t.query, t.hasQuery = r.query, r.hasQuery
	case r.path == "":
		t.auth, t.hasAuth = b.auth, b.hasAuth
		t.path = b.path
		if r.hasQuery {
			t.query, t.hasQuery = r.query, true
		} else {
			t.query, t.hasQuery = b.query, b.hasQuery
		}
	case strings.HasPrefix(r.path, "/"):
		t.auth, t.hasAuth = b.auth, b.hasAuth
		t.path = removeDotSegments(r.path)
		t.query, t.hasQuery = r.query, r.hasQuery
	default:
		t.auth, t.hasAuth = b.auth, b.hasAuth
		t.path = removeDotSegments(mergePaths(b, r.path))
		t.query, t.hasQuery = r.query, r.hasQuery
	}
	t.fragment, t.hasFragment = r.fragment, r.hasFragment

	return t.String(), nil
}

// concatFallback joins ref onto a base that failed to parse as an
// absolute IRI. The behavior is deterministic: fragment references
// replace the base's fragment, everything else replaces the last path
// segment.
func concatFallback(ref string, base string) string {
	if strings.HasPrefix(ref, "#") {
		return defrag(base) + ref
	}
	i := strings.LastIndexByte(base, '/')
	if i < 0 {
		return base + "/" + ref
	}
	return base[:i+1] + ref
}

// RelativizationMode selects which candidate forms RelativizeIRI may
// produce.
type RelativizationMode int

const (
	// RelativizeNone never relativizes; targets are emitted verbatim.
	RelativizeNone RelativizationMode = iota
	// RelativizeLocal permits the empty, fragment-only and
	// within-directory forms.
	RelativizeLocal
	// RelativizeFull additionally permits parent hops and absolute paths.
	RelativizeFull
)

// RelativizationOptions tunes the inverse of IRI resolution.
type RelativizationOptions struct {
	Mode RelativizationMode

	// MaxUpLevels bounds the number of ../ hops in the sibling form.
	MaxUpLevels int

	// MaxAdditionalLength bounds the characters the ../ prefix may add
	// on top of the plain suffix; 0 means unbounded.
	MaxAdditionalLength int

	AllowAbsolutePath       bool
	AllowSiblingDirectories bool
}

// NoRelativization returns options that keep every IRI absolute.
func NoRelativization() RelativizationOptions {
	return RelativizationOptions{Mode: RelativizeNone}
}

// LocalRelativization returns options permitting only references within
// the base's directory (plus the empty and fragment forms).
func LocalRelativization() RelativizationOptions {
	return RelativizationOptions{Mode: RelativizeLocal}
}

// FullRelativization returns options permitting all candidate forms.
func FullRelativization() RelativizationOptions {
	return RelativizationOptions{
		Mode:                    RelativizeFull,
		MaxUpLevels:             3,
		AllowAbsolutePath:       true,
		AllowSiblingDirectories: true,
	}
}

type relCandidate struct {
	text     string
	upLevels int
	absPath  bool
}

// RelativizeIRI returns the shortest reference that resolves back to
// target against base under the given options, or target itself when no
// admissible shorter form exists. Candidates are ranked by the key
// (length, upLevels, absolute-path preference, text).
func RelativizeIRI(target string, base string, opts RelativizationOptions) string {
	if opts.Mode == RelativizeNone || len(base) == 0 || len(target) == 0 {
		return target
	}

	t := parseIRIRef(target)
	b := parseIRIRef(defrag(base))
	if !t.hasScheme || !b.hasScheme || t.scheme != b.scheme {
		return target
	}
	if t.hasAuth != b.hasAuth || t.auth != b.auth {
		return target
	}
	// Resolving a relative path against a base with a query would discard
	// the query, so only the exact-match forms are safe; refusing is
	// simpler and loses little.
	if b.hasQuery {
		return target
	}

	baseStr := b.String()
	var cands []relCandidate

	if target == baseStr {
		cands = append(cands, relCandidate{text: ""})
	}
	if t.hasFragment && defragParts(t).String() == baseStr {
		cands = append(cands, relCandidate{text: "#" + t.fragment})
	}

	dir := directoryOf(baseStr)
	if strings.HasPrefix(target, dir) {
		suffix := target[len(dir):]
		if suffix != "" && !strings.HasPrefix(suffix, "/") {
			cands = append(cands, relCandidate{text: suffix})
		}
	}

	if opts.Mode == RelativizeFull {
		if opts.AllowSiblingDirectories {
			up := dir
			for n := 1; n <= opts.MaxUpLevels; n++ {
				parent := parentDirectory(up)
				if parent == up {
					break
				}
				up = parent
				if strings.HasPrefix(target, up) {
					suffix := target[len(up):]
					if suffix != "" && !strings.HasPrefix(suffix, "/") {
						text := strings.Repeat("../", n) + suffix
						if opts.MaxAdditionalLength == 0 || 3*n <= opts.MaxAdditionalLength {
							cands = append(cands, relCandidate{text: text, upLevels: n})
						}
					}
				}
			}
		}
		if opts.AllowAbsolutePath && strings.HasPrefix(t.path, "/") {
			rel := iriParts{
				path:        t.path,
				query:       t.query,
				fragment:    t.fragment,
				hasQuery:    t.hasQuery,
				hasFragment: t.hasFragment,
			}
			cands = append(cands, relCandidate{text: rel.String(), absPath: true})
		}
	}

	admissible := cands[:0]
	for _, c := range cands {
		if len(c.text) > len(target) {
			continue
		}
		// Scheme-collision guard: a candidate like 123:foo would be read
		// back as an absolute IRI and resolve differently.
		if strings.Contains(firstSegment(c.text), ":") {
			continue
		}
		resolved, err := ResolveIRI(c.text, baseStr)
		if err != nil || resolved != target {
			continue
		}
		admissible = append(admissible, c)
	}
	if len(admissible) == 0 {
		return target
	}

	sort.Slice(admissible, func(i, j int) bool {
		a, b := admissible[i], admissible[j]
		if len(a.text) != len(b.text) {
			return len(a.text) < len(b.text)
		}
		if a.upLevels != b.upLevels {
			return a.upLevels < b.upLevels
		}
		if a.absPath != b.absPath {
			return a.absPath
		}
		return a.text < b.text
	})
	return admissible[0].text
}

func defragParts(p iriParts) iriParts {
	p.fragment = ""
	p.hasFragment = false
	return p
}

// directoryOf returns the IRI up to and including the last slash of its
// path; an IRI with no path slash keeps only scheme and authority.
func directoryOf(iri string) string {
	p := parseIRIRef(iri)
	i := strings.LastIndexByte(p.path, '/')
	if i < 0 {
		p.path = ""
	} else {
		p.path = p.path[:i+1]
	}
	p.query, p.hasQuery = "", false
	p.fragment, p.hasFragment = "", false
	return p.String()
}

// parentDirectory strips the last path segment of a directory IRI
// (".../a/b/" becomes ".../a/"). The authority root is its own parent.
func parentDirectory(dir string) string {
	p := parseIRIRef(dir)
	if p.path == "" || p.path == "/" {
		return dir
	}
	trimmed := strings.TrimSuffix(p.path, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		p.path = ""
	} else {
		p.path = trimmed[:i+1]
	}
	return p.String()
}

func firstSegment(s string) string {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}

// EscapeIRI percent-escapes the characters that are disallowed in a
// serialized IRI reference. The serializer never calls this implicitly;
// it refuses such IRIs instead.
func EscapeIRI(iri string) string {
	var b strings.Builder
	for _, r := range iri {
		switch {
		case r <= 0x20, r == '<', r == '>', r == '"', r == '{', r == '}', r == '|', r == '^', r == '`', r == '\\':
			for _, octet := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", octet)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checkIRIWritable reports whether an IRI can be emitted inside <...>
// without changing its meaning.
func checkIRIWritable(iri string) error {
	for _, r := range iri {
		switch {
		case r <= 0x20, r == '<', r == '>', r == '"', r == '{', r == '}', r == '|', r == '^', r == '`', r == '\\':
			return &ConstraintError{Msg: fmt.Sprintf("IRI %q contains disallowed character %q", iri, r)}
		}
	}
	return nil
}
