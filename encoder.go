package rdfkit

import (
	"fmt"
	"sort"
	"strings"
)

// SerializerOptions configures a Turtle encoding session. Zero thresholds
// mean "no limit"; NewSerializerOptions returns the defaults.
type SerializerOptions struct {
	// CustomPrefixes seeds the prefix table; it may include the empty
	// prefix.
	CustomPrefixes map[string]string

	// GenerateMissingPrefixes synthesizes prefixes for namespaces used at
	// least twice or matching a well-known entry.
	GenerateMissingPrefixes bool

	// IncludeBaseDeclaration emits an @base directive when a base URI is
	// supplied.
	IncludeBaseDeclaration bool

	// UseNumericLocalNames permits local names with a leading digit in
	// prefixed-name form.
	UseNumericLocalNames bool

	// Relativization governs how subjects and objects are shortened
	// against the base URI. Predicates are never written relative.
	Relativization RelativizationOptions

	// ObjectListBreakAfter breaks an object list onto separate lines once
	// it holds more than this many objects.
	ObjectListBreakAfter int

	// CollectionItemBreakAfter breaks collection items across lines once
	// a collection holds more than this many items.
	CollectionItemBreakAfter int

	// InlineBlankNodeMaxWidth and InlineBlankNodeMaxTriples force a
	// newline-separated layout for inline blank nodes that exceed them.
	InlineBlankNodeMaxWidth   int
	InlineBlankNodeMaxTriples int

	// PrettyPrintCollections set to false forces single-line collections
	// irrespective of size.
	PrettyPrintCollections bool

	// RenderFragmentsAsPrefixed emits an empty-prefix binding for the
	// base's fragment namespace so fragment terms render as :local.
	RenderFragmentsAsPrefixed bool
}

// NewSerializerOptions returns the default serializer options.
func NewSerializerOptions() *SerializerOptions {
	return &SerializerOptions{
		GenerateMissingPrefixes:   true,
		IncludeBaseDeclaration:    true,
		Relativization:            FullRelativization(),
		ObjectListBreakAfter:      3,
		CollectionItemBreakAfter:  5,
		InlineBlankNodeMaxWidth:   60,
		InlineBlankNodeMaxTriples: 3,
		PrettyPrintCollections:    true,
		RenderFragmentsAsPrefixed: true,
	}
}

const indentUnit = "    "

// turtleEncoder holds the per-session state of one encoding run: the
// computed prefix table, the blank node reference counts and labels, and
// the collection candidates. Everything is discarded per Encode call.
type turtleEncoder struct {
	g    *Graph
	base string
	opts SerializerOptions

	prefixes *PrefixMap
	fragNS   string

	subjOrder   []string
	subjTriples map[string][]*Triple
	subjIsBlank map[string]bool

	bnodeRefs   map[string]int
	collections map[string][]Term
	collMember  map[string]bool

	labels   map[string]string
	labelN   int
	inFlight map[string]bool
	emitted  map[string]bool
}

// SerializeTurtle encodes a graph as pretty-printed Turtle. Output is
// byte-stable for a fixed graph and option set.
func SerializeTurtle(g *Graph, baseURI string, opts *SerializerOptions) (string, error) {
	var o SerializerOptions
	if opts == nil {
		o = *NewSerializerOptions()
	} else {
		o = *opts
	}
	e := &turtleEncoder{
		g:           g,
		base:        baseURI,
		opts:        o,
		prefixes:    NewPrefixMap(),
		subjTriples: make(map[string][]*Triple),
		subjIsBlank: make(map[string]bool),
		bnodeRefs:   make(map[string]int),
		collections: make(map[string][]Term),
		collMember:  make(map[string]bool),
		labels:      make(map[string]string),
		inFlight:    make(map[string]bool),
		emitted:     make(map[string]bool),
	}
	e.scan()
	return e.emit()
}

// scan is the first pass: it groups triples by subject, counts blank node
// references, identifies collection chains and computes the prefix table.
// It allocates no output.
func (e *turtleEncoder) scan() {
	for _, t := range e.g.Triples() {
		key := encodeTerm(t.Subject)
		if _, seen := e.subjTriples[key]; !seen {
			e.subjOrder = append(e.subjOrder, key)
			if _, blank := t.Subject.(*BlankNode); blank {
				e.subjIsBlank[key] = true
			}
		}
		e.subjTriples[key] = append(e.subjTriples[key], t)
		if b, ok := t.Object.(*BlankNode); ok {
			e.bnodeRefs[b.ID]++
		}
	}
	e.findCollections()
	e.computePrefixes()
}

// chainLink is one node of a potential rdf:List chain.
type chainLink struct {
	item Term
	next Term
}

// findCollections marks every rdf:first/rdf:rest chain that satisfies the
// reconstruction rules: each node carries exactly one rdf:first, one
// rdf:rest and nothing else; interior nodes are referenced exactly once;
// the chain ends in rdf:nil.
func (e *turtleEncoder) findCollections() {
	links := make(map[string]chainLink)
	for key, ts := range e.subjTriples {
		if !e.subjIsBlank[key] || len(ts) != 2 {
			continue
		}
		var first, rest Term
		firsts, rests := 0, 0
		for _, t := range ts {
			switch {
			case t.Predicate.Equal(RDFFirst):
				first = t.Object
				firsts++
			case t.Predicate.Equal(RDFRest):
				rest = t.Object
				rests++
			}
		}
		if firsts != 1 || rests != 1 {
			continue
		}
		id := ts[0].Subject.(*BlankNode).ID
		links[id] = chainLink{item: first, next: rest}
	}

	// Interior nodes are reachable via rdf:rest from another candidate and
	// referenced exactly once; anything else heads its own chain.
	pointedTo := make(map[string]bool)
	for _, l := range links {
		if b, ok := l.next.(*BlankNode); ok {
			if _, candidate := links[b.ID]; candidate && e.bnodeRefs[b.ID] == 1 {
				pointedTo[b.ID] = true
			}
		}
	}

	for id := range links {
		if pointedTo[id] {
			continue
		}
		items, members, ok := walkChain(id, links, pointedTo)
		if !ok {
			continue
		}
		e.collections[id] = items
		for _, m := range members {
			e.collMember[m] = true
		}
	}
}

func walkChain(head string, links map[string]chainLink, pointedTo map[string]bool) ([]Term, []string, bool) {
	var items []Term
	var members []string
	seen := map[string]bool{}
	id := head
	for {
		if seen[id] {
			return nil, nil, false
		}
		seen[id] = true
		l, ok := links[id]
		if !ok {
			return nil, nil, false
		}
		items = append(items, l.item)
		if l.next.Equal(RDFNil) {
			return items, members, true
		}
		b, ok := l.next.(*BlankNode)
		if !ok || !pointedTo[b.ID] {
			return nil, nil, false
		}
		members = append(members, b.ID)
		id = b.ID
	}
}

// computePrefixes builds the session prefix table: user-supplied bindings
// first, then the fragment namespace, then synthesized prefixes for every
// namespace rendered at least twice or matching a well-known entry.
func (e *turtleEncoder) computePrefixes() {
	prefixNames := make([]string, 0, len(e.opts.CustomPrefixes))
	for prefix := range e.opts.CustomPrefixes {
		prefixNames = append(prefixNames, prefix)
	}
	sort.Strings(prefixNames)
	for _, prefix := range prefixNames {
		e.prefixes.Bind(prefix, e.opts.CustomPrefixes[prefix])
	}

	if e.base != "" {
		frag := e.base
		if i := strings.IndexByte(frag, '#'); i >= 0 {
			frag = frag[:i]
		}
		e.fragNS = frag + "#"
	}

	counts := make(map[string]int)
	valid := make(map[string]bool)
	note := func(term Term) {
		res, ok := term.(*Resource)
		if !ok {
			return
		}
		if res.Equal(RDFType) || res.Equal(RDFNil) {
			return
		}
		ns, local := splitPrefix(res.URI)
		if ns == "" {
			return
		}
		counts[ns]++
		if e.localNameValid(local) {
			valid[ns] = true
		}
	}
	for _, t := range e.g.Triples() {
		folded := false
		if b, ok := t.Subject.(*BlankNode); ok {
			if _, head := e.collections[b.ID]; head || e.collMember[b.ID] {
				folded = true
			}
		}
		if folded {
			// Only the item of a folded chain link is rendered.
			if t.Predicate.Equal(RDFFirst) {
				note(t.Object)
				e.noteLiteralDatatype(t.Object, note)
			}
			continue
		}
		note(t.Subject)
		note(t.Predicate)
		note(t.Object)
		e.noteLiteralDatatype(t.Object, note)
	}

	if e.fragNS != "" && e.opts.RenderFragmentsAsPrefixed && counts[e.fragNS] > 0 {
		if _, bound := e.prefixes.Namespace(""); !bound {
			e.prefixes.Bind("", e.fragNS)
		}
	}

	if !e.opts.GenerateMissingPrefixes {
		return
	}
	namespaces := make([]string, 0, len(counts))
	for ns := range counts {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		if !valid[ns] {
			continue
		}
		if ns == e.fragNS && !e.opts.RenderFragmentsAsPrefixed {
			// Fragment terms render as <#local> instead.
			continue
		}
		if _, bound := e.prefixes.Prefix(ns); bound {
			continue
		}
		_, known := wellKnownForNamespace(ns)
		if counts[ns] < 2 && !known {
			continue
		}
		e.prefixes.Synthesize(ns)
	}
}

func (e *turtleEncoder) noteLiteralDatatype(obj Term, note func(Term)) {
	lit, ok := obj.(*Literal)
	if !ok || lit.Datatype == nil {
		return
	}
	if lit.Datatype.Equal(XSDString) || lit.Datatype.Equal(RDFLangString) {
		return
	}
	if e.literalAsToken(lit) != "" {
		return
	}
	note(lit.Datatype)
}

func (e *turtleEncoder) localNameValid(local string) bool {
	if e.opts.UseNumericLocalNames {
		return IsValidPnLocalNumeric(local)
	}
	return IsValidPnLocal(local)
}

// emit is the second pass: directives, blank line, subject groups.
func (e *turtleEncoder) emit() (string, error) {
	var b strings.Builder

	var directives []string
	if e.base != "" && e.opts.IncludeBaseDeclaration {
		if err := checkIRIWritable(e.base); err != nil {
			return "", err
		}
		directives = append(directives, fmt.Sprintf("@base <%s> .", e.base))
	}
	for _, prefix := range e.prefixes.Prefixes() {
		ns, _ := e.prefixes.Namespace(prefix)
		if err := checkIRIWritable(ns); err != nil {
			return "", err
		}
		if prefix == "" && ns == e.fragNS && e.fragNS != "" {
			directives = append(directives, "@prefix : <#> .")
			continue
		}
		directives = append(directives, fmt.Sprintf("@prefix %s: <%s> .", prefix, ns))
	}
	for _, d := range directives {
		b.WriteString(d)
		b.WriteByte('\n')
	}

	var groups []string
	for _, key := range e.subjOrder {
		if e.subjIsBlank[key] {
			continue
		}
		group, err := e.renderSubjectGroup(key)
		if err != nil {
			return "", err
		}
		if group != "" {
			groups = append(groups, group)
		}
	}
	for _, key := range e.subjOrder {
		if !e.subjIsBlank[key] {
			continue
		}
		id := e.subjTriples[key][0].Subject.(*BlankNode).ID
		if e.collMember[id] || e.emitted[id] {
			continue
		}
		if _, head := e.collections[id]; head && e.bnodeRefs[id] == 1 {
			continue
		}
		if e.bnodeRefs[id] == 1 {
			// Rendered inline at its single reference site.
			continue
		}
		group, err := e.renderSubjectGroup(key)
		if err != nil {
			return "", err
		}
		if group != "" {
			groups = append(groups, group)
		}
	}
	// Anything still unrendered is unreachable from the groups above
	// (e.g. a blank node cycle); give it a labeled group of its own.
	for _, key := range e.subjOrder {
		if !e.subjIsBlank[key] {
			continue
		}
		id := e.subjTriples[key][0].Subject.(*BlankNode).ID
		if e.collMember[id] || e.emitted[id] {
			continue
		}
		group, err := e.renderSubjectGroup(key)
		if err != nil {
			return "", err
		}
		if group != "" {
			groups = append(groups, group)
		}
	}

	if len(directives) > 0 && len(groups) > 0 {
		b.WriteByte('\n')
	}
	for i, group := range groups {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(group)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// renderSubjectGroup renders one subject and its predicate-object lists,
// using ';' between predicates and ',' between objects.
func (e *turtleEncoder) renderSubjectGroup(key string) (string, error) {
	triples := e.subjTriples[key]
	subject := triples[0].Subject

	var subjText string
	if b, ok := subject.(*BlankNode); ok {
		// Shared collections and multiply-referenced blank nodes keep a
		// stable label; their triples are written out normally.
		subjText = e.labelFor(b.ID)
		e.emitted[b.ID] = true
		e.inFlight[b.ID] = true
		defer delete(e.inFlight, b.ID)
	} else {
		text, err := e.renderIRITerm(subject, true)
		if err != nil {
			return "", err
		}
		subjText = text
	}

	type pol struct {
		verb    Term
		objects []Term
	}
	var order []pol
	index := make(map[string]int)
	for _, t := range triples {
		pk := encodeTerm(t.Predicate)
		if i, seen := index[pk]; seen {
			order[i].objects = append(order[i].objects, t.Object)
			continue
		}
		index[pk] = len(order)
		order = append(order, pol{verb: t.Predicate, objects: []Term{t.Object}})
	}

	var b strings.Builder
	b.WriteString(subjText)
	for i, po := range order {
		if i > 0 {
			b.WriteString(" ;\n")
			b.WriteString(indentUnit)
		} else {
			b.WriteByte(' ')
		}
		verbText, err := e.renderVerb(po.verb)
		if err != nil {
			return "", err
		}
		b.WriteString(verbText)
		b.WriteByte(' ')
		objects, err := e.renderObjectList(po.objects, indentUnit)
		if err != nil {
			return "", err
		}
		b.WriteString(objects)
	}
	b.WriteString(" .")
	return b.String(), nil
}

func (e *turtleEncoder) renderObjectList(objects []Term, indent string) (string, error) {
	rendered := make([]string, len(objects))
	for i, o := range objects {
		text, err := e.renderObject(o, indent)
		if err != nil {
			return "", err
		}
		rendered[i] = text
	}
	breakAfter := e.opts.ObjectListBreakAfter
	if breakAfter > 0 && len(rendered) > breakAfter {
		return strings.Join(rendered, ",\n"+indent+indentUnit), nil
	}
	return strings.Join(rendered, ", "), nil
}

func (e *turtleEncoder) renderVerb(p Term) (string, error) {
	res, ok := p.(*Resource)
	if !ok {
		return "", &ConstraintError{Msg: "predicate must be an IRI"}
	}
	if res.Equal(RDFType) {
		return "a", nil
	}
	// Predicates are never written as relative references: re-parsing
	// without the base would silently change their meaning.
	if text, ok := e.prefixedForm(res.URI); ok {
		return text, nil
	}
	if err := checkIRIWritable(res.URI); err != nil {
		return "", err
	}
	return "<" + res.URI + ">", nil
}

func (e *turtleEncoder) renderObject(o Term, indent string) (string, error) {
	switch term := o.(type) {
	case *Resource:
		return e.renderIRITerm(term, true)
	case *Literal:
		return e.renderLiteral(term)
	case *BlankNode:
		if items, head := e.collections[term.ID]; head && e.bnodeRefs[term.ID] == 1 && !e.emitted[term.ID] {
			e.emitted[term.ID] = true
			return e.renderCollection(items, indent)
		}
		if e.bnodeRefs[term.ID] == 1 && !e.inFlight[term.ID] && !e.emitted[term.ID] {
			return e.renderInlineBNode(term, indent)
		}
		return e.labelFor(term.ID), nil
	}
	return "", &ConstraintError{Msg: fmt.Sprintf("cannot serialize term %v", o)}
}

func (e *turtleEncoder) renderIRITerm(term Term, allowRelative bool) (string, error) {
	res, ok := term.(*Resource)
	if !ok {
		return "", &ConstraintError{Msg: fmt.Sprintf("cannot serialize %v as an IRI", term)}
	}
	if text, ok := e.prefixedForm(res.URI); ok {
		return text, nil
	}
	if err := checkIRIWritable(res.URI); err != nil {
		return "", err
	}
	if allowRelative && e.base != "" {
		rel := RelativizeIRI(res.URI, e.base, e.opts.Relativization)
		if rel != res.URI {
			return "<" + rel + ">", nil
		}
	}
	return "<" + res.URI + ">", nil
}

// prefixedForm returns pfx:local when a binding covers the IRI and the
// local part passes PN_LOCAL validation.
func (e *turtleEncoder) prefixedForm(uri string) (string, bool) {
	ns, local := splitPrefix(uri)
	if ns == "" {
		return "", false
	}
	prefix, bound := e.prefixes.Prefix(ns)
	if !bound {
		return "", false
	}
	if !e.localNameValid(local) {
		return "", false
	}
	return prefix + ":" + local, true
}

func (e *turtleEncoder) renderLiteral(l *Literal) (string, error) {
	if token := e.literalAsToken(l); token != "" {
		return token, nil
	}
	quoted := quoteString(l.Value)
	if len(l.Language) > 0 {
		return quoted + atLang(l.Language), nil
	}
	if l.Datatype == nil || l.Datatype.Equal(XSDString) {
		return quoted, nil
	}
	dt, err := e.renderDatatype(l.Datatype)
	if err != nil {
		return "", err
	}
	return quoted + "^^" + dt, nil
}

func (e *turtleEncoder) renderDatatype(dt Term) (string, error) {
	res, ok := dt.(*Resource)
	if !ok {
		return "", &ConstraintError{Msg: "literal datatype must be an IRI"}
	}
	if text, ok := e.prefixedForm(res.URI); ok {
		return text, nil
	}
	if err := checkIRIWritable(res.URI); err != nil {
		return "", err
	}
	return "<" + res.URI + ">", nil
}

// literalAsToken renders numeric and boolean literals in their bare token
// form when the stored lexical form already matches the Turtle grammar,
// so a re-parse recovers the identical literal.
func (e *turtleEncoder) literalAsToken(l *Literal) string {
	if l.Datatype == nil || len(l.Language) > 0 {
		return ""
	}
	switch {
	case l.Datatype.Equal(XSDInteger):
		if isIntegerLexical(l.Value) {
			return l.Value
		}
	case l.Datatype.Equal(XSDDecimal):
		if isDecimalLexical(l.Value) {
			return l.Value
		}
	case l.Datatype.Equal(XSDDouble):
		if isDoubleLexical(l.Value) {
			return l.Value
		}
	case l.Datatype.Equal(XSDBoolean):
		if l.Value == "true" || l.Value == "false" {
			return l.Value
		}
	}
	return ""
}

func quoteString(s string) string {
	str := s
	str = strings.Replace(str, "\\", "\\\\", -1)
	str = strings.Replace(str, "\"", "\\\"", -1)
	str = strings.Replace(str, "\n", "\\n", -1)
	str = strings.Replace(str, "\r", "\\r", -1)
	str = strings.Replace(str, "\t", "\\t", -1)
	return "\"" + str + "\""
}

func isIntegerLexical(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i = 1
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if !isDigit(rune(s[i])) {
			return false
		}
	}
	return true
}

func isDecimalLexical(s string) bool {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return false
	}
	intPart, fracPart := s[:dot], s[dot+1:]
	if len(intPart) > 0 && (intPart[0] == '+' || intPart[0] == '-') {
		intPart = intPart[1:]
	}
	if fracPart == "" {
		return false
	}
	for _, r := range intPart + fracPart {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

func isDoubleLexical(s string) bool {
	e := strings.IndexAny(s, "eE")
	if e < 0 {
		return false
	}
	mantissa, exponent := s[:e], s[e+1:]
	if len(exponent) > 0 && (exponent[0] == '+' || exponent[0] == '-') {
		exponent = exponent[1:]
	}
	if exponent == "" {
		return false
	}
	for _, r := range exponent {
		if !isDigit(r) {
			return false
		}
	}
	if dot := strings.IndexByte(mantissa, '.'); dot >= 0 {
		fracDigits := strings.Trim(mantissa[dot+1:], "0123456789") == ""
		return isDecimalLexical(mantissa) || (isIntegerLexical(mantissa[:dot]) && fracDigits)
	}
	return isIntegerLexical(mantissa)
}

func (e *turtleEncoder) renderCollection(items []Term, indent string) (string, error) {
	rendered := make([]string, len(items))
	multi := false
	for i, item := range items {
		text, err := e.renderObject(item, indent+indentUnit)
		if err != nil {
			return "", err
		}
		rendered[i] = text
		if strings.Contains(text, "\n") {
			multi = true
		}
	}
	if !e.opts.PrettyPrintCollections {
		return "( " + strings.Join(rendered, " ") + " )", nil
	}
	breakAfter := e.opts.CollectionItemBreakAfter
	if (breakAfter > 0 && len(items) > breakAfter) || multi {
		var b strings.Builder
		b.WriteString("(\n")
		for _, text := range rendered {
			b.WriteString(indent + indentUnit)
			b.WriteString(text)
			b.WriteByte('\n')
		}
		b.WriteString(indent + ")")
		return b.String(), nil
	}
	return "( " + strings.Join(rendered, " ") + " )", nil
}

// renderInlineBNode renders a singly-referenced blank node as
// [ predicate object ; ... ], switching to a newline layout when the
// configured width or triple thresholds are exceeded.
func (e *turtleEncoder) renderInlineBNode(node *BlankNode, indent string) (string, error) {
	triples := e.subjTriples[encodeTerm(Term(node))]
	e.emitted[node.ID] = true
	if len(triples) == 0 {
		return "[]", nil
	}
	e.inFlight[node.ID] = true
	defer delete(e.inFlight, node.ID)

	type pol struct {
		verb    Term
		objects []Term
	}
	var order []pol
	index := make(map[string]int)
	for _, t := range triples {
		pk := encodeTerm(t.Predicate)
		if i, seen := index[pk]; seen {
			order[i].objects = append(order[i].objects, t.Object)
			continue
		}
		index[pk] = len(order)
		order = append(order, pol{verb: t.Predicate, objects: []Term{t.Object}})
	}

	parts := make([]string, len(order))
	for i, po := range order {
		verbText, err := e.renderVerb(po.verb)
		if err != nil {
			return "", err
		}
		objects, err := e.renderObjectList(po.objects, indent+indentUnit)
		if err != nil {
			return "", err
		}
		parts[i] = verbText + " " + objects
	}

	oneLine := "[ " + strings.Join(parts, " ; ") + " ]"
	tooWide := e.opts.InlineBlankNodeMaxWidth > 0 && len(oneLine) > e.opts.InlineBlankNodeMaxWidth
	tooMany := e.opts.InlineBlankNodeMaxTriples > 0 && len(triples) > e.opts.InlineBlankNodeMaxTriples
	if !tooWide && !tooMany && !strings.Contains(oneLine, "\n") {
		return oneLine, nil
	}
	var b strings.Builder
	b.WriteString("[\n")
	for i, part := range parts {
		b.WriteString(indent + indentUnit)
		b.WriteString(part)
		if i < len(parts)-1 {
			b.WriteString(" ;")
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent + "]")
	return b.String(), nil
}

// labelFor assigns stable output labels in first-emission order.
func (e *turtleEncoder) labelFor(id string) string {
	if label, ok := e.labels[id]; ok {
		return label
	}
	label := fmt.Sprintf("_:b%d", e.labelN)
	e.labelN++
	e.labels[id] = label
	return label
}
