package rdfkit

import "fmt"

// Triple contains a subject, a predicate and an object term. The subject
// must be a Resource or a BlankNode, the predicate a Resource, and the
// object any term; NewTriple does not enforce this, callers feeding a
// serializer are expected to respect it.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple returns a new triple with the given subject, predicate and object.
func NewTriple(subject Term, predicate Term, object Term) (triple *Triple) {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

// String returns the NTriples representation of this triple.
func (triple Triple) String() (str string) {
	subjStr := encodeTerm(triple.Subject)
	predStr := encodeTerm(triple.Predicate)
	objStr := encodeTerm(triple.Object)

	return fmt.Sprintf("%s %s %s .", subjStr, predStr, objStr)
}

// Equal returns this triple is equivalent to the argument.
func (triple Triple) Equal(other *Triple) bool {
	return triple.Subject.Equal(other.Subject) &&
		triple.Predicate.Equal(other.Predicate) &&
		triple.Object.Equal(other.Object)
}
