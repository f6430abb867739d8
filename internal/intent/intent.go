// Package intent classifies exact questions and answers them by direct
// computation over a document's full text and tabular metadata, never
// calling a generative model.
package intent

// Action is the computation class a question maps to.
type Action string

const (
	ActionCount   Action = "count"
	ActionStats   Action = "stats"
	ActionExtract Action = "extract"
	ActionList    Action = "list"
)

// Target qualifies what an action operates on.
type Target string

const (
	TargetPunct   Target = "punct"
	TargetChars   Target = "chars"
	TargetWords   Target = "words"
	TargetRows    Target = "rows"
	TargetCols    Target = "cols"
	TargetColumns Target = "columns"
	TargetRecords Target = "records"
	TargetNeedle  Target = "needle"
	TargetNames   Target = "names"
	TargetGeneric Target = "generic"
)

// Field is a pattern family for exact-field extraction.
type Field string

const (
	FieldIdentity    Field = "identity"
	FieldDate        Field = "date"
	FieldCurrency    Field = "currency"
	FieldInstallment Field = "installment"
	FieldAny         Field = "any"
)

// Query is a classified exact question. Derived per turn, never stored.
type Query struct {
	Action Action
	Target Target
	Field  Field
	// Needle is the literal to count or list occurrences of.
	Needle string
	// FileHint is a filename or id mentioned in the question, if any.
	FileHint string
}

// Source points at the document an answer was computed from.
type Source struct {
	DocID    string `json:"docId"`
	Filename string `json:"filename"`
}

// Answer is the result of executing a Query.
type Answer struct {
	Text    string
	Sources []Source
}

// NotFoundAnswer is the fixed sentinel returned when a document holds no
// evidence for the question. Downstream consumers match it literally.
const NotFoundAnswer = "Essa informação não consta no documento analisado."
