package draft

import (
	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/tree"
)

// Op is a single document edit. Ops are values; applying one never modifies its input.
type Op interface {
	Apply(doc document.Document) (document.Document, error)
	// Target is the path the op writes to: the field for Set, the sequence otherwise.
	Target() path.Path
}

// Set writes Value at Path.
type Set struct {
	Path  path.Path
	Value any
}

func (o Set) Apply(doc document.Document) (document.Document, error) {
	return tree.SetAt(doc, o.Path, o.Value)
}

func (o Set) Target() path.Path { return o.Path }

// Insert appends Value to the sequence at Path.
type Insert struct {
	Path  path.Path
	Value any
}

func (o Insert) Apply(doc document.Document) (document.Document, error) {
	return tree.InsertAt(doc, o.Path, o.Value)
}

func (o Insert) Target() path.Path { return o.Path }

// Remove deletes element Index of the sequence at Path.
type Remove struct {
	Path  path.Path
	Index int
}

func (o Remove) Apply(doc document.Document) (document.Document, error) {
	return tree.RemoveAt(doc, o.Path, o.Index)
}

func (o Remove) Target() path.Path { return o.Path }

// Move reorders the sequence at Path, moving element From to position To.
type Move struct {
	Path     path.Path
	From, To int
}

func (o Move) Apply(doc document.Document) (document.Document, error) {
	return tree.MoveAt(doc, o.Path, o.From, o.To)
}

func (o Move) Target() path.Path { return o.Path }

// ApplyAll applies ops in order and stops at the first failure.
func ApplyAll(doc document.Document, ops ...Op) (document.Document, error) {
	for _, op := range ops {
		next, err := op.Apply(doc)
		if err != nil {
			return nil, err
		}
		doc = next
	}
	return doc, nil
}
