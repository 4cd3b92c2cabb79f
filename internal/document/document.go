// Package document defines the resume document tree shared by every editing component.
//
// A Document is a tree of plain values: objects are map[string]any, sequences are []any,
// leaves are string, float64, bool or nil. Formatted text is kept as an opaque string.
// Documents are treated as immutable values; mutation goes through the tree package,
// which returns new documents that share unmodified subtrees with their input.
package document

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/goccy/go-json"
)

// Document is the root object of a resume.
type Document = map[string]any

// Section ids
const (
	SectionPersonal       = "personal"
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionLanguages      = "languages"
)

// Sections lists the named top-level subtrees in render order.
var Sections = []string{
	SectionPersonal,
	SectionSummary,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionCertifications,
	SectionLanguages,
}

// PersonalFields lists the keys of a blank personal object.
var PersonalFields = []string{
	"fullName", "title", "email", "phone", "location", "website", "linkedIn", "photo",
}

// IsSection reports whether id names a top-level section.
func IsSection(id string) bool {
	for _, s := range Sections {
		if s == id {
			return true
		}
	}
	return false
}

// New returns a blank resume with every section present.
func New() Document {
	personal := make(map[string]any, len(PersonalFields))
	for _, f := range PersonalFields {
		personal[f] = ""
	}
	personal["photo"] = nil

	return Document{
		SectionPersonal:       personal,
		SectionSummary:        "",
		SectionExperience:     []any{},
		SectionEducation:      []any{},
		SectionSkills:         []any{},
		SectionProjects:       []any{},
		SectionCertifications: []any{},
		SectionLanguages:      []any{},
	}
}

// Decode parses JSON into a Document. The top level must be an object.
func Decode(data []byte) (Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to decode document: top level is %s, want object", Kind(raw))
	}
	return doc, nil
}

// Encode serializes a Document as indented JSON.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// FromValue converts a typed value (such as a struct with json tags) into a Document.
func FromValue(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return Decode(data)
}

// Clone returns a deep copy of doc that shares no containers with it.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneNode(doc).(map[string]any)
}

func cloneNode(n any) any {
	switch v := n.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = cloneNode(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneNode(child)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether a and b hold the same values.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// SameNode reports whether a and b are the same node: the same map, the same
// slice (backing array and length), or equal scalars. Zero-capacity slices have no
// backing array of their own, so any two of them count as the same node.
func SameNode(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || (av == nil) != (bv == nil) {
			return false
		}
		return reflect.ValueOf(av).UnsafePointer() == reflect.ValueOf(bv).UnsafePointer()
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) || (av == nil) != (bv == nil) {
			return false
		}
		return unsafe.SliceData(av) == unsafe.SliceData(bv)
	default:
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		if !reflect.TypeOf(a).Comparable() {
			return false
		}
		return a == b
	}
}

// Kind names the node kind of v for error messages.
func Kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "sequence"
	case string:
		return "string"
	case float64, int, int64, float32:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
