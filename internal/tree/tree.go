package tree

import (
	"fmt"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/path"
)

// All operations are pure: the input document is never modified. Every container on the
// path from the root to the mutation point is shallow-copied; every other subtree of the
// result is the same node as in the input, so callers can detect changes with
// document.SameNode.

// SetAt returns a copy of doc with v written at p. The final segment may name a new
// object key, but a sequence index must already exist: sequences only grow through InsertAt.
func SetAt(doc document.Document, p path.Path, v any) (document.Document, error) {
	w := walker{op: "set", p: p}
	if len(p) == 0 {
		return nil, w.fail(ErrPathNotAddressable, "cannot replace the document root")
	}
	return w.run(doc, func(_ any, _ bool) (any, error) {
		return v, nil
	})
}

// InsertAt returns a copy of doc with v appended to the sequence at seqPath.
func InsertAt(doc document.Document, seqPath path.Path, v any) (document.Document, error) {
	w := walker{op: "insert", p: seqPath}
	return w.run(doc, func(cur any, exists bool) (any, error) {
		seq, err := w.sequence(cur, exists)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(seq)+1)
		copy(out, seq)
		out[len(seq)] = v
		return out, nil
	})
}

// RemoveAt returns a copy of doc with element index removed from the sequence at seqPath.
// The remaining elements keep their relative order.
func RemoveAt(doc document.Document, seqPath path.Path, index int) (document.Document, error) {
	w := walker{op: "remove", p: seqPath}
	return w.run(doc, func(cur any, exists bool) (any, error) {
		seq, err := w.sequence(cur, exists)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(seq) {
			return nil, w.fail(ErrIndexOutOfRange, fmt.Sprintf("index %d, length %d", index, len(seq)))
		}
		out := make([]any, 0, len(seq)-1)
		out = append(out, seq[:index]...)
		return append(out, seq[index+1:]...), nil
	})
}

// MoveAt returns a copy of doc with the element at from moved to position to within the
// sequence at seqPath. Elements between the two positions shift by one.
func MoveAt(doc document.Document, seqPath path.Path, from, to int) (document.Document, error) {
	w := walker{op: "move", p: seqPath}
	unchanged := false
	out, err := w.run(doc, func(cur any, exists bool) (any, error) {
		seq, err := w.sequence(cur, exists)
		if err != nil {
			return nil, err
		}
		for _, i := range []int{from, to} {
			if i < 0 || i >= len(seq) {
				return nil, w.fail(ErrIndexOutOfRange, fmt.Sprintf("index %d, length %d", i, len(seq)))
			}
		}
		if from == to {
			unchanged = true
			return seq, nil
		}
		moved := make([]any, 0, len(seq))
		for i, el := range seq {
			if i == from {
				continue
			}
			if i == to && to < from {
				moved = append(moved, seq[from])
			}
			moved = append(moved, el)
			if i == to && to > from {
				moved = append(moved, seq[from])
			}
		}
		return moved, nil
	})
	if err != nil {
		return nil, err
	}
	if unchanged {
		return doc, nil
	}
	return out, nil
}

// walker copies the containers along one path and applies an edit at its end.
type walker struct {
	op string
	p  path.Path
}

func (w walker) fail(err error, msg string) error {
	return &Error{Op: w.op, Path: w.p.String(), Message: msg, Err: err}
}

// sequence asserts that the edit target is an existing sequence.
func (w walker) sequence(cur any, exists bool) ([]any, error) {
	if !exists {
		return nil, w.fail(ErrPathNotAddressable, "target does not exist")
	}
	seq, ok := cur.([]any)
	if !ok {
		return nil, w.fail(ErrPathNotAddressable, fmt.Sprintf("target is %s, not a sequence", document.Kind(cur)))
	}
	return seq, nil
}

// run applies edit to the node at w.p and returns the rebuilt root.
func (w walker) run(doc document.Document, edit func(cur any, exists bool) (any, error)) (document.Document, error) {
	if len(w.p) == 0 {
		return nil, w.fail(ErrPathNotAddressable, "target is the document root, not a sequence")
	}
	root, err := w.rebuild(doc, 0, edit)
	if err != nil {
		return nil, err
	}
	return root.(map[string]any), nil
}

func (w walker) rebuild(node any, depth int, edit func(cur any, exists bool) (any, error)) (any, error) {
	seg := w.p[depth]
	last := depth == len(w.p)-1
	at := w.p[:depth].String()
	if at == "" {
		at = "root"
	}

	descend := func(child any, exists bool) (any, error) {
		if last {
			return edit(child, exists)
		}
		if !exists {
			return nil, w.fail(ErrPathNotAddressable, fmt.Sprintf("missing container %q at %s", seg.String(), at))
		}
		return w.rebuild(child, depth+1, edit)
	}

	switch n := node.(type) {
	case map[string]any:
		if seg.IsIndex() {
			return nil, w.fail(ErrPathNotAddressable, fmt.Sprintf("index %d used on object at %s", seg.Index(), at))
		}
		child, exists := n[seg.Key()]
		next, err := descend(child, exists)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(n)+1)
		for k, v := range n {
			out[k] = v
		}
		out[seg.Key()] = next
		return out, nil

	case []any:
		if !seg.IsIndex() {
			return nil, w.fail(ErrPathNotAddressable, fmt.Sprintf("key %q used on sequence at %s", seg.Key(), at))
		}
		idx := seg.Index()
		if idx < 0 || idx >= len(n) {
			return nil, w.fail(ErrPathNotAddressable, fmt.Sprintf("index %d outside sequence of length %d at %s", idx, len(n), at))
		}
		next, err := descend(n[idx], true)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(n))
		copy(out, n)
		out[idx] = next
		return out, nil

	default:
		return nil, w.fail(ErrPathNotAddressable, fmt.Sprintf("cannot descend into %s at %s", document.Kind(node), at))
	}
}
