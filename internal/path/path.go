package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/resume-editor/internal/document"
)

// Separator joins segments in the string form of a path.
const Separator = "."

// Segment is one step of a path: an object key or a sequence index.
type Segment struct {
	key   string
	index int
	isIdx bool
}

// Key returns a segment selecting an object field.
func Key(name string) Segment {
	return Segment{key: name}
}

// Index returns a segment selecting a sequence element.
func Index(i int) Segment {
	return Segment{index: i, isIdx: true}
}

// IsIndex reports whether the segment selects a sequence element.
func (s Segment) IsIndex() bool { return s.isIdx }

// Key returns the field name of a key segment.
func (s Segment) Key() string { return s.key }

// Index returns the position of an index segment.
func (s Segment) Index() int { return s.index }

func (s Segment) String() string {
	if s.isIdx {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// Path is an ordered list of segments from the document root.
type Path []Segment

// Parse converts a dot-separated address such as "experience.2.achievements.0" into a Path.
//
// Segments made only of base-10 digits are ALWAYS sequence indices, never object keys
// with numeric names. The document model has no numeric object keys, so the rule is
// unambiguous; supporting them would need an escape syntax.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, &Error{Op: "parse", Path: s, Err: ErrMalformedPath, Reason: "empty path"}
	}

	parts := strings.Split(s, Separator)
	p := make(Path, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, &Error{Op: "parse", Path: s, Err: ErrMalformedPath, Reason: fmt.Sprintf("segment %d is empty", i)}
		}

		digits := true
		for _, r := range part {
			switch {
			case r >= '0' && r <= '9':
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
				digits = false
			default:
				return nil, &Error{Op: "parse", Path: s, Err: ErrMalformedPath, Reason: fmt.Sprintf("invalid character %q in segment %d", r, i)}
			}
		}

		if !digits {
			p = append(p, Key(part))
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &Error{Op: "parse", Path: s, Err: ErrMalformedPath, Reason: fmt.Sprintf("index %s out of range", part)}
		}
		p = append(p, Index(n))
	}
	return p, nil
}

// MustParse is like Parse but panics on a malformed path. Use it for literal paths.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dot-separated form of p.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, Separator)
}

// Child returns a new path with seg appended. p is not modified.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Parent returns p without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment of p. It panics on an empty path.
func (p Path) Last() Segment {
	return p[len(p)-1]
}

// Root returns the top-level key of p, or "" when p is empty or starts with an index.
func (p Path) Root() string {
	if len(p) == 0 || p[0].isIdx {
		return ""
	}
	return p[0].key
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if prefix[i] != p[i] {
			return false
		}
	}
	return true
}

// Equal reports whether p and o address the same location.
func (p Path) Equal(o Path) bool {
	return len(p) == len(o) && p.HasPrefix(o)
}

// Resolve returns the value at p in doc. It fails with ErrNotFound when a step is
// missing, an index is out of range, or a segment does not match the node kind.
func Resolve(doc document.Document, p Path) (any, error) {
	var node any = doc
	for i, seg := range p {
		next, ok := Step(node, seg)
		if !ok {
			return nil, &Error{
				Op:     "resolve",
				Path:   p.String(),
				Err:    ErrNotFound,
				Reason: fmt.Sprintf("no %s %q in %s at %s", segmentKind(seg), seg.String(), document.Kind(node), location(p[:i])),
			}
		}
		node = next
	}
	return node, nil
}

// Step descends one segment from node.
func Step(node any, seg Segment) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		if seg.isIdx {
			return nil, false
		}
		v, ok := n[seg.key]
		return v, ok
	case []any:
		if !seg.isIdx || seg.index < 0 || seg.index >= len(n) {
			return nil, false
		}
		return n[seg.index], true
	default:
		return nil, false
	}
}

func location(p Path) string {
	if len(p) == 0 {
		return "root"
	}
	return p.String()
}

func segmentKind(seg Segment) string {
	if seg.isIdx {
		return "index"
	}
	return "key"
}
