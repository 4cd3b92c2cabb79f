package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/draft"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/transform"
	"github.com/jonathan/resume-editor/internal/tree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleDoc() document.Document {
	doc := document.New()
	doc["personal"].(map[string]any)["fullName"] = "Ada Lovelace"
	doc["summary"] = "Engineer"
	doc["experience"] = []any{
		map[string]any{"position": "Dev", "achievements": []any{"Shipped X"}},
		map[string]any{"position": "Intern", "achievements": []any{}},
	}
	doc["skills"] = []any{"Go", "SQL"}
	return doc
}

// release returns a transform.Func that blocks until a value arrives on ch.
func release(ch <-chan string) transform.Func {
	return func(ctx context.Context, _ path.Path, _ any) (any, error) {
		select {
		case v := <-ch:
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func settle(t *testing.T, h *transform.Handle) transform.PendingTransform {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := h.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func get(t *testing.T, doc document.Document, p string) any {
	t.Helper()
	v, err := path.Resolve(doc, path.MustParse(p))
	require.NoError(t, err)
	return v
}

func TestEditor_NewBlank(t *testing.T) {
	e := New(nil)
	defer e.Close()
	assert.Equal(t, document.New(), e.Document())
}

func TestEditor_CanonicalEdits(t *testing.T) {
	var commits []document.Document
	e := New(sampleDoc(), WithCommitHook(func(doc document.Document) {
		commits = append(commits, doc)
	}))
	defer e.Close()

	before := e.Document()
	require.NoError(t, e.SetField(path.MustParse("experience.0.position"), "Senior Dev"))
	require.NoError(t, e.Insert(path.MustParse("skills"), "Rust"))
	require.NoError(t, e.Move(path.MustParse("skills"), 2, 0))
	require.NoError(t, e.Remove(path.MustParse("experience"), 1))

	doc := e.Document()
	assert.Equal(t, "Senior Dev", get(t, doc, "experience.0.position"))
	assert.Equal(t, []any{"Rust", "Go", "SQL"}, doc["skills"])
	assert.Len(t, doc["experience"], 1)
	assert.Equal(t, "Dev", get(t, before, "experience.0.position"), "earlier snapshots are never mutated")
	assert.True(t, document.SameNode(before["personal"], doc["personal"]))

	require.Len(t, commits, 4)
	assert.True(t, document.SameNode(doc, commits[3]))
}

func TestEditor_StructuralErrorsPropagate(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()
	before := e.Document()

	err := e.SetField(path.MustParse("summary.0"), "x")
	assert.True(t, errors.Is(err, tree.ErrPathNotAddressable))

	err = e.Remove(path.MustParse("skills"), 5)
	assert.True(t, errors.Is(err, tree.ErrIndexOutOfRange))

	assert.True(t, document.SameNode(before, e.Document()))
}

func TestEditor_SectionSave(t *testing.T) {
	commits := 0
	e := New(sampleDoc(), WithCommitHook(func(document.Document) { commits++ }))
	defer e.Close()
	canonical := e.Document()

	require.NoError(t, e.StartSection("experience"))
	state, section := e.Session()
	assert.Equal(t, draft.Editing, state)
	assert.Equal(t, "experience", section)

	require.NoError(t, e.SetField(path.MustParse("experience.1.position"), "Junior Dev"))
	require.NoError(t, e.Move(path.MustParse("experience"), 1, 0))

	assert.True(t, document.SameNode(canonical, e.Document()), "canonical untouched while editing")
	assert.Equal(t, "Junior Dev", get(t, e.View("experience"), "experience.0.position"))
	assert.True(t, document.SameNode(canonical, e.View("skills")))

	v, err := e.Get(path.MustParse("experience.0.position"))
	require.NoError(t, err)
	assert.Equal(t, "Junior Dev", v)
	assert.Equal(t, 0, commits)

	require.NoError(t, e.Save())
	assert.Equal(t, "Junior Dev", get(t, e.Document(), "experience.0.position"))
	assert.Equal(t, 1, commits)

	state, section = e.Session()
	assert.Equal(t, draft.Idle, state)
	assert.Equal(t, "", section)
}

func TestEditor_SectionCancel(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()
	canonical := e.Document()

	require.NoError(t, e.StartSection("skills"))
	require.NoError(t, e.Insert(path.MustParse("skills"), "Rust"))
	require.NoError(t, e.Remove(path.MustParse("skills"), 0))
	require.NoError(t, e.Cancel())

	assert.True(t, document.SameNode(canonical, e.Document()))
	assert.Equal(t, sampleDoc(), e.Document())
}

func TestEditor_SessionMisuse(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()

	assert.True(t, errors.Is(e.Save(), draft.ErrNoActiveSession))
	assert.True(t, errors.Is(e.Cancel(), draft.ErrNoActiveSession))
	assert.True(t, errors.Is(e.StartSection("hobbies"), draft.ErrUnknownSection))

	require.NoError(t, e.StartSection("experience"))
	assert.True(t, errors.Is(e.StartSection("skills"), draft.ErrSessionAlreadyOpen))
}

func TestEditor_RewriteCanonical(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()
	ch := make(chan string, 1)

	h, err := e.Rewrite(context.Background(), path.MustParse("summary"), release(ch))
	require.NoError(t, err)
	assert.True(t, e.Pending(path.MustParse("summary")))
	assert.Equal(t, []string{"summary"}, e.PendingPaths())

	ch <- "Staff engineer"
	snap := settle(t, h)
	assert.Equal(t, transform.StatusApplied, snap.Status)
	assert.Equal(t, "Staff engineer", e.Document()["summary"])

	last, ok := e.Transform(path.MustParse("summary"))
	require.True(t, ok)
	assert.Equal(t, h.ID(), last.RequestID)
	e.Wait()
}

func TestEditor_RewriteFailureLeavesDocument(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()
	before := e.Document()

	h, err := e.Rewrite(context.Background(), path.MustParse("summary"),
		func(context.Context, path.Path, any) (any, error) { return nil, errors.New("quota exceeded") })
	require.NoError(t, err)

	snap := settle(t, h)
	e.Wait()
	assert.Equal(t, transform.StatusFailed, snap.Status)
	assert.True(t, errors.Is(snap.Err, transform.ErrTransformFailed))
	assert.True(t, document.SameNode(before, e.Document()))
}

func TestEditor_RewriteInDraft(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()
	canonical := e.Document()

	require.NoError(t, e.StartSection("experience"))
	ch := make(chan string, 1)
	h, err := e.Rewrite(context.Background(), path.MustParse("experience.0.position"), release(ch))
	require.NoError(t, err)

	ch <- "Principal"
	assert.Equal(t, transform.StatusApplied, settle(t, h).Status)
	e.Wait()

	assert.True(t, document.SameNode(canonical, e.Document()))
	assert.Equal(t, "Principal", get(t, e.View("experience"), "experience.0.position"))

	require.NoError(t, e.Save())
	assert.Equal(t, "Principal", get(t, e.Document(), "experience.0.position"))
}

func TestEditor_CloseSessionCancelsDraftRewrites(t *testing.T) {
	for _, closeFn := range []struct {
		name string
		fn   func(*Editor) error
	}{
		{"save", (*Editor).Save},
		{"cancel", (*Editor).Cancel},
	} {
		t.Run(closeFn.name, func(t *testing.T) {
			e := New(sampleDoc())
			defer e.Close()

			require.NoError(t, e.StartSection("experience"))
			ch := make(chan string, 1)
			h, err := e.Rewrite(context.Background(), path.MustParse("experience.0.position"), release(ch))
			require.NoError(t, err)

			require.NoError(t, closeFn.fn(e))
			assert.Equal(t, transform.StatusCancelled, settle(t, h).Status)

			// A new session must not receive the old session's result.
			require.NoError(t, e.StartSection("experience"))
			ch <- "Late"
			e.Wait()
			assert.Equal(t, "Dev", get(t, e.View("experience"), "experience.0.position"))
			assert.Equal(t, "Dev", get(t, e.Document(), "experience.0.position"))
		})
	}
}

func TestEditor_DraftRewriteLeavesCanonicalRewrites(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()

	ch := make(chan string, 1)
	h, err := e.Rewrite(context.Background(), path.MustParse("summary"), release(ch))
	require.NoError(t, err)

	require.NoError(t, e.StartSection("experience"))
	require.NoError(t, e.Cancel())

	ch <- "Rewritten"
	assert.Equal(t, transform.StatusApplied, settle(t, h).Status)
	e.Wait()
	assert.Equal(t, "Rewritten", e.Document()["summary"])
}

func TestEditor_EditCancelsPendingRewrites(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()

	chPos := make(chan string, 1)
	hPos, err := e.Rewrite(context.Background(), path.MustParse("experience.1.position"), release(chPos))
	require.NoError(t, err)
	chSummary := make(chan string, 1)
	hSummary, err := e.Rewrite(context.Background(), path.MustParse("summary"), release(chSummary))
	require.NoError(t, err)

	// Removing element 0 re-indexes element 1, so its pending rewrite is void.
	require.NoError(t, e.Remove(path.MustParse("experience"), 0))
	assert.Equal(t, transform.StatusCancelled, hPos.Status())
	assert.Equal(t, transform.StatusPending, hSummary.Status())

	// Typing over a field wins over its pending rewrite.
	require.NoError(t, e.SetField(path.MustParse("summary"), "Typed"))
	assert.Equal(t, transform.StatusCancelled, hSummary.Status())

	chPos <- "Lead"
	chSummary <- "Rewritten"
	e.Wait()

	doc := e.Document()
	assert.Equal(t, "Intern", get(t, doc, "experience.0.position"))
	assert.Equal(t, "Typed", doc["summary"])
}

func TestEditor_InsertKeepsPendingRewrites(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()

	ch := make(chan string, 1)
	h, err := e.Rewrite(context.Background(), path.MustParse("skills.0"), release(ch))
	require.NoError(t, err)
	require.NoError(t, e.Insert(path.MustParse("skills"), "Rust"))

	ch <- "Golang"
	assert.Equal(t, transform.StatusApplied, settle(t, h).Status)
	e.Wait()
	assert.Equal(t, []any{"Golang", "SQL", "Rust"}, e.Document()["skills"])
}

func TestEditor_Close(t *testing.T) {
	e := New(sampleDoc())
	require.NoError(t, e.StartSection("skills"))

	ch := make(chan string, 1)
	h, err := e.Rewrite(context.Background(), path.MustParse("skills.0"), release(ch))
	require.NoError(t, err)

	e.Close()
	e.Close()
	assert.Equal(t, transform.StatusCancelled, h.Status())
	_, ok := e.Transform(path.MustParse("skills.0"))
	assert.False(t, ok, "close forgets every request")

	assert.ErrorIs(t, e.SetField(path.MustParse("summary"), "x"), ErrClosed)
	assert.ErrorIs(t, e.StartSection("skills"), ErrClosed)
	_, err = e.Rewrite(context.Background(), path.MustParse("summary"), release(ch))
	assert.ErrorIs(t, err, ErrClosed)

	state, _ := e.Session()
	assert.Equal(t, draft.Idle, state)

	ch <- "late"
	e.Wait()
}

func TestEditor_ConcurrentUse(t *testing.T) {
	var mu sync.Mutex
	var last document.Document
	e := New(sampleDoc(), WithCommitHook(func(doc document.Document) {
		mu.Lock()
		last = doc
		mu.Unlock()
	}))
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = e.Insert(path.MustParse("skills"), fmt.Sprintf("skill-%d", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			h, err := e.Rewrite(context.Background(), path.MustParse("summary"),
				func(context.Context, path.Path, any) (any, error) { return fmt.Sprintf("v%d", i), nil })
			if err == nil {
				_, _ = h.Wait(context.Background())
			}
			_ = e.View("skills")
		}(i)
	}
	wg.Wait()
	e.Wait()

	assert.Len(t, e.Document()["skills"], 22)
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, document.SameNode(e.Document(), last), "the hooks saw the final document")
}

func TestEditor_RewriteRequestedDuringEditTargetsEditedDocument(t *testing.T) {
	doc := document.New()
	doc["experience"] = []any{
		map[string]any{"company": "A Corp", "position": "A"},
		map[string]any{"company": "B Corp", "position": "B"},
		map[string]any{"company": "C Corp", "position": "C"},
	}

	var e *Editor
	var once sync.Once
	follow := make(chan *transform.Handle, 1)
	suffix := func(_ context.Context, _ path.Path, cur any) (any, error) {
		return cur.(string) + " (rewritten)", nil
	}
	// As soon as the edit cancels the rewrite of the first entry, ask for the second.
	e = New(doc, WithTransformOptions(transform.WithObserver(func(pt transform.PendingTransform) {
		if pt.FieldPath != "experience.0.position" || pt.Status != transform.StatusCancelled {
			return
		}
		once.Do(func() {
			h, err := e.Rewrite(context.Background(), path.MustParse("experience.1.position"), suffix)
			assert.NoError(t, err)
			follow <- h
		})
	})))
	defer e.Close()

	ch := make(chan string, 1)
	hFirst, err := e.Rewrite(context.Background(), path.MustParse("experience.0.position"), release(ch))
	require.NoError(t, err)

	require.NoError(t, e.Remove(path.MustParse("experience"), 0))
	assert.Equal(t, transform.StatusCancelled, hFirst.Status())

	var hNext *transform.Handle
	select {
	case hNext = <-follow:
	case <-time.After(5 * time.Second):
		t.Fatal("no rewrite requested after the edit")
	}
	require.NotNil(t, hNext)
	assert.Equal(t, transform.StatusApplied, settle(t, hNext).Status)
	ch <- "Late"
	e.Wait()

	assert.Equal(t, []any{
		map[string]any{"company": "B Corp", "position": "B"},
		map[string]any{"company": "C Corp", "position": "C (rewritten)"},
	}, e.Document()["experience"])
}

func TestEditor_SlowCommitHookDoesNotBlockEdits(t *testing.T) {
	var mu sync.Mutex
	var seen []document.Document
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	e := New(sampleDoc(), WithCommitHook(func(doc document.Document) {
		once.Do(func() {
			close(entered)
			<-unblock
		})
		mu.Lock()
		seen = append(seen, doc)
		mu.Unlock()
	}))
	defer e.Close()

	h, err := e.Rewrite(context.Background(), path.MustParse("summary"),
		func(context.Context, path.Path, any) (any, error) { return "Rewritten", nil })
	require.NoError(t, err)
	<-entered
	assert.Equal(t, transform.StatusApplied, h.Status(), "the result settles before the hooks run")

	edited := make(chan error, 1)
	go func() {
		edited <- e.SetField(path.MustParse("personal.title"), "Engineer")
	}()
	select {
	case err := <-edited:
		require.NoError(t, err)
	case <-time.After(time.Second):
		close(unblock)
		t.Fatal("edit blocked behind a running commit hook")
	}
	assert.False(t, e.Pending(path.MustParse("summary")))
	assert.Equal(t, "Engineer", get(t, e.Document(), "personal.title"))

	close(unblock)
	e.Wait()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2 && document.SameNode(seen[1], e.Document())
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Rewritten", seen[0]["summary"])
	assert.Equal(t, "Engineer", get(t, seen[1], "personal.title"))
}

func TestEditor_Live(t *testing.T) {
	e := New(sampleDoc())
	defer e.Close()
	assert.True(t, document.SameNode(e.Document(), e.Live()))

	require.NoError(t, e.StartSection("summary"))
	require.NoError(t, e.SetField(path.MustParse("summary"), "Draft"))
	assert.Equal(t, "Draft", e.Live()["summary"])
	assert.Equal(t, "Engineer", e.Document()["summary"])

	require.NoError(t, e.Cancel())
	assert.Equal(t, "Engineer", e.Live()["summary"])
}
