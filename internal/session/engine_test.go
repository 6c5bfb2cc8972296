package session

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(t.TempDir())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func TestCreateResolveAndGet(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, err := e.Create(context.Background(), "basic_report", "q4-report", "engineering")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if s.Alias != "q4-report" || s.TemplateID != "basic_report" || s.RenderReady {
		t.Fatalf("unexpected session: %+v", s)
	}

	for _, identifier := range []string{s.ID, "q4-report"} {
		id, err := e.Resolve(identifier, "engineering")
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", identifier, err)
		}
		if id != s.ID {
			t.Fatalf("Resolve(%q) = %s, want %s", identifier, id, s.ID)
		}
	}
}

func TestInvalidAliasRejected(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, alias := range []string{"ab", "has space", "has/slash", ""} {
		_, err := e.Create(context.Background(), "t", alias, "g")
		if !apperr.Is(err, apperr.CodeInvalidAlias) {
			t.Fatalf("Create(alias=%q) error = %v, want InvalidAlias", alias, err)
		}
	}
}

func TestAliasUniquePerGroup(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Create(ctx, "t", "shared", "engineering"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := e.Create(ctx, "t", "shared", "engineering"); !apperr.Is(err, apperr.CodeAliasInUse) {
		t.Fatalf("duplicate alias error = %v, want AliasInUse", err)
	}
	// Same alias in another group is fine.
	if _, err := e.Create(ctx, "t", "shared", "research"); err != nil {
		t.Fatalf("Create() in other group error: %v", err)
	}
}

func TestCrossGroupAccessIsNotFound(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, err := e.Create(context.Background(), "t", "abc", "engineering")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := e.Get(s.ID, "research"); !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("cross-group Get error = %v, want SessionNotFound", err)
	}
	if _, err := e.Get("abc", "research"); !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("cross-group alias Get error = %v, want SessionNotFound", err)
	}
	if err := e.Abort(s.ID, "research"); !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("cross-group Abort error = %v, want SessionNotFound", err)
	}
}

func TestGlobalParametersStickyReady(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, err := e.Create(context.Background(), "t", "abc", "g")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if ready, _, _ := e.ValidateForRender(s.ID, "g"); ready {
		t.Fatalf("fresh session should not be render-ready")
	}

	if _, err := e.SetGlobalParameters(s.ID, map[string]any{"title": "Q4"}, "g"); err != nil {
		t.Fatalf("SetGlobalParameters() error: %v", err)
	}
	got, err := e.SetGlobalParameters(s.ID, map[string]any{"author": "Data Team"}, "g")
	if err != nil {
		t.Fatalf("SetGlobalParameters() merge error: %v", err)
	}
	if got.GlobalParameters["title"] != "Q4" || got.GlobalParameters["author"] != "Data Team" {
		t.Fatalf("globals = %+v, want merged map", got.GlobalParameters)
	}
	if ready, _, _ := e.ValidateForRender(s.ID, "g"); !ready {
		t.Fatalf("session should be render-ready after set_global_parameters")
	}
}

func TestAddFragmentPositions(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, err := e.Create(context.Background(), "t", "abc", "g")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	first, err := e.AddFragment(s.ID, "paragraph", map[string]any{"text": "intro"}, "", "g")
	if err != nil {
		t.Fatalf("AddFragment() error: %v", err)
	}
	if first.PositionIndex != 0 {
		t.Fatalf("first fragment index = %d, want 0", first.PositionIndex)
	}

	end, err := e.AddFragment(s.ID, "section", nil, "end", "g")
	if err != nil {
		t.Fatalf("AddFragment(end) error: %v", err)
	}
	if end.PositionIndex != 1 {
		t.Fatalf("end index = %d, want 1", end.PositionIndex)
	}

	start, err := e.AddFragment(s.ID, "section", nil, "start", "g")
	if err != nil {
		t.Fatalf("AddFragment(start) error: %v", err)
	}
	if start.PositionIndex != 0 {
		t.Fatalf("start index = %d, want 0", start.PositionIndex)
	}

	before, err := e.AddFragment(s.ID, "section", nil, "before:"+end.InstanceGUID, "g")
	if err != nil {
		t.Fatalf("AddFragment(before) error: %v", err)
	}
	after, err := e.AddFragment(s.ID, "section", nil, "after:"+first.InstanceGUID, "g")
	if err != nil {
		t.Fatalf("AddFragment(after) error: %v", err)
	}

	fragments, err := e.ListFragments(s.ID, "g")
	if err != nil {
		t.Fatalf("ListFragments() error: %v", err)
	}
	want := []string{start.InstanceGUID, first.InstanceGUID, after.InstanceGUID, before.InstanceGUID, end.InstanceGUID}
	if len(fragments) != len(want) {
		t.Fatalf("fragment count = %d, want %d", len(fragments), len(want))
	}
	for i, guid := range want {
		if fragments[i].GUID != guid {
			t.Fatalf("fragments[%d] = %s, want %s", i, fragments[i].GUID, guid)
		}
	}
}

func TestAddFragmentInvalidPosition(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, _ := e.Create(context.Background(), "t", "abc", "g")
	if _, err := e.AddFragment(s.ID, "p", nil, "middle", "g"); !apperr.Is(err, apperr.CodeInvalidPosition) {
		t.Fatalf("bad grammar error = %v, want InvalidPosition", err)
	}
	if _, err := e.AddFragment(s.ID, "p", nil, "before:nope", "g"); !apperr.Is(err, apperr.CodeInvalidPosition) {
		t.Fatalf("unknown anchor error = %v, want InvalidPosition", err)
	}
}

func TestRemoveFragment(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, _ := e.Create(context.Background(), "t", "abc", "g")
	out, err := e.AddFragment(s.ID, "p", nil, "", "g")
	if err != nil {
		t.Fatalf("AddFragment() error: %v", err)
	}
	if err := e.RemoveFragment(s.ID, out.InstanceGUID, "g"); err != nil {
		t.Fatalf("RemoveFragment() error: %v", err)
	}
	if err := e.RemoveFragment(s.ID, out.InstanceGUID, "g"); !apperr.Is(err, apperr.CodeFragmentNotFound) {
		t.Fatalf("second remove error = %v, want FragmentNotFound", err)
	}
}

func TestAbortFreesAlias(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()

	s, _ := e.Create(ctx, "t", "abc", "g")
	if err := e.Abort(s.ID, "g"); err != nil {
		t.Fatalf("Abort() error: %v", err)
	}
	if _, err := e.Get(s.ID, "g"); !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("Get after abort error = %v, want SessionNotFound", err)
	}
	if err := e.Abort(s.ID, "g"); !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("second Abort error = %v, want SessionNotFound", err)
	}
	// Alias is free for reuse.
	if _, err := e.Create(ctx, "t", "abc", "g"); err != nil {
		t.Fatalf("Create() with freed alias error: %v", err)
	}
}

func TestRestartRecovery(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	e1, err := NewEngine(dir)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	s, err := e1.Create(context.Background(), "basic_report", "persist-me", "g")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := e1.SetGlobalParameters(s.ID, map[string]any{"title": "T"}, "g"); err != nil {
		t.Fatalf("SetGlobalParameters() error: %v", err)
	}
	added, err := e1.AddFragment(s.ID, "paragraph", map[string]any{"text": "x"}, "", "g")
	if err != nil {
		t.Fatalf("AddFragment() error: %v", err)
	}

	e2, err := NewEngine(dir)
	if err != nil {
		t.Fatalf("NewEngine() reload error: %v", err)
	}
	got, err := e2.Get("persist-me", "g")
	if err != nil {
		t.Fatalf("Get() after reload error: %v", err)
	}
	if got.ID != s.ID || !got.RenderReady || len(got.Fragments) != 1 || got.Fragments[0].GUID != added.InstanceGUID {
		t.Fatalf("reloaded session = %+v, want state preserved", got)
	}
}

func TestListScopedToGroup(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()

	a, _ := e.Create(ctx, "t", "first", "engineering")
	b, _ := e.Create(ctx, "t", "second", "engineering")
	e.Create(ctx, "t", "other", "research")

	got := e.List("engineering")
	if len(got) != 2 {
		t.Fatalf("List() = %d sessions, want 2", len(got))
	}
	if got[0].SessionID != a.ID || got[1].SessionID != b.ID {
		t.Fatalf("List() order = [%s %s], want oldest first", got[0].SessionID, got[1].SessionID)
	}
	if got[0].Alias != "first" {
		t.Fatalf("summary alias = %q, want %q", got[0].Alias, "first")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	s, err := e.Create(context.Background(), "t", "busy-report", "research")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			if _, err := e.SetGlobalParameters(s.ID, map[string]any{"n": n}, "research"); err != nil {
				t.Errorf("SetGlobalParameters() error: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			got, err := e.Get(s.ID, "research")
			if err != nil {
				t.Errorf("Get() error: %v", err)
				return
			}
			// Readers must only ever see committed state.
			if got.ID != s.ID {
				t.Errorf("Get() returned session %s, want %s", got.ID, s.ID)
			}
		}()
	}
	wg.Wait()
}

func TestFailedPersistLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e, err := NewEngine(dir)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	s, err := e.Create(context.Background(), "t", "doomed-report", "g")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Removing the directory makes the next blob write fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}

	_, err = e.SetGlobalParameters(s.ID, map[string]any{"title": "lost"}, "g")
	if !apperr.Is(err, apperr.CodeLoadError) {
		t.Fatalf("SetGlobalParameters() error = %v, want LoadError", err)
	}

	got, err := e.Get(s.ID, "g")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(got.GlobalParameters) != 0 || got.RenderReady {
		t.Fatalf("rejected write is visible: %+v", got)
	}
}
