package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/catatsuy/kusari/internal/llmgr"
	"github.com/catatsuy/kusari/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type recordingObserver struct {
	mu        sync.Mutex
	commands  []llmgr.Command
	counts    map[string]int
	forgotten []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{counts: make(map[string]int)}
}

func (o *recordingObserver) Observe(list string, st llmgr.Status, count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commands = append(o.commands, st.Command)
	o.counts[list] = count
}

func (o *recordingObserver) Forget(list string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.counts, list)
	o.forgotten = append(o.forgotten, list)
}

func payloads(elems []model.Element) []string {
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, string(e.Payload))
	}
	return out
}

func TestRegisterAndDeregister(t *testing.T) {
	obs := newRecordingObserver()
	r := NewRegistry(0, obs)

	if err := r.Register("jobs", 4); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("jobs", 4); !errors.Is(err, llmgr.ErrAlreadyRegistered) {
		t.Fatalf("second Register error = %v, want ErrAlreadyRegistered", err)
	}
	if err := r.Register("bad", 0); !errors.Is(err, llmgr.ErrInvalidSize) {
		t.Fatalf("Register(size 0) error = %v, want ErrInvalidSize", err)
	}
	if _, err := r.Len("bad"); !errors.Is(err, ErrUnknownList) {
		t.Fatalf("Len of failed registration error = %v, want ErrUnknownList", err)
	}

	if _, err := r.Append("jobs", []byte("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := r.Deregister("jobs"); !errors.Is(err, llmgr.ErrNotEmpty) {
		t.Fatalf("Deregister error = %v, want ErrNotEmpty", err)
	}
	if err := r.DeleteAll("jobs"); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if err := r.Deregister("jobs"); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}
	if err := r.Deregister("jobs"); !errors.Is(err, ErrUnknownList) {
		t.Fatalf("Deregister of removed list error = %v, want ErrUnknownList", err)
	}

	if diff := cmp.Diff([]string{"bad", "jobs"}, obs.forgotten); diff != "" {
		t.Fatalf("forgotten lists mismatch (-want +got):\n%s", diff)
	}
	if len(obs.counts) != 0 {
		t.Fatalf("observer still tracks %v", obs.counts)
	}
}

func TestInsertPadsAndRejectsLargePayload(t *testing.T) {
	r := NewRegistry(0, nil)
	if err := r.Register("l", 4); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := r.Append("l", []byte("abcde")); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Append error = %v, want ErrPayloadTooLarge", err)
	}
	e, err := r.Append("l", []byte("ab"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if diff := cmp.Diff([]byte{'a', 'b', 0, 0}, e.Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if e.Token == "" || e.Token == "-" {
		t.Fatalf("Append returned token %q", e.Token)
	}

	// the returned payload is a copy
	e.Payload[0] = 'z'
	cur, ok, err := r.Current("l")
	if err != nil || !ok {
		t.Fatalf("Current() = %v, %v", ok, err)
	}
	if cur.Payload[0] != 'a' {
		t.Fatalf("registry storage modified through returned element: %q", cur.Payload)
	}
}

func TestInsertPositionsAndDump(t *testing.T) {
	r := NewRegistry(0, nil)
	if err := r.Register("l", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	for _, p := range []string{"a", "c"} {
		if _, err := r.Append("l", []byte(p)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if _, err := r.Insert("l", Before, []byte("b")); err != nil {
		t.Fatalf("Insert before failed: %v", err)
	}
	if _, err := r.Insert("l", After, []byte("B")); err != nil {
		t.Fatalf("Insert after failed: %v", err)
	}

	elems, err := r.Dump("l")
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "B", "c"}, payloads(elems)); diff != "" {
		t.Fatalf("dump mismatch (-want +got):\n%s", diff)
	}

	// Dump restores the cursor.
	cur, _, _ := r.Current("l")
	if string(cur.Payload) != "B" {
		t.Fatalf("cursor after Dump = %q, want B", cur.Payload)
	}

	// Seeking to a dumped token lands on that element.
	tok, err := llmgr.ParseToken(elems[0].Token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if err := r.Seek("l", tok); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	cur, _, _ = r.Current("l")
	if diff := cmp.Diff(elems[0], cur); diff != "" {
		t.Fatalf("element after Seek mismatch (-want +got):\n%s", diff)
	}
}

func TestPointAndTokens(t *testing.T) {
	r := NewRegistry(0, nil)
	if err := r.Register("l", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Point("l", Next); !errors.Is(err, llmgr.ErrEmpty) {
		t.Fatalf("Point next on empty list error = %v, want ErrEmpty", err)
	}
	if _, err := r.Token("l"); !errors.Is(err, llmgr.ErrEmpty) {
		t.Fatalf("Token on empty list error = %v, want ErrEmpty", err)
	}
	if _, ok, err := r.Current("l"); ok || err != nil {
		t.Fatalf("Current on empty list = %v, %v", ok, err)
	}

	for _, p := range []string{"x", "y", "z"} {
		if _, err := r.Append("l", []byte(p)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := r.Point("l", Top); err != nil {
		t.Fatalf("Point top failed: %v", err)
	}
	if err := r.Point("l", Last); !errors.Is(err, llmgr.ErrListEnd) {
		t.Fatalf("Point last at head error = %v, want ErrListEnd", err)
	}
	if err := r.Point("l", Next); err != nil {
		t.Fatalf("Point next failed: %v", err)
	}
	tok, err := r.Token("l")
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if err := r.Point("l", Bottom); err != nil {
		t.Fatalf("Point bottom failed: %v", err)
	}
	if err := r.Delete("l"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := r.Seek("l", tok); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	cur, _, _ := r.Current("l")
	if string(cur.Payload) != "y" {
		t.Fatalf("current after Seek = %q, want y", cur.Payload)
	}

	if err := r.Delete("l"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := r.Seek("l", tok); !errors.Is(err, llmgr.ErrInvalidAddress) {
		t.Fatalf("Seek to deleted element error = %v, want ErrInvalidAddress", err)
	}
	if err := r.Seek("l", llmgr.Token{}); !errors.Is(err, llmgr.ErrInvalidToken) {
		t.Fatalf("Seek with zero token error = %v, want ErrInvalidToken", err)
	}

	st, err := r.Status("l")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Command != llmgr.CmdSetPointer || st.Code != llmgr.CodeInvalidToken || st.File != "registry.go" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestMaxElements(t *testing.T) {
	r := NewRegistry(1, nil)
	if err := r.Register("l", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := r.Append("l", []byte("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	_, err := r.Append("l", []byte("b"))
	if !errors.Is(err, llmgr.ErrAllocFail) || !llmgr.IsFatal(err) {
		t.Fatalf("Append beyond capacity error = %v, want fatal ErrAllocFail", err)
	}
	if n, _ := r.Len("l"); n != 1 {
		t.Fatalf("Len() = %d, want 1", n)
	}
}

func TestListsAndClose(t *testing.T) {
	obs := newRecordingObserver()
	r := NewRegistry(0, obs)
	for name, size := range map[string]int{"b": 2, "a": 1} {
		if err := r.Register(name, size); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}
	if _, err := r.Append("b", []byte("x")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	want := []model.ListInfo{
		{Name: "a", ElementSize: 1, Count: 0},
		{Name: "b", ElementSize: 2, Count: 1},
	}
	if diff := cmp.Diff(want, r.Lists()); diff != "" {
		t.Fatalf("Lists mismatch (-want +got):\n%s", diff)
	}

	r.Close()
	if got := r.Lists(); len(got) != 0 {
		t.Fatalf("Lists after Close = %v", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, obs.forgotten, cmpopts.SortSlices(func(x, y string) bool { return x < y })); diff != "" {
		t.Fatalf("forgotten mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArguments(t *testing.T) {
	for s, want := range map[string]Position{"end": End, "BEFORE": Before, "after": After} {
		got, err := ParsePosition(s)
		if err != nil || got != want {
			t.Fatalf("ParsePosition(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParsePosition("middle"); !errors.Is(err, ErrUnknownPosition) {
		t.Fatalf("ParsePosition(middle) error = %v", err)
	}

	for s, want := range map[string]Move{"top": Top, "bottom": Bottom, "next": Next, "last": Last, "prev": Last} {
		got, err := ParseMove(s)
		if err != nil || got != want {
			t.Fatalf("ParseMove(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseMove("sideways"); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("ParseMove(sideways) error = %v", err)
	}
}

func TestUnknownList(t *testing.T) {
	r := NewRegistry(0, nil)
	calls := map[string]func() error{
		"Delete":    func() error { return r.Delete("x") },
		"DeleteAll": func() error { return r.DeleteAll("x") },
		"Point":     func() error { return r.Point("x", Top) },
		"Seek":      func() error { return r.Seek("x", llmgr.Token{}) },
		"Append":    func() error { _, err := r.Append("x", nil); return err },
		"Dump":      func() error { _, err := r.Dump("x"); return err },
		"Status":    func() error { _, err := r.Status("x"); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrUnknownList) {
			t.Fatalf("%s error = %v, want ErrUnknownList", name, err)
		}
	}
}
