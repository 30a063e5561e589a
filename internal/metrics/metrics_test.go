package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/catatsuy/kusari/internal/llmgr"
)

func TestObserveAndForget(t *testing.T) {
	m := New()
	ok := llmgr.Status{OK: true, CommandName: "ADD_END", CodeName: "OK"}
	end := llmgr.Status{CommandName: "POINT_NEXT", CodeName: "LIST_END"}

	m.Observe("jobs", ok, 1)
	m.Observe("jobs", ok, 2)
	m.Observe("jobs", end, 2)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("ADD_END", "OK")); got != 2 {
		t.Fatalf("ADD_END/OK = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("POINT_NEXT", "LIST_END")); got != 1 {
		t.Fatalf("POINT_NEXT/LIST_END = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.elements.WithLabelValues("jobs")); got != 2 {
		t.Fatalf("elements{jobs} = %v, want 2", got)
	}

	m.Forget("jobs")
	if n := testutil.CollectAndCount(m.elements); n != 0 {
		t.Fatalf("elements series after Forget = %d, want 0", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe("jobs", llmgr.Status{OK: true, CommandName: "REGISTER", CodeName: "OK"}, 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	for _, want := range []string{
		`kusari_operations_total{code="OK",command="REGISTER"} 1`,
		`kusari_elements{list="jobs"} 0`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}
