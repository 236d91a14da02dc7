package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/classdeck/internal/snapshot"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/timing"
)

var cst = time.FixedZone("CST", 8*3600)

func testServer(t *testing.T, clock time.Time) (*Server, *storage.FS) {
	t.Helper()

	container, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(container, snapshot.DefaultFilename, timing.Default, timing.NewFormatter(cst))
	srv.now = func() time.Time { return clock }
	return srv, container
}

func writeEntries(t *testing.T, container *storage.FS, entries ...snapshot.Entry) {
	t.Helper()
	data, err := snapshot.Encode(snapshot.Document{Date: "2026-10-19", Entries: entries}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Write(snapshot.DefaultFilename, data); err != nil {
		t.Fatal(err)
	}
}

func callTool(t *testing.T, srv *Server, name string) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name

	// mcp-go has no direct "call tool" test helper, so handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_today_schedule":
		result, err = srv.getTodaySchedule(ctx, req)
	case "get_current_class":
		result, err = srv.getCurrentClass(ctx, req)
	case "get_snapshot_contract":
		result, err = srv.getSnapshotContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var compilers = snapshot.Entry{Name: "Compilers", Location: "B-204", PeriodIndex: 3, PeriodSpan: 2}

func TestTodaySchedule(t *testing.T) {
	srv, container := testServer(t, time.Date(2026, 10, 19, 9, 0, 0, 0, cst))
	writeEntries(t, container, compilers, snapshot.Entry{Name: "Ghost", PeriodIndex: 42, PeriodSpan: 1})

	r := callTool(t, srv, "get_today_schedule")
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	text := resultText(r)
	for _, want := range []string{`"Compilers"`, `"start": "10:00"`, `"end": "11:30"`, `"Ghost"`, `"stale": false`} {
		if !strings.Contains(text, want) {
			t.Errorf("schedule missing %s:\n%s", want, text)
		}
	}
}

func TestTodayScheduleStale(t *testing.T) {
	srv, container := testServer(t, time.Date(2026, 10, 20, 9, 0, 0, 0, cst))
	writeEntries(t, container, compilers)

	if text := resultText(callTool(t, srv, "get_today_schedule")); !strings.Contains(text, `"stale": true`) {
		t.Errorf("expected stale snapshot:\n%s", text)
	}
}

func TestCurrentClass(t *testing.T) {
	srv, container := testServer(t, time.Date(2026, 10, 19, 10, 1, 0, 0, cst))
	writeEntries(t, container, compilers)

	text := resultText(callTool(t, srv, "get_current_class"))
	if !strings.Contains(text, `"Compilers"`) || !strings.Contains(text, `"percent": "1.1"`) {
		t.Errorf("current class = %s", text)
	}
}

func TestCurrentClassNothingLeft(t *testing.T) {
	srv, container := testServer(t, time.Date(2026, 10, 19, 11, 31, 0, 0, cst))
	writeEntries(t, container, compilers)

	if text := resultText(callTool(t, srv, "get_current_class")); !strings.HasPrefix(text, "no class") {
		t.Errorf("current class = %s", text)
	}
}

func TestMissingSnapshot(t *testing.T) {
	srv, _ := testServer(t, time.Date(2026, 10, 19, 10, 1, 0, 0, cst))
	r := callTool(t, srv, "get_today_schedule")
	if !r.IsError {
		t.Error("expected error without a snapshot")
	}
}

func TestSnapshotContract(t *testing.T) {
	srv, _ := testServer(t, time.Now())
	if text := resultText(callTool(t, srv, "get_snapshot_contract")); !strings.Contains(text, "periodIndex") {
		t.Error("contract should describe the entry fields")
	}
}
