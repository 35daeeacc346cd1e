package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/solvane/lumen/internal/events"
	"github.com/solvane/lumen/internal/models"
	"github.com/solvane/lumen/internal/offline"
	"github.com/solvane/lumen/internal/testutil"
	"github.com/solvane/lumen/internal/tracker"
)

// nullProvider is a remote backend that accepts everything and stores nothing.
type nullProvider struct{}

func (nullProvider) ReadHabits(context.Context, string) (models.HabitMap, error) {
	return models.HabitMap{}, nil
}
func (nullProvider) WriteHabits(context.Context, string, models.HabitMap) error { return nil }
func (nullProvider) ReadProgress(context.Context, string) (models.ProgressMap, error) {
	return models.ProgressMap{}, nil
}
func (nullProvider) WriteProgress(context.Context, string, models.ProgressMap) error { return nil }
func (nullProvider) Ping(context.Context) error                                      { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	broker := events.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	svc := tracker.New("u1", nullProvider{}, db, offline.NewQueue(db, logger), broker, logger, time.Sunday)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_habits":
		result, err = srv.listHabits(ctx, req)
	case "add_habit":
		result, err = srv.addHabit(ctx, req)
	case "log_progress":
		result, err = srv.logProgress(ctx, req)
	case "get_streak":
		result, err = srv.getStreak(ctx, req)
	case "month_summary":
		result, err = srv.monthSummary(ctx, req)
	case "get_progress_contract":
		result, err = srv.getProgressContract(ctx, req)
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

func TestAddAndListHabits(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "add_habit", map[string]interface{}{
		"name":   "Read",
		"unit":   "pages",
		"target": 20,
	})
	text := resultText(r)
	if text != "created habit 1: Read" {
		t.Errorf("add result = %q", text)
	}

	r = callTool(t, srv, "list_habits", map[string]interface{}{})
	text = resultText(r)
	if !strings.Contains(text, `"name": "Read"`) {
		t.Errorf("list missing habit: %q", text)
	}
	if !strings.Contains(text, `"unit": "pages"`) {
		t.Errorf("list missing unit: %q", text)
	}
}

func TestAddHabitDuplicate(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_habit", map[string]interface{}{"name": "Run"})

	r := callTool(t, srv, "add_habit", map[string]interface{}{"name": " run "})
	if !r.IsError {
		t.Error("expected error for duplicate name")
	}
}

func TestLogProgressAndStreak(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_habit", map[string]interface{}{"name": "Read"})

	for _, date := range []string{"2024-01-14", "2024-01-15"} {
		r := callTool(t, srv, "log_progress", map[string]interface{}{
			"date":     date,
			"habit_id": 1,
			"value":    "true",
		})
		if r.IsError {
			t.Fatalf("log failed: %s", resultText(r))
		}
	}

	r := callTool(t, srv, "get_streak", map[string]interface{}{
		"habit_id": 1,
		"end":      "2024-01-15",
	})
	if text := resultText(r); text != "2" {
		t.Errorf("streak = %q, want 2", text)
	}
}

func TestLogProgressNumericValue(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_habit", map[string]interface{}{"name": "Run", "target": 5})

	r := callTool(t, srv, "log_progress", map[string]interface{}{
		"date":     "2024-01-15",
		"habit_id": 1,
		"value":    "2.5",
	})
	if r.IsError {
		t.Fatalf("log failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, "50% complete") {
		t.Errorf("result = %q", text)
	}
}

func TestLogProgressRejectsStrings(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_habit", map[string]interface{}{"name": "Read"})

	r := callTool(t, srv, "log_progress", map[string]interface{}{
		"date":     "2024-01-15",
		"habit_id": 1,
		"value":    `"yes"`,
	})
	if !r.IsError {
		t.Error("expected error for string value")
	}
}

func TestLogProgressUnknownHabit(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "log_progress", map[string]interface{}{
		"date":     "2024-01-15",
		"habit_id": 42,
		"value":    "true",
	})
	if !r.IsError {
		t.Error("expected error for unknown habit")
	}
}

func TestMonthSummary(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_habit", map[string]interface{}{"name": "Read"})
	callTool(t, srv, "log_progress", map[string]interface{}{
		"date":     "2024-03-10",
		"habit_id": 1,
		"value":    "true",
	})

	r := callTool(t, srv, "month_summary", map[string]interface{}{"month": "2024-03"})
	text := resultText(r)
	if !strings.Contains(text, "2024-03-10: 100%") {
		t.Errorf("summary missing logged day: %q", text)
	}
	// 31 days of March, one line each.
	if got := strings.Count(text, "\n"); got != 31 {
		t.Errorf("summary lines = %d, want 31", got)
	}
}

func TestMonthSummaryBadMonth(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "month_summary", map[string]interface{}{"month": "March"})
	if !r.IsError {
		t.Error("expected error for malformed month")
	}
}

func TestProgressContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_progress_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "YYYY-MM-DD") {
		t.Error("contract missing date format")
	}
}
