// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lumen tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/solvane/lumen/internal/habits"
	"github.com/solvane/lumen/internal/models"
	"github.com/solvane/lumen/internal/tracker"
)

// Server wraps the MCP server with Lumen tools.
type Server struct {
	mcp *server.MCPServer
	svc *tracker.Service
}

// New creates a new MCP server with all Lumen tools registered.
func New(svc *tracker.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lumen",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_habits",
		mcp.WithDescription("List all habits with their ids, targets, units, and active flags."),
	), s.listHabits)

	s.mcp.AddTool(mcp.NewTool("add_habit",
		mcp.WithDescription("Create a new habit. Names are unique case-insensitively."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Habit name (e.g. Read)")),
		mcp.WithString("unit", mcp.Description("Optional unit for quantified habits (e.g. pages)")),
		mcp.WithNumber("target", mcp.Description("Optional daily target amount (defaults to 1)")),
	), s.addHabit)

	s.mcp.AddTool(mcp.NewTool("log_progress",
		mcp.WithDescription("Record a progress value for one habit on one day. "+
			"The value is a bare bool or number; read the contract first via the "+
			"get_progress_contract tool or the lumen://progress-format resource."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD form")),
		mcp.WithNumber("habit_id", mcp.Required(), mcp.Description("Habit id (see list_habits)")),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON scalar: true, false, or a number")),
	), s.logProgress)

	s.mcp.AddTool(mcp.NewTool("get_streak",
		mcp.WithDescription("Current consecutive-day completion streak for a habit."),
		mcp.WithNumber("habit_id", mcp.Required(), mcp.Description("Habit id")),
		mcp.WithString("end", mcp.Description("End date YYYY-MM-DD (defaults to today)")),
	), s.getStreak)

	s.mcp.AddTool(mcp.NewTool("month_summary",
		mcp.WithDescription("Per-day completion percentages for a calendar month."),
		mcp.WithString("month", mcp.Required(), mcp.Description("Month in YYYY-MM form")),
	), s.monthSummary)

	s.mcp.AddTool(mcp.NewTool("get_progress_contract",
		mcp.WithDescription("Returns the progress value format contract. "+
			"Call this before logging progress to ensure correct values."),
	), s.getProgressContract)

	// Resource: progress format contract.
	s.mcp.AddResource(
		mcp.NewResource("lumen://progress-format", "Progress Format Contract",
			mcp.WithResourceDescription("Canonical progress value model that all entries must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProgressFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listHabits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Habits(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addHabit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params := habits.AddParams{
		Unit:   req.GetString("unit", ""),
		Target: req.GetFloat("target", 0),
	}
	h, err := s.svc.AddHabit(ctx, name, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created habit %d: %s", h.ID, h.Name)), nil
}

func (s *Server) logProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	habitID, err := req.RequireFloat("habit_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var value models.Value
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &value); err != nil {
		return mcp.NewToolResultError("value must be true, false, or a number"), nil
	}

	percent, err := s.svc.SetProgress(ctx, date, int64(habitID), value)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("logged %s for habit %d on %s (day now %d%% complete)",
		raw, int64(habitID), date, percent)), nil
}

func (s *Server) getStreak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	habitID, err := req.RequireFloat("habit_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end := req.GetString("end", "")
	streak, err := s.svc.Streak(int64(habitID), end)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", streak)), nil
}

func (s *Server) monthSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month, err := req.RequireString("month")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	monthDate, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return mcp.NewToolResultError("month must be YYYY-MM"), nil
	}

	var b strings.Builder
	for _, d := range s.svc.Calendar(monthDate) {
		if !d.CurrentMonth {
			continue
		}
		fmt.Fprintf(&b, "%s: %d%%\n", d.DateString, d.Percent)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getProgressContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProgressFormatContract), nil
}

func (s *Server) readProgressFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "lumen://progress-format",
			MIMEType: "text/markdown",
			Text:     ProgressFormatContract,
		},
	}, nil
}
