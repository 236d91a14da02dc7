// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes today's schedule snapshot to assistant tools via stdio transport.
// It only reads the snapshot; it never opens the primary store.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/classdeck/internal/apperr"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/timing"
	"github.com/starford/classdeck/internal/widget"
)

const contractURI = "classdeck://snapshot-format"

// Server wraps the MCP server with classdeck tools.
type Server struct {
	mcp       *server.MCPServer
	src       storage.Provider
	name      string
	table     timing.Table
	formatter *timing.Formatter
	now       func() time.Time
}

// New creates a new MCP server reading the snapshot name from src.
func New(src storage.Provider, name string, table timing.Table, f *timing.Formatter) *Server {
	s := &Server{src: src, name: name, table: table, formatter: f, now: time.Now}

	s.mcp = server.NewMCPServer(
		"classdeck",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_today_schedule",
		mcp.WithDescription("List today's classes with start and end times, in order. "+
			"Reads the schedule snapshot exported by the main app."),
	), s.getTodaySchedule)

	s.mcp.AddTool(mcp.NewTool("get_current_class",
		mcp.WithDescription("Report the class or classes in progress right now with their "+
			"progress, and the next class of the day."),
	), s.getCurrentClass)

	s.mcp.AddTool(mcp.NewTool("get_snapshot_contract",
		mcp.WithDescription("Returns the schedule snapshot format these tools read."),
	), s.getSnapshotContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Snapshot Format",
			mcp.WithResourceDescription("Exchange format of today's schedule snapshot."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

// load reads the snapshot and the state at the current time.
func (s *Server) load() (widget.LoadResult, widget.DisplayState, error) {
	res := widget.Load(s.src, s.name)
	if res.Status == widget.StatusNoData {
		return res, widget.DisplayState{}, fmt.Errorf("%w: %s", apperr.ErrNoSnapshot, res.Err)
	}
	now := s.now().In(s.formatter.Location())
	return res, widget.CurrentState(res.Entries, now, s.table), nil
}

type scheduleResult struct {
	Date        string        `json:"date,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Stale       bool          `json:"stale"`
	Classes     []widget.Slot `json:"classes"`
	Unscheduled []string      `json:"unscheduled,omitempty"`
}

func (s *Server) getTodaySchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, st, err := s.load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := scheduleResult{
		Date:        res.Date,
		GeneratedAt: res.GeneratedAt,
		Stale:       res.StaleAt(s.formatter, s.now()),
		Classes:     st.Slots,
	}
	for _, e := range st.Unscheduled {
		out.Unscheduled = append(out.Unscheduled, e.Name)
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getCurrentClass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, st, err := s.load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !st.HasCurrent() && st.Next == nil {
		return mcp.NewToolResultText("no class in progress and none later today"), nil
	}
	data, _ := json.MarshalIndent(struct {
		Current []widget.Current `json:"current"`
		Next    *widget.Slot     `json:"next,omitempty"`
	}{st.Current, st.Next}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getSnapshotContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SnapshotFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     SnapshotFormatContract,
		},
	}, nil
}
