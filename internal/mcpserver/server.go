// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes ContextWise notes to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/contextwise/internal/models"
	"github.com/starford/contextwise/internal/pipeline"
	"github.com/starford/contextwise/internal/store"
	"github.com/starford/contextwise/internal/view"
)

const guideURI = "contextwise://note-guide"

// NoteCreator runs the note-creation pipeline.
type NoteCreator interface {
	CreateNote(ctx context.Context, sess *models.Session, in pipeline.Input) (*pipeline.Outcome, error)
}

// Server wraps the MCP server. All tools act as the bound session's user.
type Server struct {
	mcp   *server.MCPServer
	notes NoteCreator
	repo  store.NoteRepository
	sess  *models.Session
}

// New creates an MCP server for sess with all tools registered.
func New(notes NoteCreator, repo store.NoteRepository, sess *models.Session, version string) *Server {
	s := &Server{notes: notes, repo: repo, sess: sess}

	s.mcp = server.NewMCPServer(
		"ContextWise",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The content is summarized and people, organizations "+
			"and locations in it become tags. Read "+guideURI+" for details."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body in plain text")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, optionally filtered by tag substring."),
		mcp.WithString("tag", mcp.Description("Optional case-insensitive tag substring")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note with its summary and tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every distinct tag name, sorted."),
	), s.listTags)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Note Guide",
			mcp.WithResourceDescription("How notes are summarized and tagged."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
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

type createResult struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Warning string   `json:"warning,omitempty"`
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := s.notes.CreateNote(ctx, s.sess, pipeline.Input{Title: title, Content: content})
	if err != nil {
		var be *pipeline.BlockingError
		if errors.As(err, &be) {
			return mcp.NewToolResultError(be.Message), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := createResult{
		ID:      out.Note.ID,
		Title:   out.Note.Title,
		Tags:    out.Tags,
		Warning: out.Warning,
	}
	if out.Note.Summary != nil {
		res.Summary = *out.Note.Summary
	}
	data, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.repo.ListNotesForUser(ctx, s.sess.UserID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag := ""
	if v, err := req.RequireString("tag"); err == nil {
		tag = v
	}
	notes = view.FilterByTag(notes, tag)
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}

	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		line := fmt.Sprintf("%s\t%s", n.ID, n.Title)
		if names := n.TagNames(); len(names) > 0 {
			line += "\t[" + strings.Join(names, ", ") + "]"
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "tags: "+strings.Join(view.TagNames(notes), ", "))
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.repo.ListNotesForUser(ctx, s.sess.UserID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, n := range notes {
		if n.ID == id {
			data, _ := json.MarshalIndent(n, "", "  ")
			return mcp.NewToolResultText(string(data)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.repo.ListDistinctTagNames(ctx, s.sess.UserID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     NoteGuide,
		},
	}, nil
}
