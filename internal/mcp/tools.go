// Package mcp exposes the approval queue as MCP tools backed by the HTTP API.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server is the MCP tool server for the approval workflow
type Server struct {
	server  *mcpsdk.Server
	handler *Handler
}

// NewServer creates the MCP server and registers the inbox tools
func NewServer(client *Client, version string) *Server {
	s := &Server{
		server: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    "inbox-autopilot",
			Version: version,
		}, nil),
		handler: NewHandler(client),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	h := s.handler

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "inbox_list_pending",
		Description: "List messages waiting for human review, newest first, with the suggested reply and its confidence.",
	}, h.ListPending)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "inbox_get_message",
		Description: "Get one message with its latest suggested reply, including status and any generation error code.",
	}, h.GetMessage)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "inbox_approve",
		Description: "Approve a pending message and send the reply. Pass final_response to send edited text instead of the suggestion; edits are remembered as corrections.",
	}, h.Approve)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "inbox_reject",
		Description: "Reject a pending message. Nothing is sent.",
	}, h.Reject)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "inbox_regenerate",
		Description: "Generate a new, different suggestion for a pending message. The previous attempt is kept.",
	}, h.Regenerate)
}

// Connect serves the tools over an arbitrary transport
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Run serves the tools over stdio until the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}
