package mcpserver

import (
	"context"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tokenledger/internal/ledger"
)

// NewServer builds an MCP server exposing the usage tools over l.
func NewServer(l *ledger.Ledger, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "tokenledger",
			Version: version,
		},
		nil,
	)

	registerUsageTools(server, &usageTools{ledger: l})
	return server
}

// RunStdio serves the MCP server over stdin/stdout until ctx is done or the
// client disconnects.
func RunStdio(ctx context.Context, server *mcpsdk.Server) error {
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

// HTTPHandler returns a streamable-HTTP handler serving server on every request.
func HTTPHandler(server *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return server
	}, nil)
}
