package domsvg

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snapkit/kit"
)

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// RegisterMCP registers the domsvg tools on srv.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	eps := s.Endpoints()

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "domsvg_capture",
		Description: "Load a web page, select one element and return it as a self-contained SVG snapshot (JSON with id, svg, svg_hash, width, height, nodes).",
		InputSchema: inputSchema(map[string]any{
			"url":      map[string]any{"type": "string", "description": "Page URL (http or https)"},
			"selector": map[string]any{"type": "string", "description": "CSS selector of the element (default: body)"},
			"width":    map[string]any{"type": "number", "description": "Envelope width override"},
			"height":   map[string]any{"type": "number", "description": "Envelope height override"},
			"size":     map[string]any{"type": "number", "description": "Scale factor for the envelope dimensions (default 1)"},
		}, []string{"url"}),
	}, eps.Capture, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var args CaptureRequest
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: args}, nil
	})

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "domsvg_render_html",
		Description: "Convert an HTML fragment into an SVG snapshot without a browser. Only inline style attributes are applied.",
		InputSchema: inputSchema(map[string]any{
			"html":   map[string]any{"type": "string", "description": "HTML fragment"},
			"width":  map[string]any{"type": "number", "description": "Envelope width"},
			"height": map[string]any{"type": "number", "description": "Envelope height"},
			"size":   map[string]any{"type": "number", "description": "Scale factor (default 1)"},
		}, []string{"html"}),
	}, eps.Render, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var args RenderRequest
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: args}, nil
	})
}
