// Package mcptool exposes page analysis and browser automation as MCP tools
// so coding agents can drive the same browser pipeline as the HTTP API.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	ToolAnalyzePage = "analyze_page"
	ToolScreenshot  = "screenshot"
	ToolAutomate    = "automate"
)

// PageService is the automation surface the tools call.
type PageService interface {
	AnalyzePage(ctx context.Context, url string) (*automation.Analysis, error)
	CaptureScreenshot(ctx context.Context, url string, opts automation.ScreenshotOptions) (*automation.Screenshot, error)
	Automate(ctx context.Context, req automation.Request) (*automation.Result, error)
}

// Server registers the tools on an MCP server.
type Server struct {
	pages     PageService
	logger    logger.Logger
	mcpServer *mcpserver.MCPServer
}

// NewServer builds the MCP server and registers every tool.
func NewServer(name, version string, pages PageService, log logger.Logger) *Server {
	s := &Server{
		pages:  pages,
		logger: log.WithField("component", "mcp"),
		mcpServer: mcpserver.NewMCPServer(
			name,
			version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithLogging(),
			mcpserver.WithRecovery(),
		),
	}

	s.mcpServer.AddTool(mcp.NewTool(ToolAnalyzePage,
		mcp.WithDescription("Load a page in a headless browser and return its structure: title, headings, buttons, forms and links."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")),
		mcp.WithBoolean("include_screenshot", mcp.Description("Include the base64 JPEG screenshot in the result")),
	), s.analyzePage)

	s.mcpServer.AddTool(mcp.NewTool(ToolScreenshot,
		mcp.WithDescription("Capture a JPEG screenshot of a page."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")),
		mcp.WithNumber("width", mcp.Description("Viewport width in pixels")),
		mcp.WithNumber("height", mcp.Description("Viewport height in pixels")),
		mcp.WithBoolean("full_page", mcp.Description("Capture the whole scrollable page")),
	), s.screenshot)

	s.mcpServer.AddTool(mcp.NewTool(ToolAutomate,
		mcp.WithDescription("Click a button, fill a form or check that a button exists on a page."),
		mcp.WithString("action", mcp.Required(), mcp.Enum(automation.ActionClick, automation.ActionFillForm, automation.ActionFindButton)),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")),
		mcp.WithString("button_text", mcp.Description("Visible text, CSS selector or XPath of the button")),
		mcp.WithObject("form_data", mcp.Description("Field name, id or placeholder mapped to the value to type")),
		mcp.WithString("submit_selector", mcp.Description("Button that submits the form")),
	), s.automate)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools over stdin and stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) analyzePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis, err := s.pages.AnalyzePage(ctx, url)
	if err != nil {
		return s.failed(ctx, ToolAnalyzePage, err), nil
	}

	out := *analysis
	if !req.GetBool("include_screenshot", false) {
		out.ScreenshotBase64 = ""
	}
	return jsonResult(out), nil
}

func (s *Server) screenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	shot, err := s.pages.CaptureScreenshot(ctx, url, automation.ScreenshotOptions{
		Width:    req.GetInt("width", 0),
		Height:   req.GetInt("height", 0),
		FullPage: req.GetBool("full_page", true),
	})
	if err != nil {
		return s.failed(ctx, ToolScreenshot, err), nil
	}

	return mcp.NewToolResultImage(fmt.Sprintf("Screenshot of %s", url), shot.Base64, "image/jpeg"), nil
}

func (s *Server) automate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := automation.Params{
		ButtonText:     req.GetString("button_text", ""),
		SubmitSelector: req.GetString("submit_selector", ""),
	}
	if raw, ok := req.GetArguments()["form_data"].(map[string]interface{}); ok {
		params.FormData = make(map[string]string, len(raw))
		for k, v := range raw {
			params.FormData[k] = fmt.Sprint(v)
		}
	}

	res, err := s.pages.Automate(ctx, automation.Request{Action: action, URL: url, Params: params})
	if err != nil {
		return s.failed(ctx, ToolAutomate, err), nil
	}

	result := jsonResult(res)
	result.IsError = !res.Success
	return result, nil
}

func (s *Server) failed(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	s.logger.Warn(ctx, "mcp tool failed", map[string]interface{}{
		"tool":  tool,
		"error": err.Error(),
	})
	return mcp.NewToolResultError(fmt.Sprintf("tool %s failed: %v", tool, err))
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	payload, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(payload))
}
