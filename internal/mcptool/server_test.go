package mcptool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/executor"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/pagedata"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	analysis   *automation.Analysis
	err        error
	lastOpts   automation.ScreenshotOptions
	lastReq    automation.Request
	automateOK bool
}

func (f *fakePages) AnalyzePage(ctx context.Context, url string) (*automation.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func (f *fakePages) CaptureScreenshot(ctx context.Context, url string, opts automation.ScreenshotOptions) (*automation.Screenshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastOpts = opts
	return &automation.Screenshot{Base64: "aGVsbG8="}, nil
}

func (f *fakePages) Automate(ctx context.Context, req automation.Request) (*automation.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &automation.Result{ActionResult: executor.ActionResult{Success: f.automateOK, Message: "done"}}, nil
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content is %T", res.Content[0])
	return text.Text
}

func newTestServer(pages *fakePages) *Server {
	return NewServer("pageagent", "test", pages, logger.NewTestLogger())
}

func TestAnalyzePage(t *testing.T) {
	pages := &fakePages{analysis: &automation.Analysis{
		ScreenshotBase64: "aGVsbG8=",
		Snapshot:         &pagedata.Snapshot{Title: "ТехноМир"},
		Description:      "Страница: ТехноМир",
	}}
	s := newTestServer(pages)

	res, err := s.analyzePage(context.Background(), callRequest(ToolAnalyzePage, map[string]interface{}{"url": "https://shop.example"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got automation.Analysis
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.Equal(t, "Страница: ТехноМир", got.Description)
	assert.Empty(t, got.ScreenshotBase64)
	assert.Equal(t, "aGVsbG8=", pages.analysis.ScreenshotBase64)

	res, err = s.analyzePage(context.Background(), callRequest(ToolAnalyzePage, map[string]interface{}{
		"url":                "https://shop.example",
		"include_screenshot": true,
	}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.Equal(t, "aGVsbG8=", got.ScreenshotBase64)
}

func TestAnalyzePage_Errors(t *testing.T) {
	s := newTestServer(&fakePages{err: browser.ErrLaunchFailed})

	res, err := s.analyzePage(context.Background(), callRequest(ToolAnalyzePage, map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.analyzePage(context.Background(), callRequest(ToolAnalyzePage, map[string]interface{}{"url": "https://shop.example"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "analyze_page failed")
}

func TestScreenshot(t *testing.T) {
	pages := &fakePages{}
	s := newTestServer(pages)

	res, err := s.screenshot(context.Background(), callRequest(ToolScreenshot, map[string]interface{}{
		"url":   "https://shop.example",
		"width": float64(800),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 800, pages.lastOpts.Width)
	assert.True(t, pages.lastOpts.FullPage)

	var image *mcp.ImageContent
	for _, c := range res.Content {
		if img, ok := c.(mcp.ImageContent); ok {
			image = &img
		}
	}
	require.NotNil(t, image)
	assert.Equal(t, "aGVsbG8=", image.Data)
	assert.Equal(t, "image/jpeg", image.MIMEType)
}

func TestAutomate(t *testing.T) {
	pages := &fakePages{automateOK: true}
	s := newTestServer(pages)

	res, err := s.automate(context.Background(), callRequest(ToolAutomate, map[string]interface{}{
		"action":          automation.ActionFillForm,
		"url":             "https://shop.example/signup",
		"form_data":       map[string]interface{}{"email": "user@example.com", "age": float64(30)},
		"submit_selector": "#submit",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, automation.ActionFillForm, pages.lastReq.Action)
	assert.Equal(t, map[string]string{"email": "user@example.com", "age": "30"}, pages.lastReq.Params.FormData)
	assert.Equal(t, "#submit", pages.lastReq.Params.SubmitSelector)

	pages.automateOK = false
	res, err = s.automate(context.Background(), callRequest(ToolAutomate, map[string]interface{}{
		"action":      automation.ActionClick,
		"url":         "https://shop.example",
		"button_text": "Войти",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Войти", pages.lastReq.Params.ButtonText)

	res, err = s.automate(context.Background(), callRequest(ToolAutomate, map[string]interface{}{"url": "https://shop.example"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
