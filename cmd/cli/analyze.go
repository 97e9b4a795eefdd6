package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse pages with the headless browser and the LLM",
	}

	cmd.AddCommand(newAnalyzePageCmd())
	cmd.AddCommand(newAnalyzeContextCmd())
	return cmd
}

func newAnalyzePageCmd() *cobra.Command {
	var req PageRequest

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Describe a page from its screenshot and structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/analysis/page", req)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp PageResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			a := resp.Analysis
			if a.Degraded {
				printMessage("WARNING: the page could not be loaded, showing fallback data")
			}
			printMessage(a.Visual)
			if a.Data != nil {
				printMessage("")
				headers := []string{"FIELD", "VALUE"}
				rows := [][]string{
					{"Title", a.Data.Title},
					{"Headings", truncate(strings.Join(a.Data.Headings, " | "), 80)},
					{"Buttons", truncate(strings.Join(a.Data.Buttons, " | "), 80)},
					{"Forms", fmt.Sprintf("%d", len(a.Data.Forms))},
					{"Links", fmt.Sprintf("%d", len(a.Data.Links))},
				}
				printTable(headers, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.URL, "page", "", "Page URL (required)")
	cmd.MarkFlagRequired("page")
	cmd.Flags().StringVar(&req.AgentID, "agent", "", "Agent ID the analysis is for")
	return cmd
}

func newAnalyzeContextCmd() *cobra.Command {
	var req ContextRequest

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Ask a question about a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/analysis/context", req)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp ContextResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(resp.Response)
			printMessage("")
			printMessage(fmt.Sprintf("Page: %s (%s), buttons: %v, forms: %v",
				resp.PageContext.Title, resp.PageContext.URL, resp.PageContext.HasButtons, resp.PageContext.HasForms))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.URL, "page", "", "Page URL (required)")
	cmd.MarkFlagRequired("page")
	cmd.Flags().StringVar(&req.Question, "question", "", "Question about the page (required)")
	cmd.MarkFlagRequired("question")
	cmd.Flags().StringVar(&req.AgentID, "agent", "", "Agent whose prompt and style to use")
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Conversation session to continue")
	return cmd
}

func newScreenshotCmd() *cobra.Command {
	var req ScreenshotRequest
	var out string
	var viewportOnly bool

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture a page screenshot as JPEG",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			fullPage := !viewportOnly
			req.FullPage = &fullPage

			body, err := client.Post("/api/v1/analysis/screenshot", req)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp ScreenshotResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			img, err := base64.StdEncoding.DecodeString(resp.Screenshot)
			if err != nil {
				return fmt.Errorf("failed to decode screenshot: %w", err)
			}
			if err := os.WriteFile(out, img, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			printMessage(fmt.Sprintf("Screenshot saved to %s (%d bytes)", out, len(img)))
			if resp.Path != "" {
				printMessage(fmt.Sprintf("Stored on the server as %s", resp.Path))
			}
			if resp.URL != "" {
				printMessage(fmt.Sprintf("Storage URL: %s", resp.URL))
			}
			return nil
		},
	}

	cmd.AddCommand(newScreenshotFetchCmd())

	cmd.Flags().StringVar(&req.URL, "page", "", "Page URL (required)")
	cmd.MarkFlagRequired("page")
	cmd.Flags().StringVarP(&out, "out", "o", "screenshot.jpg", "Output file")
	cmd.Flags().IntVar(&req.Width, "width", 0, "Viewport width")
	cmd.Flags().IntVar(&req.Height, "height", 0, "Viewport height")
	cmd.Flags().IntVar(&req.Quality, "quality", 0, "JPEG quality 1-100")
	cmd.Flags().BoolVar(&viewportOnly, "viewport-only", false, "Capture only the visible viewport")
	return cmd
}

func newScreenshotFetchCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "fetch [name]",
		Short: "Download a screenshot stored on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			name := path.Base(args[0])
			img, err := client.Get("/api/v1/analysis/screenshots/"+url.PathEscape(name), nil)
			if err != nil {
				return err
			}

			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, img, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			printMessage(fmt.Sprintf("Screenshot saved to %s (%d bytes)", out, len(img)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to the screenshot name)")
	return cmd
}
