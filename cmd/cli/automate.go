package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	actionClick      = "click"
	actionFillForm   = "fill_form"
	actionFindButton = "find_button"
)

func newAutomateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automate",
		Short: "Run a browser automation primitive on a page",
	}

	cmd.AddCommand(newAutomateClickCmd())
	cmd.AddCommand(newAutomateFindCmd())
	cmd.AddCommand(newAutomateFillCmd())
	return cmd
}

func runAutomate(req AutomateRequest) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	body, err := client.Post("/api/v1/analysis/automate", req)
	if err != nil {
		return err
	}

	if flagJSON {
		return printRawJSON(body)
	}

	var resp AutomateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	status := "OK"
	if !resp.Success {
		status = "FAILED"
	}
	printMessage(fmt.Sprintf("%s: %s", status, resp.Message))
	if m := resp.Data.Match; m != nil {
		printMessage(fmt.Sprintf("Matched %q via %s (%s)", m.MatchedText, m.Strategy, m.Selector))
	}
	if resp.Data.NewURL != "" {
		printMessage(fmt.Sprintf("Now at %s", resp.Data.NewURL))
	}
	if !resp.Success {
		return fmt.Errorf("%s did not succeed", req.Action)
	}
	return nil
}

func newAutomateClickCmd() *cobra.Command {
	var page, button string
	var noWait bool

	cmd := &cobra.Command{
		Use:   "click",
		Short: "Click a button by text, CSS selector or XPath",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := AutomateRequest{
				Action: actionClick,
				URL:    page,
				Params: AutomateParams{ButtonText: button},
			}
			if noWait {
				wait := false
				req.Params.WaitForNavigation = &wait
			}
			return runAutomate(req)
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page URL (required)")
	cmd.MarkFlagRequired("page")
	cmd.Flags().StringVar(&button, "button", "", "Button text, CSS selector or XPath (required)")
	cmd.MarkFlagRequired("button")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Do not wait for navigation after the click")
	return cmd
}

func newAutomateFindCmd() *cobra.Command {
	var page, button string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Check whether a button exists on a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutomate(AutomateRequest{
				Action: actionFindButton,
				URL:    page,
				Params: AutomateParams{ButtonText: button},
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page URL (required)")
	cmd.MarkFlagRequired("page")
	cmd.Flags().StringVar(&button, "button", "", "Button text, CSS selector or XPath (required)")
	cmd.MarkFlagRequired("button")
	return cmd
}

func newAutomateFillCmd() *cobra.Command {
	var page, submit string
	var fields []string

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill form fields and optionally submit",
		Example: `  pagectl automate fill --page https://shop.example/signup \
    --field email=user@example.com --field name=Иван --submit "Зарегистрироваться"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseFields(fields)
			if err != nil {
				return err
			}
			return runAutomate(AutomateRequest{
				Action: actionFillForm,
				URL:    page,
				Params: AutomateParams{FormData: data, SubmitSelector: submit},
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page URL (required)")
	cmd.MarkFlagRequired("page")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field as name=value; repeatable (required)")
	cmd.MarkFlagRequired("field")
	cmd.Flags().StringVar(&submit, "submit", "", "Submit button text or selector")
	return cmd
}

// parseFields turns name=value pairs into form data. The value may contain "=".
func parseFields(fields []string) (map[string]string, error) {
	data := make(map[string]string, len(fields))
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: expected name=value", f)
		}
		data[name] = value
	}
	return data, nil
}
