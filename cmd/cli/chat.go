package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var widget, message, session, pageURL, pageTitle string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a widget as a visitor",
		Long: `Sends messages to a widget's public chat endpoint. With --message one
message is sent; otherwise lines are read from stdin until EOF. The session
token from the first reply is reused for the rest of the conversation and
printed so it can be passed back with --session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &widgetChat{
				client:  getPublicClient(),
				widget:  widget,
				session: session,
			}
			if pageURL != "" {
				c.page = &ChatPageCtx{URL: pageURL, Title: pageTitle}
			}

			if message != "" {
				return c.send(message)
			}

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(os.Stderr, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line != "" {
					if err := c.send(line); err != nil {
						return err
					}
				}
				fmt.Fprint(os.Stderr, "> ")
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&widget, "widget", "", "Widget code (required)")
	cmd.MarkFlagRequired("widget")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Single message to send")
	cmd.Flags().StringVar(&session, "session", "", "Session token from an earlier reply")
	cmd.Flags().StringVar(&pageURL, "page", "", "URL of the page the visitor is on")
	cmd.Flags().StringVar(&pageTitle, "page-title", "", "Title of the page the visitor is on")
	return cmd
}

type widgetChat struct {
	client  *Client
	widget  string
	session string
	page    *ChatPageCtx
}

func (c *widgetChat) send(message string) error {
	headers := map[string]string{}
	if c.session != "" {
		headers[sessionHeader] = c.session
	}

	body, err := c.client.PostWithHeaders(fmt.Sprintf("/api/v1/widget/%s/chat", c.widget),
		ChatRequest{Message: message, PageContext: c.page}, headers)
	if err != nil {
		return err
	}

	var resp DataResponse[ChatResponse]
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Data.SessionToken != "" {
		c.session = resp.Data.SessionToken
		fmt.Fprintf(os.Stderr, "session: %s\n", c.session)
	}

	if flagJSON {
		return printRawJSON(body)
	}
	printMessage(resp.Data.Response)
	return nil
}
