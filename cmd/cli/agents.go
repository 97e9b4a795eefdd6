package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage chat agents",
	}

	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsCreateCmd())
	cmd.AddCommand(newAgentsGetCmd())
	cmd.AddCommand(newAgentsUpdateCmd())
	cmd.AddCommand(newAgentsDeleteCmd())
	cmd.AddCommand(newAgentsActivateCmd())
	cmd.AddCommand(newAgentsWidgetCodeCmd())
	cmd.AddCommand(newAgentsConversationsCmd())
	return cmd
}

func paginationQuery(limit, offset int) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	return query
}

func newAgentsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/agents", paginationQuery(limit, offset))
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp PaginatedResponse[AgentResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"ID", "WIDGET", "NAME", "STYLE", "ACTIVE", "MESSAGES"}
			var rows [][]string
			for _, a := range resp.Items {
				rows = append(rows, []string{
					a.ID.String(),
					a.WidgetCode,
					truncate(a.Name, 30),
					string(a.ResponseStyle),
					fmt.Sprintf("%v", a.IsActive),
					strconv.FormatInt(a.TotalMessages, 10),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d agents", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}

func newAgentsCreateCmd() *cobra.Command {
	var req CreateAgentRequest
	var inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			if inactive {
				active := false
				req.IsActive = &active
			}

			body, err := client.Post("/api/v1/agents", req)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var a AgentResponse
			if err := json.Unmarshal(body, &a); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Agent created: %s (%s), widget code %s", a.Name, a.ID, a.WidgetCode))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Business name (required)")
	cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&req.Description, "description", "", "Business description")
	cmd.Flags().StringVar(&req.WebsiteURL, "website", "", "Site the widget is embedded on")
	cmd.Flags().StringVar(&req.SystemPrompt, "system-prompt", "", "System prompt")
	cmd.Flags().StringVar(&req.ResponseStyle, "style", "", "Response style: helpful, formal, casual or technical")
	cmd.Flags().StringVar(&req.KnowledgeBase, "knowledge-base", "", "Knowledge base text")
	cmd.Flags().StringVar(&req.WidgetCode, "widget-code", "", "Widget code (generated when empty)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the agent inactive")
	return cmd
}

func newAgentsGetCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get an agent by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/agents/%s", id), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var a AgentResponse
			if err := json.Unmarshal(body, &a); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"FIELD", "VALUE"}
			rows := [][]string{
				{"ID", a.ID.String()},
				{"Widget Code", a.WidgetCode},
				{"Name", a.Name},
				{"Description", truncate(a.Description, 60)},
				{"Website", a.WebsiteURL},
				{"Response Style", string(a.ResponseStyle)},
				{"Knowledge Base", truncate(a.KnowledgeBase, 60)},
				{"Active", fmt.Sprintf("%v", a.IsActive)},
				{"Messages", strconv.FormatInt(a.TotalMessages, 10)},
				{"Created At", a.CreatedAt.Format("2006-01-02 15:04:05")},
				{"Updated At", a.UpdatedAt.Format("2006-01-02 15:04:05")},
			}
			printTable(headers, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Agent ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newAgentsUpdateCmd() *cobra.Command {
	var id, name, description, website, systemPrompt, style, knowledgeBase string
	var active bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			req := UpdateAgentRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("website") {
				req.WebsiteURL = &website
			}
			if cmd.Flags().Changed("system-prompt") {
				req.SystemPrompt = &systemPrompt
			}
			if cmd.Flags().Changed("style") {
				req.ResponseStyle = &style
			}
			if cmd.Flags().Changed("knowledge-base") {
				req.KnowledgeBase = &knowledgeBase
			}
			if cmd.Flags().Changed("active") {
				req.IsActive = &active
			}

			body, err := client.Put(fmt.Sprintf("/api/v1/agents/%s", id), req)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var a AgentResponse
			if err := json.Unmarshal(body, &a); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Agent updated: %s (%s)", a.Name, a.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Agent ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&name, "name", "", "New business name")
	cmd.Flags().StringVar(&description, "description", "", "New business description")
	cmd.Flags().StringVar(&website, "website", "", "New website URL")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "New system prompt")
	cmd.Flags().StringVar(&style, "style", "", "New response style")
	cmd.Flags().StringVar(&knowledgeBase, "knowledge-base", "", "New knowledge base text")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the widget answers visitors")
	return cmd
}

func newAgentsDeleteCmd() *cobra.Command {
	var id string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an agent and its conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction(fmt.Sprintf("Delete agent %s and all its conversations?", id), yes) {
				printMessage("Aborted.")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			_, err = client.Delete(fmt.Sprintf("/api/v1/agents/%s", id))
			if err != nil {
				return err
			}

			printMessage("Agent deleted successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Agent ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation")
	return cmd
}

func newAgentsActivateCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Analyse the agent's website, build its system prompt and activate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post(fmt.Sprintf("/api/v1/agents/%s/activate", id), struct{}{})
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp DataResponse[AgentResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Agent activated: %s (%s)", resp.Data.Name, resp.Data.ID))
			printMessage("")
			printMessage(resp.Data.SystemPrompt)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Agent ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newAgentsWidgetCodeCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "widget-code",
		Short: "Print the embed script of an active agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/agents/%s/widget-code", id), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp DataResponse[WidgetCodeResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(resp.Data.Script)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Agent ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newAgentsConversationsCmd() *cobra.Command {
	var id string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List the conversations of an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/agents/%s/conversations", id), paginationQuery(limit, offset))
			if err != nil {
				return err
			}

			if flagJSON {
				return printRawJSON(body)
			}

			var resp PaginatedResponse[ConversationResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"ID", "SESSION", "MESSAGES", "VISITOR IP", "LAST MESSAGE", "UPDATED AT"}
			var rows [][]string
			for _, c := range resp.Items {
				last := ""
				if n := len(c.Messages); n > 0 {
					last = truncate(c.Messages[n-1].Content, 40)
				}
				rows = append(rows, []string{
					c.ID.String(),
					truncate(c.SessionID, 12),
					strconv.Itoa(len(c.Messages)),
					c.UserIP,
					last,
					c.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d conversations", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Agent ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}
