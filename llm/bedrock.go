package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock invokes Claude models hosted on AWS Bedrock.
type Bedrock struct {
	client  bedrockInvoker
	modelID string
	cfg     Config
}

// NewBedrock loads the default AWS credential chain for cfg.Region.
func NewBedrock(cfg Config) (*Bedrock, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock region is required")
	}
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newBedrock(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newBedrock(client bedrockInvoker, cfg Config) *Bedrock {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	modelID := cfg.Model
	if modelID == "" {
		modelID = DefaultBedrockModel
	}
	return &Bedrock{client: client, modelID: modelID, cfg: cfg}
}

type bedrockContent struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Source *bedrockSource `json:"source,omitempty"`
}

type bedrockSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type bedrockMessage struct {
	Role    string           `json:"role"`
	Content []bedrockContent `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

func bedrockPayload(req Request) ([]byte, error) {
	body := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.maxTokens(),
		Temperature:      req.temperature(),
		System:           req.System,
	}
	for _, m := range conversation(req.History) {
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		body.Messages = append(body.Messages, bedrockMessage{
			Role:    role,
			Content: []bedrockContent{{Type: "text", Text: m.Content}},
		})
	}

	last := bedrockMessage{Role: RoleUser, Content: []bedrockContent{{Type: "text", Text: req.Prompt}}}
	if req.ImageBase64 != "" {
		last.Content = append(last.Content, bedrockContent{
			Type:   "image",
			Source: &bedrockSource{Type: "base64", MediaType: "image/jpeg", Data: req.ImageBase64},
		})
	}
	body.Messages = append(body.Messages, last)

	return json.Marshal(body)
}

func (p *Bedrock) Complete(ctx context.Context, req Request) (string, error) {
	payload, err := bedrockPayload(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, c := range response.Content {
		if c.Type == "text" {
			if text := strings.TrimSpace(c.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", ErrEmptyResponse
}
