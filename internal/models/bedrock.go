package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
)

// BedrockInvoker is the slice of the Bedrock runtime client this provider
// needs. Narrow so tests can fake it.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider serves Anthropic models through Amazon Bedrock. The
// payload is the Anthropic Messages format; the model travels as the
// InvokeModel model ID rather than in the body.
type BedrockProvider struct {
	client BedrockInvoker
	region string
	models []config.Model
}

// NewBedrockProvider wraps a Bedrock runtime client.
func NewBedrockProvider(client BedrockInvoker, cfg config.ProviderConfig) *BedrockProvider {
	return &BedrockProvider{
		client: client,
		region: cfg.Region,
		models: cfg.Models,
	}
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Models() []config.Model { return p.models }

func (p *BedrockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := buildAnthropicRequest(req, true)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model %s: %w", req.Model, err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(out.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	resp := parseAnthropicResponse(&apiResp)
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return resp, nil
}
