package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pmordasov/veracity/internal/model"
)

// azureInvoker talks to an Azure OpenAI deployment through the go-openai
// client. The client is connection-reusing and safe for concurrent use.
type azureInvoker struct {
	client     *openai.Client
	deployment string
}

func newAzureInvoker(cfg *model.AzureConfig) (*azureInvoker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing Azure configuration details")
	}

	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	clientConfig.APIVersion = cfg.APIVersion
	deployment := cfg.Deployment
	clientConfig.AzureModelMapperFunc = func(string) string {
		return deployment
	}

	return &azureInvoker{
		client:     openai.NewClientWithConfig(clientConfig),
		deployment: deployment,
	}, nil
}

func (a *azureInvoker) Name() string {
	return "Azure"
}

// Complete sends a single chat completion request to the deployment
func (a *azureInvoker) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from deployment %s", a.deployment)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
