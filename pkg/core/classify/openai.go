package classify

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"focusrecon/pkg/models"
)

// ==================== OPENAI CLASSIFIER ====================

// OpenAIClassifier assigns categories through OpenAI's Chat Completions
// API with JSON-mode responses.
type OpenAIClassifier struct {
	Model  string
	cm     *CategoryMap
	client *openai.Client
}

var _ Classifier = (*OpenAIClassifier)(nil)

// NewOpenAIClassifier creates a classifier backed by the OpenAI API.
// Requires OPENAI_API_KEY in the environment; OPENAI_BASE_URL overrides
// the endpoint for compatible providers.
func NewOpenAIClassifier(model string, cm *CategoryMap) (*OpenAIClassifier, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClassifier{
		Model:  model,
		cm:     cm,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Classify sends one line-item name and decodes the JSON answer.
func (o *OpenAIClassifier) Classify(ctx context.Context, side models.Side, name string) (Classification, error) {
	req := openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: classifySystemPrompt(side, o.cm),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: classifyPrompt(name),
			},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Classification{}, fmt.Errorf("openai classification failed for %q: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, fmt.Errorf("no response from OpenAI for %q", name)
	}

	return parseClassification(strings.TrimSpace(resp.Choices[0].Message.Content), side, o.cm)
}
