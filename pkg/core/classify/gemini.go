package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"google.golang.org/genai"

	"focusrecon/pkg/models"
)

// ==================== GEMINI CLASSIFIER ====================

// GeminiClassifier assigns categories with Google's Gemini models via the
// official GenAI SDK. The category map constrains the label vocabulary the
// model may answer with.
type GeminiClassifier struct {
	Model  string // e.g. "gemini-2.0-flash-exp"
	cm     *CategoryMap
	client *genai.Client
}

var _ Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier creates a classifier backed by the Gemini API.
// Requires GEMINI_API_KEY in the environment.
func NewGeminiClassifier(ctx context.Context, model string, cm *CategoryMap) (*GeminiClassifier, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return &GeminiClassifier{Model: model, cm: cm, client: client}, nil
}

// Classify asks the model for a JSON {category, confidence} answer
// constrained to the side's vocabulary.
func (g *GeminiClassifier) Classify(ctx context.Context, side models.Side, name string) (Classification, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: classifySystemPrompt(side, g.cm)},
			},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(classifyPrompt(name)), config)
	if err != nil {
		return Classification{}, fmt.Errorf("gemini classification failed for %q: %w", name, err)
	}

	return parseClassification(result.Text(), side, g.cm)
}

// ==================== SHARED PROMPT / PARSE HELPERS ====================

func classifySystemPrompt(side models.Side, cm *CategoryMap) string {
	sideDesc := "the asset side"
	if side == models.SideLiabilityEquity {
		sideDesc = "the liability and equity side"
	}

	var labels []string
	for _, cat := range cm.Categories(side) {
		labels = append(labels, string(cat))
	}
	return fmt.Sprintf(`You classify balance-sheet line items from broker-dealer financial statements.
The line item comes from %s of the statement. Respond with JSON only:
{"category": "<one of the allowed categories>", "confidence": <0.0-1.0>}
Allowed categories:
- %s
- Other`, sideDesc, strings.Join(labels, "\n- "))
}

func classifyPrompt(name string) string {
	return fmt.Sprintf("Line item: %q", name)
}

// parseClassification decodes the model's JSON answer, repairing malformed
// output before giving up, and validates the label against the vocabulary.
func parseClassification(text string, side models.Side, cm *CategoryMap) (Classification, error) {
	var c Classification
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		repaired, repErr := jsonrepair.RepairJSON(text)
		if repErr != nil {
			return Classification{}, fmt.Errorf("unparseable classifier response %q: %w", text, repErr)
		}
		if err := json.Unmarshal([]byte(repaired), &c); err != nil {
			return Classification{}, fmt.Errorf("unparseable classifier response %q: %w", text, err)
		}
	}

	if c.Category == "" {
		return Classification{}, fmt.Errorf("classifier response missing category: %q", text)
	}
	if c.Category != "Other" {
		valid := false
		for _, cat := range cm.Categories(side) {
			if c.Category == cat {
				valid = true
				break
			}
		}
		if !valid {
			return Classification{}, fmt.Errorf("classifier returned unknown category %q", c.Category)
		}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		c.Confidence = 0
	}
	return c, nil
}
