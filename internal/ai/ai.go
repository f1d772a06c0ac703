/*
Package ai condenses oversized item summaries with the Gemini API so they fit
into a single chat embed.
*/
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/shanehull/cs2news/internal/types"
)

const DefaultModel = "gemini-2.5-flash"

// ErrNoAPIKey is returned when the condenser is built without a key.
var ErrNoAPIKey = errors.New("gemini API key is required")

type condensed struct {
	Bullets []string `json:"bullets"`
}

// Generator is the subset of the genai models service used here.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Condenser rewrites long summaries as short bullet lists.
type Condenser struct {
	models Generator
	model  string
}

// NewCondenser creates a Gemini-backed condenser.
func NewCondenser(ctx context.Context, apiKey, model string) (*Condenser, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return NewCondenserWith(client.Models, model), nil
}

// NewCondenserWith uses an existing generator.
func NewCondenserWith(g Generator, model string) *Condenser {
	if model == "" {
		model = DefaultModel
	}
	return &Condenser{models: g, model: model}
}

// Condense returns "- " bullets joined by newlines, no longer than limit runes.
func (c *Condenser) Condense(ctx context.Context, item types.Item, limit int) (string, error) {
	contents := []*genai.Content{
		{
			Parts: []*genai.Part{{Text: buildPrompt(item, limit)}},
			Role:  "user",
		},
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   getResponseSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	respText := resp.Text()

	var out condensed
	if err := json.Unmarshal([]byte(respText), &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal gemini JSON response: %w. Raw text: %s", err, respText)
	}

	return joinWithin(out.Bullets, limit)
}

// joinWithin keeps whole bullets until the next one would exceed limit.
func joinWithin(bullets []string, limit int) (string, error) {
	var lines []string
	used := 0
	for _, b := range bullets {
		b = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(b), "- "))
		if b == "" {
			continue
		}
		line := "- " + b
		cost := utf8.RuneCountInString(line)
		if len(lines) > 0 {
			cost++
		}
		if used+cost > limit {
			break
		}
		lines = append(lines, line)
		used += cost
	}

	if len(lines) == 0 {
		return "", errors.New("gemini returned no usable bullets")
	}
	return strings.Join(lines, "\n"), nil
}

func getResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bullets": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Condensed changes, one per bullet, without a leading dash.",
			},
		},
		Required: []string{"bullets"},
	}
}
