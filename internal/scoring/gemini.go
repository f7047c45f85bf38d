package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used for scoring. Scoring is a cheap
// classification task, so the flash tier is enough.
const DefaultModel = "gemini-2.0-flash"

// GeminiOracle implements Oracle on the Gemini API.
type GeminiOracle struct {
	client *genai.Client
	model  string
}

// NewGeminiOracle creates an oracle with the given API key. The key is
// passed in explicitly; there is no process-global credential cache.
func NewGeminiOracle(ctx context.Context, apiKey string) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiOracle{client: client, model: DefaultModel}, nil
}

// Score performs one blocking scoring call.
func (o *GeminiOracle) Score(ctx context.Context, description, criteria string) (Result, error) {
	model := o.client.GenerativeModel(o.model)
	model.SetTemperature(0.1) // Low temperature for consistent scoring

	prompt := buildScoringPrompt(description, criteria)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, &CallError{Message: "failed to generate content", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return Result{}, err
	}

	return ParseResult(text)
}

// Close releases resources held by the client.
func (o *GeminiOracle) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &ParseError{Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &ParseError{Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", &ParseError{Message: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}

// buildScoringPrompt constructs the match-scoring prompt.
func buildScoringPrompt(description, criteria string) string {
	return fmt.Sprintf(`Analyze this job listing against the candidate's profile and provide a match score from 0-100.

## Candidate Profile:
%s

## Job Listing:
%s

## Instructions:
1. Score the job from 0-100 based on how well it matches the candidate's:
   - Target role and ideal background
   - Required skills and experience
   - Location preferences

2. A score of:
   - 80-100: Excellent match, should definitely apply
   - 60-79: Good match, worth considering
   - 40-59: Partial match, some relevant elements
   - 20-39: Poor match, significant gaps
   - 0-19: No match, wrong field/level entirely

3. Provide brief reasoning (2-3 sentences max)

## Response Format (JSON only, no other text):
{"score": <number>, "reasoning": "<brief explanation>"}
`, criteria, description)
}
