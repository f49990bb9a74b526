// services/reviewer_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	reviewerTimeout      = 120 * time.Second
	reviewerDefaultModel = "gpt-4o-mini"
)

// reviewLocales are the languages the review prompt can be written in.
var reviewLocales = language.NewMatcher([]language.Tag{
	language.English, // fallback
	language.Polish,
})

// Reviewer grades a code submission and returns a letter grade with a
// structured write-up.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (*ReviewVerdict, error)
}

// ReviewRequest carries everything the model needs to judge a submission.
type ReviewRequest struct {
	Title        string
	Description  string
	Requirements string
	Language     string
	Code         string
	Locale       string
}

// ReviewVerdict is the model's structured answer.
type ReviewVerdict struct {
	Grade        string   `json:"grade"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// OpenAIReviewer calls the OpenAI responses endpoint directly over HTTP.
type OpenAIReviewer struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewOpenAIReviewer(apiKey, model string) *OpenAIReviewer {
	if model == "" {
		model = reviewerDefaultModel
	}
	return &OpenAIReviewer{
		BaseURL: "https://api.openai.com/v1",
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: reviewerTimeout},
	}
}

type responsesRequest struct {
	Model        string              `json:"model"`
	Instructions string              `json:"instructions"`
	Input        string              `json:"input"`
	Text         responsesTextFormat `json:"text"`
}

type responsesTextFormat struct {
	Format map[string]interface{} `json:"format"`
}

type responsesReply struct {
	Output []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// promptLocale maps an Accept-Language header to a supported prompt
// language name.
func promptLocale(locale string) string {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return "English"
	}
	_, idx, _ := reviewLocales.Match(tags...)
	if idx == 1 {
		return "Polish"
	}
	return "English"
}

func reviewInstructions(locale string) string {
	return fmt.Sprintf(`You are a strict but encouraging programming mentor reviewing a learner's solution.
Grade the code on the scale A, A-, B+, B, C+, C, D, E (A excellent, E failing) based on correctness, readability and approach.
Write the summary, strengths and improvements in %s, addressed to the learner directly.
Keep the summary to at most 3 sentences and each strengths/improvements entry to one sentence.
Respond with JSON only.`, promptLocale(locale))
}

func reviewInput(req ReviewRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n%s\n", req.Title, req.Description)
	if req.Requirements != "" {
		fmt.Fprintf(&b, "\nRequirements:\n%s\n", req.Requirements)
	}
	fmt.Fprintf(&b, "\nLanguage: %s\n\nSubmitted code:\n```\n%s\n```\n", req.Language, req.Code)
	return b.String()
}

// Review sends one grading round trip. Malformed model output is treated
// the same as a transport failure; the caller maps both to a 502.
func (r *OpenAIReviewer) Review(ctx context.Context, req ReviewRequest) (*ReviewVerdict, error) {
	body := responsesRequest{
		Model:        r.Model,
		Instructions: reviewInstructions(req.Locale),
		Input:        reviewInput(req),
		Text: responsesTextFormat{
			Format: map[string]interface{}{
				"type": "json_schema",
				"name": "code_review",
				"schema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"grade":        map[string]interface{}{"type": "string", "enum": []string{"A", "A-", "B+", "B", "C+", "C", "D", "E"}},
						"summary":      map[string]interface{}{"type": "string"},
						"strengths":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"improvements": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					},
					"required":             []string{"grade", "summary", "strengths", "improvements"},
					"additionalProperties": false,
				},
				"strict": true,
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reviewer request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reviewer read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ Reviewer returned %d: %s", resp.StatusCode, string(raw))
		return nil, fmt.Errorf("reviewer status %d", resp.StatusCode)
	}

	var reply responsesReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("reviewer decode: %w", err)
	}
	if reply.Error != nil {
		return nil, fmt.Errorf("reviewer error: %s", reply.Error.Message)
	}

	for _, out := range reply.Output {
		for _, content := range out.Content {
			if content.Type != "output_text" {
				continue
			}
			var verdict ReviewVerdict
			if err := json.Unmarshal([]byte(content.Text), &verdict); err != nil {
				return nil, fmt.Errorf("reviewer verdict decode: %w", err)
			}
			verdict.Grade = strings.ToUpper(strings.TrimSpace(verdict.Grade))
			return &verdict, nil
		}
	}
	return nil, fmt.Errorf("reviewer reply had no text output")
}
