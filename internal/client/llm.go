package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stepfree/access-planner/internal/util"
)

// LLMClient talks to an OpenAI compatible /chat/completions endpoint.
// Text prompts go to textModel, photo analysis to visionModel.
type LLMClient struct {
	baseURL     string
	apiKey      string
	textModel   string
	visionModel string
	httpClient  *http.Client
}

func NewLLMClient(baseURL, apiKey, textModel, visionModel string, timeout time.Duration) *LLMClient {
	return &LLMClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		textModel:   textModel,
		visionModel: visionModel,
		httpClient:  newHTTPClient(timeout, 90*time.Second),
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage content is either a string or a list of content parts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends a single user prompt to the text model and returns the raw answer.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, chatRequest{
		Model: c.textModel,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
}

// Verdict is the vision model answer for one image. Triggers is either the
// sentinel NONE or a comma separated list of checklist item names.
type Verdict struct {
	Triggers string    `json:"triggers"`
	Locator  []float64 `json:"locator,omitempty"`
}

type batchVerdicts struct {
	Images []struct {
		Index    int       `json:"index"`
		Triggers string    `json:"triggers"`
		Locator  []float64 `json:"locator"`
	} `json:"images"`
}

const visionInstructions = `You inspect real estate listing photos for accessibility issues.
Checklist:
%s

You receive %d photos, numbered from 0 in the order given.
For every photo answer which checklist items are visibly triggered.
Reply with a JSON object only:
{"images":[{"index":0,"triggers":"NONE","locator":[0.5,0.5]}]}
- "triggers" is NONE when nothing applies, otherwise the triggered item names separated by commas.
- "locator" is the [x, y] position of the main issue as fractions of the image width and height; omit it when triggers is NONE.`

// AnalyzeBatch asks the vision model to check every image against the
// checklist. The returned verdicts follow the order of images; a photo the
// model skipped is reported as NONE.
func (c *LLMClient) AnalyzeBatch(ctx context.Context, images []Image, checklist string) ([]Verdict, error) {
	if len(images) == 0 {
		return nil, nil
	}

	parts := make([]contentPart, 0, len(images)+1)
	parts = append(parts, contentPart{Type: "text", Text: fmt.Sprintf(visionInstructions, checklist, len(images))})
	for _, img := range images {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: dataURL(img), Detail: "low"},
		})
	}

	answer, err := c.complete(ctx, chatRequest{
		Model:          c.visionModel,
		Messages:       []chatMessage{{Role: "user", Content: parts}},
		Temperature:    0,
		MaxTokens:      1024,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var parsed batchVerdicts
	if err := json.Unmarshal([]byte(util.UnwrapFence(answer)), &parsed); err != nil {
		return nil, fmt.Errorf("parse vision answer: %w", err)
	}

	verdicts := make([]Verdict, len(images))
	for i := range verdicts {
		verdicts[i] = Verdict{Triggers: "NONE"}
	}
	for _, v := range parsed.Images {
		if v.Index < 0 || v.Index >= len(images) {
			continue
		}
		verdicts[v.Index] = Verdict{Triggers: v.Triggers, Locator: v.Locator}
	}
	return verdicts, nil
}

func (c *LLMClient) complete(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read llm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned HTTP %d: %s", resp.StatusCode, truncate(string(respBytes), 256))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("parse llm response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("llm error (%s): %s", chatResp.Error.Type, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func dataURL(img Image) string {
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
