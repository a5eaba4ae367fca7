package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UpstreamError is a non-2xx response from the AI gateway.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// RateLimited reports whether the gateway refused the call for rate.
func (e *UpstreamError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// QuotaExhausted reports whether the gateway refused the call for credit.
func (e *UpstreamError) QuotaExhausted() bool { return e.Status == http.StatusPaymentRequired }

// Client talks to an OpenAI-compatible chat-completions gateway.
type Client struct {
	baseURL     string
	apiKey      string
	visionModel string
	imageModel  string
	httpClient  *http.Client
}

// ClientOptions override the default gateway models.
type ClientOptions struct {
	VisionModel string
	ImageModel  string
	Timeout     time.Duration
}

// NewClient creates a gateway client.
func NewClient(baseURL, apiKey string, opts ClientOptions) *Client {
	if opts.VisionModel == "" {
		opts.VisionModel = "google/gemini-2.5-flash"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "google/gemini-3-pro-image-preview"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		visionModel: opts.VisionModel,
		imageModel:  opts.ImageModel,
		httpClient:  &http.Client{Timeout: opts.Timeout},
	}
}

const visionPrompt = "Describe this interior room in detail. Focus on the architectural layout, " +
	"perspective, furniture placement, and lighting. Do NOT describe the colors or specific " +
	"decor style. Just the structure and composition."

// Redesign validates the request, asks the vision model to describe the room
// structure, then asks the image model to render it in the requested style.
// Failed calls are not retried; the caller re-issues the request.
func (c *Client) Redesign(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	description, err := c.describeRoom(ctx, req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("analyze image: %w", err)
	}

	imageURL, err := c.generateImage(ctx, description, req.Style)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	return &Response{ImageURL: imageURL, Description: description}, nil
}

func (c *Client) describeRoom(ctx context.Context, imageDataURL string) (string, error) {
	req := &chatRequest{
		Model: c.visionModel,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &imageRef{URL: imageDataURL}},
			},
		}},
	}

	resp, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}

	raw, _ := resp.firstContentText()
	return sanitizeDescription(raw), nil
}

func (c *Client) generateImage(ctx context.Context, description, style string) (string, error) {
	prompt := fmt.Sprintf("A photorealistic, architectural digest quality photograph of a room "+
		"with this structure: %s. The room is designed in a %s style. High end, professional "+
		"interior design photography, 8k resolution.", description, style)

	req := &chatRequest{
		Model:    c.imageModel,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	resp, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}

	url, ok := resp.firstImageURL()
	if !ok {
		return "", fmt.Errorf("no image in gateway response")
	}
	return url, nil
}

func (c *Client) complete(ctx context.Context, reqBody *chatRequest) (*chatResponse, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// --- wire types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// firstContentText extracts the first textual content, whether the model
// returned a plain string or a multimodal part list.
func (r *chatResponse) firstContentText() (string, bool) {
	if len(r.Choices) == 0 {
		return "", false
	}
	raw := r.Choices[0].Message.Content

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		for _, p := range parts {
			if p.Type == "text" && p.Text != "" {
				return p.Text, true
			}
		}
	}
	return "", false
}

// firstImageURL extracts the generated image: either an image_url part in a
// multimodal list, or a direct data:image string.
func (r *chatResponse) firstImageURL() (string, bool) {
	if len(r.Choices) == 0 {
		return "", false
	}
	raw := r.Choices[0].Message.Content

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		for _, p := range parts {
			if p.Type == "image_url" && p.ImageURL != nil && p.ImageURL.URL != "" {
				return p.ImageURL.URL, true
			}
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.HasPrefix(s, "data:image") {
		return s, true
	}
	return "", false
}
