package ollamavision

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"photo-annotation-pipeline/parser"
	"photo-annotation-pipeline/vision"
)

// captionPrompt asks for plain alternative text suitable for an alt attribute.
const captionPrompt = `Describe this photo in one short factual sentence suitable as alternative text for accessibility. Do not mention that it is a photo or an image. Do not guess real identities. Plain text only, no quotes, no markdown.`

// detectPrompt asks for the raw detections as JSON.
const detectPrompt = `You are an object detector. List every distinct physical object you can identify in this image.

Return JSON only: a single array of objects, each {"name": "<lowercase object name>", "confidence": <0.0-1.0>}.

HARD RULES
- confidence reflects how certain you are the object is present.
- name is a short common noun, lowercase, singular.
- Repeat a name only if you see clearly separate instances.
- If you find nothing, return [].
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// requestTimeout bounds a single model call. Vision models on CPU can be
// slow, so this is generous.
const requestTimeout = 300 * time.Second

// Client runs captioning and object detection against a local Ollama vision
// model. It implements both vision.Detector and vision.Captioner.
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a new Ollama-backed vision client.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Base URL only; the API client appends its own paths.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// SourceName identifies this provider in saved annotations
func (c *Client) SourceName() string {
	return "Ollama"
}

// Caption generates alternative text for an image.
func (c *Client) Caption(imageData []byte) (string, error) {
	response, err := c.chat(captionPrompt, imageData)
	if err != nil {
		return "", err
	}

	caption := strings.TrimSpace(response)
	if caption == "" {
		return "", fmt.Errorf("model returned an empty caption")
	}

	return caption, nil
}

// DetectObjects asks the model for object detections and normalizes its JSON
// answer into raw detections.
func (c *Client) DetectObjects(imageData []byte) ([]vision.Detection, error) {
	response, err := c.chat(detectPrompt, imageData)
	if err != nil {
		return nil, err
	}

	detections, err := parser.ParseDetections(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model detections: %w", err)
	}

	return detections, nil
}

func (c *Client) chat(prompt string, imageData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imageData)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}

	return responseContent, nil
}
