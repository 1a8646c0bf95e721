package azure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"photo-annotation-pipeline/vision"
)

const (
	detectPath   = "/vision/v3.2/detect"
	describePath = "/vision/v3.2/describe?maxCandidates=1"
)

// detectResponse is the object-detection payload returned by the Computer
// Vision API.
type detectResponse struct {
	Objects []struct {
		Object     string  `json:"object"`
		Confidence float64 `json:"confidence"`
		Rectangle  struct {
			X int `json:"x"`
			Y int `json:"y"`
			W int `json:"w"`
			H int `json:"h"`
		} `json:"rectangle"`
	} `json:"objects"`
	RequestID string `json:"requestId"`
}

// describeResponse is the image-description payload returned by the Computer
// Vision API.
type describeResponse struct {
	Description struct {
		Tags     []string `json:"tags"`
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	RequestID string `json:"requestId"`
}

// Client represents an Azure Computer Vision API client. It implements both
// vision.Detector and vision.Captioner.
type Client struct {
	endpoint string
	key      string
	client   *http.Client
}

// NewClient creates a new Azure Computer Vision client.
func NewClient(endpoint, key string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		client:   &http.Client{},
	}
}

// SourceName identifies this provider in saved annotations
func (c *Client) SourceName() string {
	return "Azure"
}

// DetectObjects analyzes an image with the object-detection feature and
// normalizes the response into raw detections.
func (c *Client) DetectObjects(imageData []byte) ([]vision.Detection, error) {
	body, err := c.post(c.endpoint+detectPath, imageData)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse detect response: %w", err)
	}

	detections := make([]vision.Detection, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		if obj.Object == "" {
			continue
		}
		detections = append(detections, vision.Detection{
			Name:       obj.Object,
			Confidence: obj.Confidence,
		})
	}

	return detections, nil
}

// Caption analyzes an image with the describe feature and returns the best
// caption.
func (c *Client) Caption(imageData []byte) (string, error) {
	body, err := c.post(c.endpoint+describePath, imageData)
	if err != nil {
		return "", err
	}

	var resp describeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse describe response: %w", err)
	}

	if len(resp.Description.Captions) == 0 {
		return "", fmt.Errorf("no captions in response")
	}

	return strings.TrimSpace(resp.Description.Captions[0].Text), nil
}

func (c *Client) post(url string, imageData []byte) ([]byte, error) {
	req, err := http.NewRequest("POST", url, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
