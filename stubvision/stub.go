package stubvision

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"photo-annotation-pipeline/vision"
)

// stubObjects is the pool of object names the stub draws from.
var stubObjects = []string{"person", "dog", "cat", "bicycle", "tree", "car", "bench", "flower"}

// Client is a deterministic, no-network vision stub intended for CI and local
// end-to-end tests. It returns detections that exercise the full filter,
// dedup and ranking path, including a duplicate name and a below-threshold
// entry.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

// Caption returns a deterministic per-input caption.
func (c *Client) Caption(imageData []byte) (string, error) {
	sum := sha256.Sum256(imageData)
	short := hex.EncodeToString(sum[:4])
	return fmt.Sprintf("a stub photo of a %s (%s)", stubObjects[int(sum[0])%len(stubObjects)], short), nil
}

// DetectObjects returns deterministic per-input detections.
func (c *Client) DetectObjects(imageData []byte) ([]vision.Detection, error) {
	sum := sha256.Sum256(imageData)

	primary := stubObjects[int(sum[0])%len(stubObjects)]
	secondary := stubObjects[int(sum[1])%len(stubObjects)]

	// Confidences derived from the digest so distinct images differ, kept in
	// ranges that land on both sides of the ranking threshold.
	primaryConf := 0.70 + float64(sum[2]%30)/100.0   // 0.70..0.99
	duplicateConf := 0.51 + float64(sum[3]%19)/100.0 // 0.51..0.69
	lowConf := float64(sum[4]%50) / 100.0            // 0.00..0.49

	return []vision.Detection{
		{Name: primary, Confidence: primaryConf},
		{Name: primary, Confidence: duplicateConf},
		{Name: secondary, Confidence: lowConf},
	}, nil
}
