package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"photo-annotation-pipeline/vision"
)

// ExtractJSONFromMarkdown extracts a JSON payload from markdown code blocks.
// Vision models frequently wrap their JSON in ``` fences despite being told
// not to.
func ExtractJSONFromMarkdown(response string) string {
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find the JSON payload directly
		return extractBareJSON(response)
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	// Extract content between the markers
	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

func extractBareJSON(response string) string {
	// Arrays first: detection responses are JSON arrays
	startIdx := strings.Index(response, "[")
	endIdx := strings.LastIndex(response, "]")
	if startIdx != -1 && endIdx > startIdx {
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	startIdx = strings.Index(response, "{")
	endIdx = strings.LastIndex(response, "}")
	if startIdx != -1 && endIdx > startIdx {
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	return response
}

// detectionEnvelope is the object form some models answer with instead of a
// bare array.
type detectionEnvelope struct {
	Objects []vision.Detection `json:"objects"`
}

// ParseDetections parses a model response into raw detections. The response
// must contain a JSON array of {"name", "confidence"} objects, either bare or
// wrapped in an {"objects": [...]} envelope, optionally inside markdown
// fences. Entries without a name are dropped.
func ParseDetections(response string) ([]vision.Detection, error) {
	cleaned := strings.TrimSpace(response)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	jsonContent := ExtractJSONFromMarkdown(cleaned)

	var detections []vision.Detection
	if err := json.Unmarshal([]byte(jsonContent), &detections); err != nil {
		var envelope detectionEnvelope
		if envErr := json.Unmarshal([]byte(jsonContent), &envelope); envErr != nil {
			return nil, errors.New("failed to parse JSON response: " + err.Error())
		}
		detections = envelope.Objects
	}

	valid := detections[:0]
	for _, det := range detections {
		if det.Name == "" {
			continue
		}
		if det.Confidence < 0 || det.Confidence > 1 {
			return nil, errors.New("confidence must be between 0 and 1")
		}
		valid = append(valid, det)
	}

	return valid, nil
}
