package vision

// Detection is a single raw observation reported by an image-analysis
// backend: an object name plus a confidence score, conventionally in [0,1].
// Backends may report the same name several times (overlapping boxes).
type Detection struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Detector abstracts an object-detection backend used by the annotator.
// Implementations normalize their own wire shape into Detection.
type Detector interface {
	// DetectObjects takes raw image bytes and returns the raw detections.
	DetectObjects(imageData []byte) ([]Detection, error)
	// SourceName returns a short provider label to persist in the database
	// (e.g., "Azure", "Ollama").
	SourceName() string
}

// Captioner abstracts an image-captioning backend producing alternative text.
type Captioner interface {
	// Caption takes raw image bytes and returns a one-sentence description.
	Caption(imageData []byte) (string, error)
	// SourceName returns a short provider label to persist in the database.
	SourceName() string
}
