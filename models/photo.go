package models

import (
	"time"

	"photo-annotation-pipeline/labels"
)

// Photo is the API shape of a photo row.
type Photo struct {
	ID          int       `json:"id"`
	AuthorID    int       `json:"author_id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PhotoAnnotation is the API shape of a saved annotation.
type PhotoAnnotation struct {
	PhotoID         int    `json:"photo_id"`
	CaptionSource   string `json:"caption_source,omitempty"`
	DetectorSource  string `json:"detector_source,omitempty"`
	AltText         string `json:"alt_text,omitempty"`
	DetectedObjects string `json:"detected_objects,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// PhotoAnnotated is the event published after a photo has been annotated.
type PhotoAnnotated struct {
	PhotoID         int                  `json:"photo_id"`
	Filename        string               `json:"filename"`
	AltText         string               `json:"alt_text,omitempty"`
	DetectedObjects []labels.RankedLabel `json:"detected_objects,omitempty"`
	CaptionSource   string               `json:"caption_source,omitempty"`
	DetectorSource  string               `json:"detector_source,omitempty"`
	AnnotatedAt     time.Time            `json:"annotated_at"`
}
