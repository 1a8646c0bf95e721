package handlers

import (
	"net/http"
	"strconv"

	"photo-annotation-pipeline/database"
	"photo-annotation-pipeline/models"
	"photo-annotation-pipeline/service"

	"github.com/gin-gonic/gin"
)

// Handlers represents the HTTP handlers
type Handlers struct {
	db      *database.Database
	service *service.Service
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *database.Database, svc *service.Service) *Handlers {
	return &Handlers{db: db, service: svc}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"service":             "photo-annotation-pipeline",
		"caption_available":   h.service.IsCaptionAvailable(),
		"detection_available": h.service.IsObjectDetectionAvailable(),
	})
}

// GetAnnotationStatus returns the status of photo annotation
func (h *Handlers) GetAnnotationStatus(c *gin.Context) {
	lastAnnotatedID, err := h.db.GetLastAnnotatedID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get annotation status",
		})
		return
	}

	pending, err := h.db.CountPendingPhotos(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get pending photo count",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"last_annotated_id":   lastAnnotatedID,
		"pending_photos":      pending,
		"caption_available":   h.service.IsCaptionAvailable(),
		"detection_available": h.service.IsObjectDetectionAvailable(),
		"service":             "photo-annotation-pipeline",
	})
}

// GetAnnotationByPhoto returns the latest annotation for a specific photo
func (h *Handlers) GetAnnotationByPhoto(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid photo id",
		})
		return
	}

	annotation, err := h.db.GetAnnotationByPhotoID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Annotation not found",
		})
		return
	}

	c.JSON(http.StatusOK, models.PhotoAnnotation{
		PhotoID:         annotation.PhotoID,
		CaptionSource:   annotation.CaptionSource,
		DetectorSource:  annotation.DetectorSource,
		AltText:         annotation.AltText.String,
		DetectedObjects: annotation.DetectedObjects.String,
		CreatedAt:       annotation.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

// AnnotatePhoto annotates a single photo on demand
func (h *Handlers) AnnotatePhoto(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid photo id",
		})
		return
	}

	photo, err := h.db.GetPhotoByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Photo not found",
		})
		return
	}

	h.service.AnnotatePhoto(photo)

	annotation, err := h.db.GetAnnotationByPhotoID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Annotation run did not produce a record",
		})
		return
	}

	c.JSON(http.StatusOK, models.PhotoAnnotation{
		PhotoID:         annotation.PhotoID,
		CaptionSource:   annotation.CaptionSource,
		DetectorSource:  annotation.DetectorSource,
		AltText:         annotation.AltText.String,
		DetectedObjects: annotation.DetectedObjects.String,
		CreatedAt:       annotation.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

// SearchPhotos searches photos by their generated annotations
func (h *Handlers) SearchPhotos(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing query parameter q",
		})
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	photos, err := h.db.SearchPhotos(term, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to search photos",
		})
		return
	}

	results := make([]gin.H, 0, len(photos))
	for _, photo := range photos {
		results = append(results, gin.H{
			"id":               photo.ID,
			"filename":         photo.Filename,
			"alt_text":         photo.AltText.String,
			"detected_objects": photo.DetectedObjects.String,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   term,
		"count":   len(results),
		"results": results,
	})
}

// GetAnnotationStats returns statistics about photo annotation
func (h *Handlers) GetAnnotationStats(c *gin.Context) {
	// Get total annotated photos
	var totalAnnotated int
	err := h.db.GetDB().QueryRow("SELECT COUNT(DISTINCT photo_id) FROM photo_annotation").Scan(&totalAnnotated)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get annotation stats",
		})
		return
	}

	// Get total photos
	var totalPhotos int
	err = h.db.GetDB().QueryRow("SELECT COUNT(*) FROM photo").Scan(&totalPhotos)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get total photo count",
		})
		return
	}

	// Get annotations by detector source
	rows, err := h.db.GetDB().Query(`
		SELECT detector_source, COUNT(*) as count
		FROM photo_annotation
		GROUP BY detector_source
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get annotations by source",
		})
		return
	}
	defer rows.Close()

	sourceStats := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			continue
		}
		sourceStats[source] = count
	}

	c.JSON(http.StatusOK, gin.H{
		"total_photos":          totalPhotos,
		"total_annotated":       totalAnnotated,
		"pending_annotation":    totalPhotos - totalAnnotated,
		"annotations_by_source": sourceStats,
	})
}
