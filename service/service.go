package service

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	"photo-annotation-pipeline/azure"
	"photo-annotation-pipeline/config"
	"photo-annotation-pipeline/database"
	"photo-annotation-pipeline/image"
	"photo-annotation-pipeline/labels"
	"photo-annotation-pipeline/metrics"
	"photo-annotation-pipeline/models"
	"photo-annotation-pipeline/ollamavision"
	"photo-annotation-pipeline/rabbitmq"
	"photo-annotation-pipeline/stubvision"
	"photo-annotation-pipeline/vision"
)

// Service represents the photo annotation service
type Service struct {
	config    *config.Config
	db        *database.Database
	captioner vision.Captioner
	detector  vision.Detector
	publisher *rabbitmq.Publisher
	stopChan  chan bool
}

// NewService creates a new photo annotation service. Backends are constructed
// explicitly here: a backend that cannot be built leaves its capability
// unavailable, it is never retried implicitly on use.
func NewService(cfg *config.Config, db *database.Database) *Service {
	captioner := newCaptioner(cfg)
	detector := newDetector(cfg)

	if captioner != nil {
		log.Printf("Caption backend: %s", captioner.SourceName())
		metrics.CaptionAvailable.Set(1)
	} else {
		log.Printf("Caption backend not available, alt text generation disabled")
		metrics.CaptionAvailable.Set(0)
	}
	if detector != nil {
		log.Printf("Detection backend: %s", detector.SourceName())
		metrics.DetectionAvailable.Set(1)
	} else {
		log.Printf("Detection backend not available, object detection disabled")
		metrics.DetectionAvailable.Set(0)
	}

	// Initialize RabbitMQ publisher when configured
	var publisher *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		var err error
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AnnotatedRoutingKey)
		if err != nil {
			log.Printf("Failed to initialize RabbitMQ publisher: %v", err)
			// Continue without publisher - annotation will still work
			publisher = nil
		}
	}

	return &Service{
		config:    cfg,
		db:        db,
		captioner: captioner,
		detector:  detector,
		publisher: publisher,
		stopChan:  make(chan bool),
	}
}

func newCaptioner(cfg *config.Config) vision.Captioner {
	switch cfg.CaptionProvider {
	case config.ProviderOllama:
		client, err := ollamavision.NewClient(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			log.Printf("Failed to initialize Ollama captioner: %v", err)
			return nil
		}
		return client
	case config.ProviderAzure:
		if cfg.AzureEndpoint == "" || cfg.AzureKey == "" {
			log.Printf("Azure credentials not found in environment variables")
			return nil
		}
		return azure.NewClient(cfg.AzureEndpoint, cfg.AzureKey)
	case config.ProviderStub:
		return stubvision.NewClient()
	case config.ProviderNone, "":
		return nil
	default:
		log.Printf("Unknown caption provider %q", cfg.CaptionProvider)
		return nil
	}
}

func newDetector(cfg *config.Config) vision.Detector {
	switch cfg.DetectorProvider {
	case config.ProviderAzure:
		if cfg.AzureEndpoint == "" || cfg.AzureKey == "" {
			log.Printf("Azure credentials not found in environment variables")
			return nil
		}
		return azure.NewClient(cfg.AzureEndpoint, cfg.AzureKey)
	case config.ProviderOllama:
		client, err := ollamavision.NewClient(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			log.Printf("Failed to initialize Ollama detector: %v", err)
			return nil
		}
		return client
	case config.ProviderStub:
		return stubvision.NewClient()
	case config.ProviderNone, "":
		return nil
	default:
		log.Printf("Unknown detector provider %q", cfg.DetectorProvider)
		return nil
	}
}

// IsCaptionAvailable reports whether a captioning backend was constructed.
// It says nothing about whether the next call will succeed.
func (s *Service) IsCaptionAvailable() bool {
	return s.captioner != nil
}

// IsObjectDetectionAvailable reports whether a detection backend was constructed.
func (s *Service) IsObjectDetectionAvailable() bool {
	return s.detector != nil
}

// CaptionSource returns the captioner provider label, or "" when unavailable.
func (s *Service) CaptionSource() string {
	if s.captioner == nil {
		return ""
	}
	return s.captioner.SourceName()
}

// DetectorSource returns the detector provider label, or "" when unavailable.
func (s *Service) DetectorSource() string {
	if s.detector == nil {
		return ""
	}
	return s.detector.SourceName()
}

// Start prepares the schema and starts the annotation poll loop
func (s *Service) Start() {
	log.Println("Starting photo annotation service...")

	// Create the photo_annotation table if it doesn't exist
	if err := s.db.CreatePhotoAnnotationTable(); err != nil {
		log.Printf("Failed to create photo_annotation table: %v", err)
		return
	}

	// Add the annotation columns to the photo table if missing
	if err := database.RunMigrations(s.db); err != nil {
		log.Printf("Failed to migrate photo table: %v", err)
		return
	}

	go s.run()
}

// Stop stops the annotation service
func (s *Service) Stop() {
	log.Println("Stopping photo annotation service...")

	// Close RabbitMQ publisher if it exists
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("Failed to close RabbitMQ publisher: %v", err)
		}
	}

	close(s.stopChan)
}

func (s *Service) run() {
	ticker := time.NewTicker(s.config.AnnotateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.annotateBatch()
		}
	}
}

func (s *Service) annotateBatch() {
	photos, err := s.db.GetUnannotatedPhotos(s.config, s.config.BatchSize)
	if err != nil {
		log.Printf("Failed to fetch unannotated photos: %v", err)
		return
	}

	for i := range photos {
		s.AnnotatePhoto(&photos[i])
	}
}

// AnnotatePhoto runs both capabilities against a single photo and persists
// whatever they produced. Backend failures are logged and yield a NULL
// result for that capability; they are never propagated.
func (s *Service) AnnotatePhoto(photo *database.Photo) {
	start := time.Now()
	result := "ok"

	imageData, err := s.loadPhotoFile(photo.Filename)
	if err == nil {
		imageData, err = image.Prepare(imageData)
	}
	if err != nil {
		log.Printf("Failed to load image for photo %d: %v", photo.ID, err)
		// Record the run with no results so the photo is not retried forever
		if saveErr := s.db.SavePhotoAnnotations(photo.ID, sql.NullString{}, sql.NullString{}, s.CaptionSource(), s.DetectorSource()); saveErr != nil {
			log.Printf("Failed to save empty annotation for photo %d: %v", photo.ID, saveErr)
		}
		metrics.PhotosProcessedTotal.WithLabelValues("image_error").Inc()
		metrics.ProcessingDurationSeconds.WithLabelValues("image_error").Observe(time.Since(start).Seconds())
		return
	}

	log.Printf("Annotating photo %d (%s), image size: %d bytes", photo.ID, photo.Filename, len(imageData))

	altText := s.generateAltText(photo.ID, imageData)
	detectedObjects, ranked := s.detectObjects(photo.ID, imageData)

	if !altText.Valid && !detectedObjects.Valid {
		result = "empty"
	}

	if err := s.db.SavePhotoAnnotations(photo.ID, altText, detectedObjects, s.CaptionSource(), s.DetectorSource()); err != nil {
		log.Printf("Failed to save annotation for photo %d: %v", photo.ID, err)
		metrics.PhotosProcessedTotal.WithLabelValues("save_error").Inc()
		metrics.ProcessingDurationSeconds.WithLabelValues("save_error").Observe(time.Since(start).Seconds())
		return
	}

	metrics.PhotosProcessedTotal.WithLabelValues(result).Inc()
	metrics.ProcessingDurationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
	metrics.LastAnnotatedSeconds.Set(metrics.NowUnixSeconds())

	s.publishAnnotatedPhoto(photo, altText, ranked)
}

// generateAltText produces the alternative text for a photo, or a NULL value
// when the capability is unavailable or the call failed.
func (s *Service) generateAltText(photoID int, imageData []byte) sql.NullString {
	if s.captioner == nil {
		return sql.NullString{}
	}

	caption, err := s.captioner.Caption(imageData)
	if err != nil {
		log.Printf("Failed to generate alt text for photo %d: %v", photoID, err)
		return sql.NullString{}
	}

	caption = truncateCaption(caption, s.config.CaptionMaxLength)
	log.Printf("Generated alt text for photo %d: %s", photoID, caption)
	return sql.NullString{String: caption, Valid: true}
}

// detectObjects produces the ranked object labels for a photo, or a NULL
// value when the capability is unavailable, the call failed, or nothing
// cleared the confidence threshold.
func (s *Service) detectObjects(photoID int, imageData []byte) (sql.NullString, []labels.RankedLabel) {
	if s.detector == nil {
		return sql.NullString{}, nil
	}

	detections, err := s.detector.DetectObjects(imageData)
	if err != nil {
		log.Printf("Failed to detect objects for photo %d: %v", photoID, err)
		return sql.NullString{}, nil
	}

	ranked := labels.Rank(detections)
	metrics.LabelsPerPhoto.Observe(float64(len(ranked)))

	encoded, ok := labels.EncodeJSON(ranked)
	if !ok {
		log.Printf("No objects detected with sufficient confidence for photo %d", photoID)
		return sql.NullString{}, nil
	}

	names := make([]string, 0, len(ranked))
	for _, l := range ranked {
		names = append(names, l.Name)
	}
	log.Printf("Detected objects for photo %d: %v", photoID, names)

	return sql.NullString{String: encoded, Valid: true}, ranked
}

// publishAnnotatedPhoto publishes a photo-annotated event to RabbitMQ
func (s *Service) publishAnnotatedPhoto(photo *database.Photo, altText sql.NullString, ranked []labels.RankedLabel) {
	if s.publisher == nil {
		return
	}

	event := models.PhotoAnnotated{
		PhotoID:         photo.ID,
		Filename:        photo.Filename,
		AltText:         altText.String,
		DetectedObjects: ranked,
		CaptionSource:   s.CaptionSource(),
		DetectorSource:  s.DetectorSource(),
		AnnotatedAt:     time.Now(),
	}

	if err := s.publisher.Publish(event); err != nil {
		log.Printf("Failed to publish annotated photo %d: %v", photo.ID, err)
		metrics.PublishErrorTotal.Inc()
	} else {
		log.Printf("Successfully published annotated photo %d", photo.ID)
	}
}

func (s *Service) loadPhotoFile(filename string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.config.UploadPath, filepath.Base(filename)))
}

// truncateCaption limits a caption to max runes, respecting the column width.
func truncateCaption(caption string, max int) string {
	if max <= 0 {
		return caption
	}
	runes := []rune(caption)
	if len(runes) <= max {
		return caption
	}
	return string(runes[:max])
}
