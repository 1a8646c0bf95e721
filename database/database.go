package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"photo-annotation-pipeline/config"

	_ "github.com/go-sql-driver/mysql"
)

// Database represents the database connection
type Database struct {
	db *sql.DB
}

// Photo represents a photo row from the photo table
type Photo struct {
	ID              int
	AuthorID        int
	Filename        string
	Description     string
	AltText         sql.NullString
	DetectedObjects sql.NullString
	CreatedAt       time.Time
}

// PhotoAnnotation represents a saved annotation result
type PhotoAnnotation struct {
	PhotoID         int
	CaptionSource   string
	DetectorSource  string
	AltText         sql.NullString
	DetectedObjects sql.NullString
	CreatedAt       time.Time
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval time.Duration = 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break // Connection successful
		}
		log.Printf("Database connection failed, retrying in %v: %v", waitInterval, err)
		time.Sleep(waitInterval)
		waitInterval *= 2 // Exponential backoff: 1s, 2s, 4s, 8s, ...
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying sql.DB for direct queries
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// CreatePhotoAnnotationTable creates the photo_annotation audit table if it
// doesn't exist. Rows here record every annotation run; presence of a row is
// what marks a photo as processed, since NULL photo columns also mean
// "nothing detected".
func (d *Database) CreatePhotoAnnotationTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS photo_annotation (
		photo_id INT NOT NULL,
		caption_source VARCHAR(32) NOT NULL DEFAULT '',
		detector_source VARCHAR(32) NOT NULL DEFAULT '',
		alt_text VARCHAR(500),
		detected_objects TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX photo_id_index (photo_id),
		INDEX idx_photo_annotation_caption_source (caption_source),
		INDEX idx_photo_annotation_detector_source (detector_source)
	)`

	_, err := d.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create photo_annotation table: %w", err)
	}

	log.Println("photo_annotation table created/verified successfully")
	return nil
}

// GetUnannotatedPhotos returns photos that have no annotation run yet
func (d *Database) GetUnannotatedPhotos(cfg *config.Config, limit int) ([]Photo, error) {
	query := `
	SELECT p.id, p.author_id, p.filename, p.description, p.created_at
	FROM photo p
	WHERE p.id NOT IN (SELECT photo_id FROM photo_annotation) AND p.id > ?
	ORDER BY p.id ASC
	LIMIT ?`

	rows, err := d.db.Query(query, cfg.PhotoStartFrom, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unannotated photos: %w", err)
	}
	defer rows.Close()

	var description sql.NullString

	var photos []Photo
	for rows.Next() {
		var photo Photo
		err := rows.Scan(
			&photo.ID,
			&photo.AuthorID,
			&photo.Filename,
			&description,
			&photo.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photo.Description = description.String
		photos = append(photos, photo)
	}

	return photos, nil
}

// GetPhotoByID gets a single photo by id
func (d *Database) GetPhotoByID(id int) (*Photo, error) {
	query := `
	SELECT p.id, p.author_id, p.filename, p.description, p.alt_text, p.detected_objects, p.created_at
	FROM photo p
	WHERE p.id = ?`

	var photo Photo
	var description sql.NullString

	err := d.db.QueryRow(query, id).Scan(
		&photo.ID,
		&photo.AuthorID,
		&photo.Filename,
		&description,
		&photo.AltText,
		&photo.DetectedObjects,
		&photo.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("photo with id %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch photo %d: %w", id, err)
	}

	photo.Description = description.String
	return &photo, nil
}

// SavePhotoAnnotations writes the annotation results onto the photo row and
// records the run in the audit table, in one transaction. NULL values mean
// the capability was unavailable or produced no result for this photo.
func (d *Database) SavePhotoAnnotations(photoID int, altText, detectedObjects sql.NullString, captionSource, detectorSource string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE photo SET alt_text = ?, detected_objects = ? WHERE id = ?`,
		altText, detectedObjects, photoID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update photo %d: %w", photoID, err)
	}

	_, err = tx.Exec(
		`INSERT INTO photo_annotation (photo_id, caption_source, detector_source, alt_text, detected_objects)
		 VALUES (?, ?, ?, ?, ?)`,
		photoID, captionSource, detectorSource, altText, detectedObjects,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save annotation for photo %d: %w", photoID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit annotation for photo %d: %w", photoID, err)
	}

	return nil
}

// GetAnnotationByPhotoID returns the latest annotation run for a photo
func (d *Database) GetAnnotationByPhotoID(photoID int) (*PhotoAnnotation, error) {
	query := `
	SELECT photo_id, caption_source, detector_source, alt_text, detected_objects, created_at
	FROM photo_annotation
	WHERE photo_id = ?
	ORDER BY created_at DESC
	LIMIT 1`

	var annotation PhotoAnnotation
	err := d.db.QueryRow(query, photoID).Scan(
		&annotation.PhotoID,
		&annotation.CaptionSource,
		&annotation.DetectorSource,
		&annotation.AltText,
		&annotation.DetectedObjects,
		&annotation.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("annotation for photo %d not found", photoID)
		}
		return nil, fmt.Errorf("failed to fetch annotation for photo %d: %w", photoID, err)
	}

	return &annotation, nil
}

// GetLastAnnotatedID gets the highest photo id with an annotation run
func (d *Database) GetLastAnnotatedID() (int, error) {
	query := `SELECT MAX(photo_id) FROM photo_annotation`

	var lastID sql.NullInt64
	err := d.db.QueryRow(query).Scan(&lastID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil // No annotations yet
		}
		return 0, fmt.Errorf("failed to get last annotated id: %w", err)
	}

	if lastID.Valid {
		return int(lastID.Int64), nil
	}
	return 0, nil
}

// CountPendingPhotos counts photos awaiting an annotation run
func (d *Database) CountPendingPhotos(startFrom int) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM photo p
	WHERE p.id NOT IN (SELECT photo_id FROM photo_annotation) AND p.id > ?`

	var count int
	if err := d.db.QueryRow(query, startFrom).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending photos: %w", err)
	}

	return count, nil
}

// SearchPhotos runs a fulltext search over the generated annotations
func (d *Database) SearchPhotos(term string, limit int) ([]Photo, error) {
	query := `
	SELECT p.id, p.author_id, p.filename, p.description, p.alt_text, p.detected_objects, p.created_at
	FROM photo p
	WHERE MATCH(p.alt_text, p.detected_objects) AGAINST (? IN NATURAL LANGUAGE MODE)
	LIMIT ?`

	rows, err := d.db.Query(query, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search photos: %w", err)
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var photo Photo
		var description sql.NullString
		err := rows.Scan(
			&photo.ID,
			&photo.AuthorID,
			&photo.Filename,
			&description,
			&photo.AltText,
			&photo.DetectedObjects,
			&photo.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photo.Description = description.String
		photos = append(photos, photo)
	}

	return photos, nil
}
