package database

import (
	"fmt"
	"log"
)

// RunMigrations runs all database migrations. Each migration is idempotent:
// columns and indexes are only added when missing, so re-running on an
// already-migrated database is a no-op.
func RunMigrations(d *Database) error {
	log.Println("Running database migrations...")

	// Migration 1: Add alt_text column to photo table
	if err := d.runMigration001(); err != nil {
		return fmt.Errorf("migration 001 failed: %w", err)
	}

	// Migration 2: Add detected_objects column to photo table
	if err := d.runMigration002(); err != nil {
		return fmt.Errorf("migration 002 failed: %w", err)
	}

	// Migration 3: Add fulltext index over generated annotations
	if err := d.runMigration003(); err != nil {
		return fmt.Errorf("migration 003 failed: %w", err)
	}

	log.Println("All migrations completed successfully")
	return nil
}

// runMigration001 adds the alt_text column for generated alternative text
func (d *Database) runMigration001() error {
	exists, err := d.columnExists("photo", "alt_text")
	if err != nil {
		return fmt.Errorf("failed to check if alt_text column exists: %w", err)
	}

	if exists {
		log.Println("alt_text column already exists in photo table, skipping migration")
		return nil
	}

	log.Println("Adding alt_text column to photo table...")
	_, err = d.db.Exec(`ALTER TABLE photo ADD COLUMN alt_text VARCHAR(500)`)
	if err != nil {
		return fmt.Errorf("failed to add alt_text column: %w", err)
	}

	log.Println("Successfully added alt_text column to photo table")
	return nil
}

// runMigration002 adds the detected_objects column for ranked object labels
func (d *Database) runMigration002() error {
	exists, err := d.columnExists("photo", "detected_objects")
	if err != nil {
		return fmt.Errorf("failed to check if detected_objects column exists: %w", err)
	}

	if exists {
		log.Println("detected_objects column already exists in photo table, skipping migration")
		return nil
	}

	log.Println("Adding detected_objects column to photo table...")
	_, err = d.db.Exec(`ALTER TABLE photo ADD COLUMN detected_objects TEXT`)
	if err != nil {
		return fmt.Errorf("failed to add detected_objects column: %w", err)
	}

	log.Println("Successfully added detected_objects column to photo table")
	return nil
}

// runMigration003 adds a fulltext index so generated annotations are searchable
func (d *Database) runMigration003() error {
	exists, err := d.indexExists("photo", "ft_photo_annotation")
	if err != nil {
		return fmt.Errorf("failed to check if ft_photo_annotation index exists: %w", err)
	}

	if exists {
		log.Println("ft_photo_annotation index already exists on photo table, skipping migration")
		return nil
	}

	log.Println("Adding ft_photo_annotation fulltext index to photo table...")
	_, err = d.db.Exec(`CREATE FULLTEXT INDEX ft_photo_annotation ON photo(alt_text, detected_objects)`)
	if err != nil {
		return fmt.Errorf("failed to add ft_photo_annotation index: %w", err)
	}

	log.Println("Successfully added ft_photo_annotation index to photo table")
	return nil
}

// columnExists checks if a column exists in a table
func (d *Database) columnExists(tableName, columnName string) (bool, error) {
	query := `
	SELECT COUNT(*)
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE()
	AND TABLE_NAME = ?
	AND COLUMN_NAME = ?`

	var count int
	err := d.db.QueryRow(query, tableName, columnName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if column exists: %w", err)
	}

	return count > 0, nil
}

// indexExists checks if an index exists in a table
func (d *Database) indexExists(tableName, indexName string) (bool, error) {
	query := `
	SELECT COUNT(*)
	FROM INFORMATION_SCHEMA.STATISTICS
	WHERE TABLE_SCHEMA = DATABASE()
	AND TABLE_NAME = ?
	AND INDEX_NAME = ?`

	var count int
	err := d.db.QueryRow(query, tableName, indexName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if index exists: %w", err)
	}

	return count > 0, nil
}
