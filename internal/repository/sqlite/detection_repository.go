package sqlite

import (
	"database/sql"
	"fmt"

	"helmetwatch/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

const insertDetection = `
	INSERT INTO detections (screenshot_id, class, x, y, width, height, confidence)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAll(tx, detections); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceForScreenshot drops the detections already stored for a screenshot and inserts the new set.
func (r *DetectionRepository) ReplaceForScreenshot(screenshotID int64, detections []model.Detection) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM detections WHERE screenshot_id = ?`, screenshotID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	for i := range detections {
		detections[i].ScreenshotID = screenshotID
	}
	if err := insertAll(tx, detections); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAll(tx *sql.Tx, detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(insertDetection)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.ScreenshotID, det.Class, det.X, det.Y, det.Width, det.Height, det.Confidence); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}
	return nil
}

// GetByScreenshotID retrieves all detections for a screenshot.
func (r *DetectionRepository) GetByScreenshotID(screenshotID int64) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, screenshot_id, class, x, y, width, height, confidence
		FROM detections WHERE screenshot_id = ?
		ORDER BY id
	`, screenshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.Detection
	for rows.Next() {
		var det model.Detection
		if err := rows.Scan(&det.ID, &det.ScreenshotID, &det.Class, &det.X, &det.Y, &det.Width, &det.Height, &det.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}

// GetClassesByScreenshotID returns the distinct class labels detected in a screenshot.
func (r *DetectionRepository) GetClassesByScreenshotID(screenshotID int64) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryStrings(`SELECT DISTINCT class FROM detections WHERE screenshot_id = ? ORDER BY class`, screenshotID)
}

// GetAllClasses returns every distinct class label ever recorded.
func (r *DetectionRepository) GetAllClasses() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryStrings(`SELECT DISTINCT class FROM detections ORDER BY class`)
}

func (r *DetectionRepository) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var classes []string
	for rows.Next() {
		var class string
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

// DeleteByScreenshotID removes all detections for a specific screenshot.
func (r *DetectionRepository) DeleteByScreenshotID(screenshotID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE screenshot_id = ?`, screenshotID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}
