package sqlite

import (
	"database/sql"
	"fmt"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/model"
)

// timestampLayout is the local wall-clock format of the timestamp column.
const timestampLayout = "2006-01-02 15:04:05"

// ScreenshotRepository implements repository.ScreenshotRepository for SQLite.
type ScreenshotRepository struct {
	db *DB
}

// NewScreenshotRepository creates a new SQLite screenshot repository.
func NewScreenshotRepository(db *DB) *ScreenshotRepository {
	return &ScreenshotRepository{db: db}
}

// Upsert inserts a screenshot record, replacing the row that already uses its filename.
func (r *ScreenshotRepository) Upsert(shot *model.Screenshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO screenshots (filename, camera, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			camera = excluded.camera,
			timestamp = excluded.timestamp,
			filepath = excluded.filepath,
			filesize = excluded.filesize
	`, shot.Filename, shot.Camera, shot.Timestamp.Format(timestampLayout), shot.FilePath, shot.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert screenshot: %w", err)
	}

	var id int64
	if err := r.db.Conn().QueryRow(`SELECT id FROM screenshots WHERE filename = ?`, shot.Filename).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get screenshot id: %w", err)
	}
	shot.ID = id
	return id, nil
}

// GetByID retrieves a screenshot by its ID.
func (r *ScreenshotRepository) GetByID(id int64) (*model.Screenshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(`
		SELECT id, filename, camera, timestamp, filepath, filesize
		FROM screenshots WHERE id = ?
	`, id)
}

// GetByFilename retrieves a screenshot by its filename.
func (r *ScreenshotRepository) GetByFilename(filename string) (*model.Screenshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(`
		SELECT id, filename, camera, timestamp, filepath, filesize
		FROM screenshots WHERE filename = ?
	`, filename)
}

func (r *ScreenshotRepository) scanOne(query string, arg interface{}) (*model.Screenshot, error) {
	var shot model.Screenshot
	err := r.db.Conn().QueryRow(query, arg).
		Scan(&shot.ID, &shot.Filename, &shot.Camera, &shot.Timestamp, &shot.FilePath, &shot.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screenshot: %w", err)
	}
	return &shot, nil
}

// whereClause appends the filter conditions shared by GetAll and GetTotalCount.
func whereClause(query string, filter *dto.ScreenshotFilters) (string, []interface{}) {
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Camera != "" {
		query += " AND s.camera = ?"
		args = append(args, filter.Camera)
	}

	if filter.Class != "" {
		query += " AND d.class = ?"
		args = append(args, filter.Class)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND DATE(s.timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		query += " AND DATE(s.timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	if !filter.TimeAfter.IsZero() {
		query += " AND TIME(s.timestamp) >= TIME(?)"
		args = append(args, filter.TimeAfter.Format("15:04:05"))
	}

	if !filter.TimeBefore.IsZero() {
		query += " AND TIME(s.timestamp) <= TIME(?)"
		args = append(args, filter.TimeBefore.Format("15:04:05"))
	}

	return query, args
}

// GetAll retrieves screenshots based on filter criteria, newest first.
func (r *ScreenshotRepository) GetAll(filter *dto.ScreenshotFilters) ([]model.Screenshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := whereClause(`
		SELECT DISTINCT s.id, s.filename, s.camera, s.timestamp, s.filepath, s.filesize
		FROM screenshots s
		LEFT JOIN detections d ON s.id = d.screenshot_id
		WHERE 1=1
	`, filter)

	query += " ORDER BY s.timestamp DESC, s.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screenshots: %w", err)
	}
	defer rows.Close()

	var shots []model.Screenshot
	for rows.Next() {
		var shot model.Screenshot
		if err := rows.Scan(&shot.ID, &shot.Filename, &shot.Camera, &shot.Timestamp, &shot.FilePath, &shot.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan screenshot: %w", err)
		}
		shots = append(shots, shot)
	}

	return shots, rows.Err()
}

// GetTotalCount returns the total count of screenshots matching the filter.
func (r *ScreenshotRepository) GetTotalCount(filter *dto.ScreenshotFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := whereClause(`
		SELECT COUNT(DISTINCT s.id)
		FROM screenshots s
		LEFT JOIN detections d ON s.id = d.screenshot_id
		WHERE 1=1
	`, filter)

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count screenshots: %w", err)
	}

	return count, nil
}

// GetTotalSize returns the summed file size of all indexed screenshots.
func (r *ScreenshotRepository) GetTotalSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM screenshots`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum screenshot sizes: %w", err)
	}
	return size, nil
}

// GetStats returns statistics about stored screenshots.
func (r *ScreenshotRepository) GetStats() (*dto.ScreenshotStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &dto.ScreenshotStats{
		PerCamera:   make(map[string]int),
		ClassCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM screenshots`).Scan(&stats.TotalScreenshots); err != nil {
		return nil, err
	}

	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM screenshots`).Scan(&stats.TotalSizeBytes); err != nil {
		return nil, err
	}

	rows, err := r.db.Conn().Query(`SELECT camera, COUNT(*) FROM screenshots GROUP BY camera`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var camera string
		var count int
		if err := rows.Scan(&camera, &count); err != nil {
			return nil, err
		}
		stats.PerCamera[camera] = count
	}

	classRows, err := r.db.Conn().Query(`
		SELECT class, COUNT(*) as cnt
		FROM detections
		GROUP BY class
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer classRows.Close()

	for classRows.Next() {
		var class string
		var count int
		if err := classRows.Scan(&class, &count); err != nil {
			return nil, err
		}
		stats.ClassCounts[class] = count
	}

	return stats, nil
}

// Delete removes a screenshot by its ID together with its detections.
func (r *ScreenshotRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE screenshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM screenshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete screenshot: %w", err)
	}
	return nil
}

// DeleteByFilename removes a screenshot by its filename. Unknown names are ignored.
func (r *ScreenshotRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	err := r.db.Conn().QueryRow(`SELECT id FROM screenshots WHERE filename = ?`, filename).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get screenshot id: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE screenshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM screenshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete screenshot: %w", err)
	}
	return nil
}

// DeleteAll removes all screenshots and their detections.
func (r *ScreenshotRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM screenshots`); err != nil {
		return fmt.Errorf("failed to delete screenshots: %w", err)
	}

	return nil
}
