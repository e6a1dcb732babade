package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func shotAt(name, camera string, ts time.Time) *model.Screenshot {
	return &model.Screenshot{
		Filename:  name,
		Camera:    camera,
		Timestamp: ts,
		FilePath:  "/screenshots/" + name,
		FileSize:  1024,
	}
}

func TestDatabase_Connection(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestScreenshotRepository_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewScreenshotRepository(db)

	ts := time.Date(2025, 6, 15, 14, 30, 5, 0, time.Local)
	shot := shotAt("screenshot_20250615_143005.png", "A", ts)

	id, err := repo.Upsert(shot)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if id == 0 || shot.ID != id {
		t.Fatalf("Expected id to be set, got %d / %d", id, shot.ID)
	}

	got, err := repo.GetByFilename(shot.Filename)
	if err != nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected screenshot, got nil")
	}
	if got.Camera != "A" || got.FileSize != 1024 {
		t.Errorf("Unexpected screenshot %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, got.Timestamp)
	}

	byID, err := repo.GetByID(id)
	if err != nil || byID == nil || byID.Filename != shot.Filename {
		t.Errorf("GetByID returned %+v, %v", byID, err)
	}
}

func TestScreenshotRepository_UpsertSameFilenameOverwrites(t *testing.T) {
	db := newTestDB(t)
	repo := NewScreenshotRepository(db)

	ts := time.Date(2025, 6, 15, 14, 30, 5, 0, time.Local)
	first, err := repo.Upsert(shotAt("screenshot_20250615_143005.png", "A", ts))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	second := shotAt("screenshot_20250615_143005.png", "B", ts)
	second.FileSize = 2048
	again, err := repo.Upsert(second)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if first != again {
		t.Errorf("Expected same row id, got %d and %d", first, again)
	}

	count, _ := repo.GetTotalCount(&dto.ScreenshotFilters{})
	if count != 1 {
		t.Errorf("Expected 1 screenshot, got %d", count)
	}
	got, _ := repo.GetByID(first)
	if got.Camera != "B" || got.FileSize != 2048 {
		t.Errorf("Expected overwritten record, got %+v", got)
	}
}

func TestScreenshotRepository_GetMissing(t *testing.T) {
	repo := NewScreenshotRepository(newTestDB(t))

	got, err := repo.GetByFilename("nope.png")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}
}

func TestScreenshotRepository_Filters(t *testing.T) {
	db := newTestDB(t)
	shots := NewScreenshotRepository(db)
	dets := NewDetectionRepository(db)

	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local)
	entries := []struct {
		name   string
		camera string
		at     time.Time
		class  string
	}{
		{"a.png", "A", day.Add(8 * time.Hour), "no helmet"},
		{"b.png", "A", day.Add(13 * time.Hour), "helmet"},
		{"c.png", "B", day.Add(18 * time.Hour), "no helmet"},
		{"d.png", "B", day.AddDate(0, 0, 1).Add(9 * time.Hour), "no helmet"},
	}
	for _, e := range entries {
		id, err := shots.Upsert(shotAt(e.name, e.camera, e.at))
		if err != nil {
			t.Fatalf("Upsert %s failed: %v", e.name, err)
		}
		if err := dets.ReplaceForScreenshot(id, []model.Detection{{Class: e.class, Confidence: 0.8}}); err != nil {
			t.Fatalf("ReplaceForScreenshot failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   *dto.ScreenshotFilters
		expected []string
	}{
		{"all", &dto.ScreenshotFilters{}, []string{"d.png", "c.png", "b.png", "a.png"}},
		{"camera", &dto.ScreenshotFilters{Camera: "A"}, []string{"b.png", "a.png"}},
		{"class", &dto.ScreenshotFilters{Class: "no helmet"}, []string{"d.png", "c.png", "a.png"}},
		{"date", &dto.ScreenshotFilters{DateAfter: day, DateBefore: day}, []string{"c.png", "b.png", "a.png"}},
		{"time", &dto.ScreenshotFilters{
			TimeAfter:  time.Date(0, 1, 1, 9, 0, 0, 0, time.Local),
			TimeBefore: time.Date(0, 1, 1, 17, 0, 0, 0, time.Local),
		}, []string{"d.png", "b.png"}},
		{"paged", &dto.ScreenshotFilters{Limit: 2, Offset: 1}, []string{"c.png", "b.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shots.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d screenshots, got %d", len(tt.expected), len(got))
			}
			for i, name := range tt.expected {
				if got[i].Filename != name {
					t.Errorf("Position %d: expected %s, got %s", i, name, got[i].Filename)
				}
			}

			if tt.filter.Limit == 0 {
				count, err := shots.GetTotalCount(tt.filter)
				if err != nil {
					t.Fatalf("GetTotalCount failed: %v", err)
				}
				if count != len(tt.expected) {
					t.Errorf("Expected count %d, got %d", len(tt.expected), count)
				}
			}
		})
	}
}

func TestScreenshotRepository_StatsAndDelete(t *testing.T) {
	db := newTestDB(t)
	shots := NewScreenshotRepository(db)
	dets := NewDetectionRepository(db)

	now := time.Now()
	idA, _ := shots.Upsert(shotAt("a.png", "A", now))
	idB, _ := shots.Upsert(shotAt("b.png", "B", now))
	dets.ReplaceForScreenshot(idA, []model.Detection{{Class: "no helmet"}, {Class: "helmet"}})
	dets.ReplaceForScreenshot(idB, []model.Detection{{Class: "no helmet"}})

	stats, err := shots.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalScreenshots != 2 || stats.TotalSizeBytes != 2048 {
		t.Errorf("Unexpected totals %+v", stats)
	}
	if stats.PerCamera["A"] != 1 || stats.PerCamera["B"] != 1 {
		t.Errorf("Unexpected per-camera counts %v", stats.PerCamera)
	}
	if stats.ClassCounts["no helmet"] != 2 || stats.ClassCounts["helmet"] != 1 {
		t.Errorf("Unexpected class counts %v", stats.ClassCounts)
	}

	if err := shots.DeleteByFilename("a.png"); err != nil {
		t.Fatalf("DeleteByFilename failed: %v", err)
	}
	if remaining, _ := dets.GetByScreenshotID(idA); len(remaining) != 0 {
		t.Errorf("Expected detections to be removed, got %d", len(remaining))
	}
	if err := shots.DeleteByFilename("a.png"); err != nil {
		t.Errorf("Deleting a missing screenshot should be a no-op, got %v", err)
	}

	if err := shots.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	size, _ := shots.GetTotalSize()
	if size != 0 {
		t.Errorf("Expected empty index, got size %d", size)
	}
	if classes, _ := dets.GetAllClasses(); len(classes) != 0 {
		t.Errorf("Expected no classes, got %v", classes)
	}
}

func TestDetectionRepository_ReplaceForScreenshot(t *testing.T) {
	db := newTestDB(t)
	shots := NewScreenshotRepository(db)
	dets := NewDetectionRepository(db)

	id, _ := shots.Upsert(shotAt("a.png", "A", time.Now()))

	if err := dets.ReplaceForScreenshot(id, []model.Detection{
		{Class: "helmet", X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.5},
	}); err != nil {
		t.Fatalf("ReplaceForScreenshot failed: %v", err)
	}
	if err := dets.ReplaceForScreenshot(id, []model.Detection{
		{Class: "no helmet", X: 40, Y: 40, Width: 20, Height: 20, Confidence: 0.9},
		{Class: "helmet", X: 0, Y: 0, Width: 10, Height: 10, Confidence: 0.7},
	}); err != nil {
		t.Fatalf("Second ReplaceForScreenshot failed: %v", err)
	}

	got, err := dets.GetByScreenshotID(id)
	if err != nil {
		t.Fatalf("GetByScreenshotID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(got))
	}
	if got[0].Class != "no helmet" || got[0].X != 40 || got[0].ScreenshotID != id {
		t.Errorf("Unexpected detection %+v", got[0])
	}

	classes, _ := dets.GetClassesByScreenshotID(id)
	if len(classes) != 2 || classes[0] != "helmet" || classes[1] != "no helmet" {
		t.Errorf("Unexpected classes %v", classes)
	}

	if err := dets.DeleteByScreenshotID(id); err != nil {
		t.Fatalf("DeleteByScreenshotID failed: %v", err)
	}
	if got, _ := dets.GetByScreenshotID(id); len(got) != 0 {
		t.Errorf("Expected no detections, got %d", len(got))
	}
}

func TestDetectionRepository_InsertBatch(t *testing.T) {
	db := newTestDB(t)
	shots := NewScreenshotRepository(db)
	dets := NewDetectionRepository(db)

	id, _ := shots.Upsert(shotAt("a.png", "A", time.Now()))
	batch := []model.Detection{
		{ScreenshotID: id, Class: "helmet"},
		{ScreenshotID: id, Class: "helmet"},
		{ScreenshotID: id, Class: "vest"},
	}
	if err := dets.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	classes, _ := dets.GetAllClasses()
	if len(classes) != 2 {
		t.Errorf("Expected 2 distinct classes, got %v", classes)
	}
}

func TestDatabase_ConcurrentAccess(t *testing.T) {
	db := newTestDB(t)
	repo := NewScreenshotRepository(db)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, err := repo.Upsert(shotAt(fmt.Sprintf("concurrent_%d.png", idx), "A", time.Now())); err != nil {
				t.Errorf("Concurrent upsert %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	count, _ := repo.GetTotalCount(nil)
	if count != 10 {
		t.Errorf("Expected 10 screenshots, got %d", count)
	}
}
