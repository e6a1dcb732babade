package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"helmetwatch/internal/config"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository/sqlite"
	"helmetwatch/internal/service/storage"
)

func main() {
	cfg := config.Load()

	screenshotsDir := flag.String("screenshots", cfg.ScreenshotDirectory, "Directory containing screenshots")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	camera := flag.String("camera", "unknown", "Camera name recorded for indexed screenshots")
	flag.Parse()

	fmt.Printf("Indexing screenshots from %s into database %s\n", *screenshotsDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	shotRepo := sqlite.NewScreenshotRepository(db)

	files, err := os.ReadDir(*screenshotsDir)
	if err != nil {
		log.Fatalf("Failed to read screenshots directory: %v", err)
	}

	indexed, skipped := 0, 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		timestamp, err := storage.ParseFilename(file.Name())
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		existing, err := shotRepo.GetByFilename(file.Name())
		if err != nil {
			log.Fatalf("Failed to look up %s: %v", file.Name(), err)
		}
		if existing != nil {
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if _, err := shotRepo.Upsert(&model.Screenshot{
			Filename:  file.Name(),
			Camera:    *camera,
			Timestamp: timestamp,
			FilePath:  filepath.Join(*screenshotsDir, file.Name()),
			FileSize:  info.Size(),
		}); err != nil {
			log.Fatalf("Failed to index %s: %v", file.Name(), err)
		}
		indexed++
	}

	fmt.Printf("Indexed %d screenshot(s)\n", indexed)
	if skipped > 0 {
		fmt.Printf("Skipped %d file(s) (invalid name or errors)\n", skipped)
	}

	stats, err := shotRepo.GetStats()
	if err == nil {
		fmt.Printf("\nDatabase statistics:\n")
		fmt.Printf("   Total screenshots: %d\n", stats.TotalScreenshots)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		fmt.Printf("   Per camera:\n")
		for camera, count := range stats.PerCamera {
			fmt.Printf("      - %s: %d\n", camera, count)
		}
	}
}
