// Command migrate diagnoses every image in a directory and imports the
// results into the prediction history database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"leafdoctor/internal/app"
	"leafdoctor/internal/config"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
	"leafdoctor/internal/repository/sqldb"
	"leafdoctor/internal/service"
	"leafdoctor/internal/service/diagnosis"
	"leafdoctor/internal/service/intake"
	"leafdoctor/internal/service/storage"
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

func main() {
	cfg := config.Load()

	imagesDir := flag.String("images", "images", "Directory containing leaf images")
	driver := flag.String("driver", cfg.DBDriver, "Database driver (sqlite3 or postgres)")
	dsn := flag.String("db", cfg.DBDSN, "Database DSN")
	flag.Parse()

	fmt.Printf("Diagnosing images from %s into %s database %s\n", *imagesDir, *driver, *dsn)

	db, err := sqldb.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	table, err := diagnosis.LoadTable(cfg.DiseaseTable)
	if err != nil {
		log.Fatalf("Failed to load disease table: %v", err)
	}

	quiet := logger.NewDiscard()
	ctx := context.Background()

	handle := app.NewDetectorHandle(ctx, cfg, quiet)
	if _, err := handle.Get(); err != nil {
		log.Fatalf("Failed to load detector: %v", err)
	}
	defer handle.Close()

	buffer := storage.NewBufferService(sqldb.NewPredictionRepository(db), quiet)
	predictions := service.NewPredictionService(table, handle, buffer, nil, quiet)
	predictions.SetMaxImagePixels(cfg.MaxImagePixels)

	files, err := os.ReadDir(*imagesDir)
	if err != nil {
		log.Fatalf("Failed to read images directory: %v", err)
	}

	diagnosed, skipped, stored := 0, 0, 0
	for _, file := range files {
		if file.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
			continue
		}

		data, err := os.ReadFile(filepath.Join(*imagesDir, file.Name()))
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		payload := intake.FromBytes(model.SourceBatch, data)
		payload.Filename = file.Name()

		result, err := predictions.Predict(ctx, payload)
		if errors.Is(err, intake.ErrUnreadableImage) {
			log.Printf("⚠️  Skipping %s: not an image", file.Name())
			skipped++
			continue
		}
		if err != nil {
			log.Fatalf("Inference failed on %s: %v", file.Name(), err)
		}

		fmt.Printf("%-40s %-30s %s\n", file.Name(), result.DiseaseName, result.Confidence)
		diagnosed++

		// flush in chunks so the buffer never fills up
		if buffer.Pending() >= storage.HistoryBufferLimit/2 {
			stored += buffer.Flush(ctx)
		}
	}

	if diagnosed == 0 {
		fmt.Println("No images found to diagnose")
		return
	}

	stored += buffer.Flush(ctx)
	fmt.Printf("✅ Diagnosed %d images, skipped %d, stored %d\n", diagnosed, skipped, stored)
}
