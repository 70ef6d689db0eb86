package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"facecam/internal/model"
	"facecam/internal/repository/sqlite"
	"facecam/internal/service/storage"
)

// migrate copies observations from the JSON analysis logs into the SQLite store.
func main() {
	analysisDir := flag.String("analysis", "analysis", "Directory containing the JSON analysis logs")
	dbPath := flag.String("db", filepath.Join("db", "faces.db"), "Database path")
	reset := flag.Bool("reset", false, "Drop the existing database before importing")
	flag.Parse()

	fmt.Printf("Migrating observations from %s to database %s\n", *analysisDir, *dbPath)

	repo := sqlite.NewObservationRepository(sqlite.New(*dbPath))
	if *reset {
		if err := repo.Reset(); err != nil {
			log.Fatalf("Failed to reset database: %v", err)
		}
	}
	if err := repo.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	total := storage.ImportStats{}
	for _, name := range []string{"hybridmodel_analysis.json", "singlemodel_analysis.json"} {
		path := filepath.Join(*analysisDir, name)
		stats, err := storage.ImportLog(storage.NewJSONLog(path), repo)
		if err != nil {
			log.Fatalf("Failed to import %s: %v", path, err)
		}
		fmt.Printf("   %s: %d imported, %d skipped\n", name, stats.Imported, stats.Skipped)
		total.Imported += stats.Imported
		total.Skipped += stats.Skipped
	}

	if total.Imported == 0 {
		fmt.Println("No observations found to migrate")
		return
	}

	fmt.Printf("✅ Successfully migrated %d observations to database\n", total.Imported)
	if total.Skipped > 0 {
		fmt.Printf("⚠️  Skipped %d entries (invalid timestamp)\n", total.Skipped)
	}

	// Show stats
	fmt.Printf("\n📊 Database Statistics:\n")
	for _, gender := range []string{"All", "Man", "Woman"} {
		count, err := repo.Count(model.ObservationFilter{Gender: gender})
		if err != nil {
			log.Fatalf("Failed to count observations: %v", err)
		}
		fmt.Printf("   %s: %d\n", gender, count)
	}
}
