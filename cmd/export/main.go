package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/report"
	"crowdwatch/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/crowdwatch.db", "Database path")
	outDir := flag.String("out", ".", "Directory for the CSV file")
	camera := flag.String("camera", "", "Only export this camera")
	session := flag.String("session", "", "Only export this session")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Database not found: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	records, err := sqlite.NewRecordRepository(db).GetAll(&dto.RecordFilters{
		Camera:    *camera,
		SessionID: *session,
	})
	if err != nil {
		log.Fatalf("Failed to read records: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No records found to export")
		return
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	path := filepath.Join(*outDir, report.ExportFilename(time.Now()))
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	if err := report.WriteCSV(f, records); err != nil {
		f.Close()
		log.Fatalf("Failed to write CSV: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", path, err)
	}

	s := report.Summarize(records)
	fmt.Printf("✅ Exported %d records to %s\n", s.Records, path)
	fmt.Printf("   People: mean %.1f, max %d\n", s.MeanCount, s.MaxCount)
	fmt.Printf("   CDI: mean %.3f ± %.3f, median %.3f, p95 %.3f, max %.3f\n",
		s.MeanCDI, s.StdDevCDI, s.MedianCDI, s.P95CDI, s.MaxCDI)
	if !s.PeakTime.IsZero() {
		fmt.Printf("   Peak: %s on %s\n", s.PeakTime.Local().Format("2006-01-02 15:04:05"), s.PeakCamera)
	}
	fmt.Printf("   Risk: SAFE %d, CAUTION %d, WARNING %d, DANGER %d\n",
		s.Risk["SAFE"], s.Risk["CAUTION"], s.Risk["WARNING"], s.Risk["DANGER"])
}
