package handler

import (
	"net/http"
	"time"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/report"
	"crowdwatch/internal/repository"
)

const defaultPageSize = 50

// RecordStats is the payload of the stats endpoint.
type RecordStats struct {
	Summary  report.Summary  `json:"summary"`
	Sessions []model.Session `json:"sessions"`
}

// GetRecordsHandler returns a paginated, filtered list of analysis records.
// Query: page, limit, camera, session, risk, dateAfter, dateBefore.
func GetRecordsHandler(repo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)

		filter := recordFilters(q)
		total, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Failed to count records: %v", err)
			http.Error(w, "Failed to count records", http.StatusInternalServerError)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		records, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Failed to fetch records: %v", err)
			http.Error(w, "Failed to fetch records", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []model.Record{}
		}

		writeJSON(w, logger, http.StatusOK, dto.RecordsData{
			Records:     records,
			Length:      total,
			TotalPages:  (total + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ExportRecordsHandler streams every record matching the filters as a CSV attachment.
func ExportRecordsHandler(repo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := repo.GetAll(recordFilters(r.URL.Query()))
		if err != nil {
			logger.Error("Failed to fetch records for export: %v", err)
			http.Error(w, "Failed to fetch records", http.StatusInternalServerError)
			return
		}

		filename := report.ExportFilename(time.Now())
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := report.WriteCSV(w, records); err != nil {
			logger.Error("Failed to write CSV export: %v", err)
			return
		}
		logger.Info("Exported %d records to %s", len(records), filename)
	}
}

// RecordStatsHandler summarizes the filtered records and lists recorded sessions.
func RecordStatsHandler(repo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := repo.GetAll(recordFilters(r.URL.Query()))
		if err != nil {
			logger.Error("Failed to fetch records for stats: %v", err)
			http.Error(w, "Failed to fetch records", http.StatusInternalServerError)
			return
		}
		sessions, err := repo.GetSessions()
		if err != nil {
			logger.Error("Failed to fetch sessions: %v", err)
			http.Error(w, "Failed to fetch sessions", http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []model.Session{}
		}

		writeJSON(w, logger, http.StatusOK, RecordStats{
			Summary:  report.Summarize(records),
			Sessions: sessions,
		})
	}
}

// ClearRecordsHandler deletes all stored records. POST only.
func ClearRecordsHandler(repo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := repo.DeleteAll(); err != nil {
			logger.Error("Failed to clear records: %v", err)
			http.Error(w, "Failed to clear records", http.StatusInternalServerError)
			return
		}
		logger.Info("All analysis records cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}
