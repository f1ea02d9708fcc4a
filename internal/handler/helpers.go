package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
)

// atoiDefault parses s as a positive int, returning def on failure.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate accepts YYYY-MM-DD; empty or invalid yields zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// recordFilters reads the shared record filters from the query string.
func recordFilters(q url.Values) *dto.RecordFilters {
	return &dto.RecordFilters{
		Camera:     q.Get("camera"),
		SessionID:  q.Get("session"),
		RiskLevel:  q.Get("risk"),
		DateAfter:  parseDate(q.Get("dateAfter")),
		DateBefore: parseDate(q.Get("dateBefore")),
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
