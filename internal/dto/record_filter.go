// RecordFilters describe user-provided filters to narrow the record list.
package dto

import "time"

type RecordFilters struct {
	Camera     string
	SessionID  string
	RiskLevel  string
	DateAfter  time.Time // inclusive, compared by day
	DateBefore time.Time // inclusive, compared by day
	Limit      int
	Offset     int
}
