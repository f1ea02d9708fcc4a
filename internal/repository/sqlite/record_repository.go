package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/model"
)

const insertRecordSQL = `
	INSERT INTO records (session_id, camera, timestamp, person_count, cdi, risk_level,
		safest_cell, direction, grid_rows, grid_cols, occupancy)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRecordSQL = `
	SELECT id, session_id, camera, timestamp, person_count, cdi, risk_level,
		safest_cell, direction, grid_rows, grid_cols, occupancy
	FROM records
`

// RecordRepository implements repository.RecordRepository for SQLite.
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new SQLite record repository.
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert adds a new record to the database.
func (r *RecordRepository) Insert(rec *model.Record) (int64, error) {
	args, err := recordArgs(rec)
	if err != nil {
		return 0, err
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertRecordSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple records in a single transaction.
func (r *RecordRepository) InsertBatch(records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertRecordSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		args, err := recordArgs(&records[i])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return tx.Commit()
}

// GetAll retrieves records based on filter criteria, newest first.
func (r *RecordRepository) GetAll(filter *dto.RecordFilters) ([]model.Record, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := selectRecordSQL + where + " ORDER BY timestamp DESC, id DESC"

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
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			rec       model.Record
			safest    sql.NullInt64
			occupancy string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Camera, &rec.Timestamp, &rec.PersonCount,
			&rec.CDI, &rec.RiskLevel, &safest, &rec.Direction, &rec.GridRows, &rec.GridCols, &occupancy); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if safest.Valid {
			cell := int(safest.Int64)
			rec.SafestCell = &cell
		}
		if err := json.Unmarshal([]byte(occupancy), &rec.Occupancy); err != nil {
			return nil, fmt.Errorf("failed to decode occupancy of record %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetTotalCount returns the total count of records matching the filter.
func (r *RecordRepository) GetTotalCount(filter *dto.RecordFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow("SELECT COUNT(*) FROM records"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	return count, nil
}

// GetSessions returns one summary per recorded session, most recent first.
func (r *RecordRepository) GetSessions() ([]model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT session_id, camera, MIN(timestamp), MAX(timestamp), COUNT(*), MAX(cdi)
		FROM records
		GROUP BY session_id, camera
		ORDER BY MAX(timestamp) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var (
			s            model.Session
			started, end string
		)
		if err := rows.Scan(&s.ID, &s.Camera, &started, &end, &s.Records, &s.MaxCDI); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		// Aggregates lose the DATETIME column type, so they come back as text.
		if s.Started, err = parseTimestamp(started); err != nil {
			return nil, err
		}
		if s.Ended, err = parseTimestamp(end); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// DeleteAll removes all records.
func (r *RecordRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	return nil
}

// recordArgs returns the insert parameters of a record.
func recordArgs(rec *model.Record) ([]interface{}, error) {
	occupancy := rec.Occupancy
	if occupancy == nil {
		occupancy = []int{}
	}
	encoded, err := json.Marshal(occupancy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode occupancy: %w", err)
	}

	var safest sql.NullInt64
	if rec.SafestCell != nil {
		safest = sql.NullInt64{Int64: int64(*rec.SafestCell), Valid: true}
	}

	return []interface{}{
		rec.SessionID, rec.Camera, rec.Timestamp.UTC(), rec.PersonCount, rec.CDI, rec.RiskLevel,
		safest, rec.Direction, rec.GridRows, rec.GridCols, string(encoded),
	}, nil
}

// whereClause builds the WHERE part shared by GetAll and GetTotalCount.
func whereClause(filter *dto.RecordFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conds []string
	var args []interface{}

	if filter.Camera != "" {
		conds = append(conds, "camera = ?")
		args = append(args, filter.Camera)
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.RiskLevel != "" {
		conds = append(conds, "risk_level = ?")
		args = append(args, strings.ToUpper(filter.RiskLevel))
	}
	if !filter.DateAfter.IsZero() {
		conds = append(conds, "DATE(timestamp) >= DATE(?)")
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}
	if !filter.DateBefore.IsZero() {
		conds = append(conds, "DATE(timestamp) <= DATE(?)")
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// timestampFormats are the layouts go-sqlite3 writes time.Time values with.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
