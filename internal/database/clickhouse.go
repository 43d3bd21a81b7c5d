package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"glove-backend/internal/history"
	"glove-backend/internal/models"
)

// ClickHouseDB is the durable history store and glove registry.
type ClickHouseDB struct {
	conn   driver.Conn
	logger *slog.Logger

	newID func() string
	now   func() time.Time
}

var _ history.Store = (*ClickHouseDB)(nil)

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, addr, database, username, password string, logger *slog.Logger) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("clickhouse_connected", "addr", addr, "database", database)

	db := &ClickHouseDB{conn: conn, logger: logger, newID: uuid.NewString, now: time.Now}

	// Initialize schema
	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	db.logger.Info("clickhouse_schema_ready")
	return nil
}

// interpretationRow is the column layout of gesture_interpretations.
type interpretationRow struct {
	ID              string
	Timestamp       int64
	InsertedAt      time.Time
	GestureData     string
	InterpretedText string
	Command         string
	Confidence      int32
}

func recordToRow(rec *models.InterpretationRecord, insertedAt time.Time) (interpretationRow, error) {
	gesture, err := json.Marshal(rec.GestureData)
	if err != nil {
		return interpretationRow{}, fmt.Errorf("encoding gesture data: %w", err)
	}
	return interpretationRow{
		ID:              rec.ID,
		Timestamp:       rec.Timestamp,
		InsertedAt:      insertedAt,
		GestureData:     string(gesture),
		InterpretedText: rec.InterpretedText,
		Command:         rec.Command,
		Confidence:      int32(rec.Confidence),
	}, nil
}

func rowToRecord(row interpretationRow) (*models.InterpretationRecord, error) {
	rec := &models.InterpretationRecord{
		ID:              row.ID,
		InterpretedText: row.InterpretedText,
		Command:         row.Command,
		Confidence:      int(row.Confidence),
		Timestamp:       row.Timestamp,
	}
	if row.GestureData != "" {
		if err := json.Unmarshal([]byte(row.GestureData), &rec.GestureData); err != nil {
			return nil, fmt.Errorf("decoding gesture data for %s: %w", row.ID, err)
		}
	}
	return rec, nil
}

// Save inserts rec under a fresh id. A zero timestamp is set to now.
func (db *ClickHouseDB) Save(ctx context.Context, rec *models.InterpretationRecord) (*models.InterpretationRecord, error) {
	stored := *rec
	stored.ID = db.newID()
	now := db.now()
	if stored.Timestamp == 0 {
		stored.Timestamp = now.UnixMilli()
	}

	row, err := recordToRow(&stored, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", history.ErrPersistence, err)
	}

	query := `
		INSERT INTO gesture_interpretations (id, timestamp, inserted_at, gesture_data, interpreted_text, command, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err = db.conn.Exec(ctx, query,
		row.ID,
		row.Timestamp,
		row.InsertedAt,
		row.GestureData,
		row.InterpretedText,
		row.Command,
		row.Confidence,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert interpretation: %v", history.ErrPersistence, err)
	}

	return &stored, nil
}

// List returns up to limit records, newest first.
func (db *ClickHouseDB) List(ctx context.Context, limit int) ([]*models.InterpretationRecord, error) {
	if limit <= 0 {
		limit = history.DefaultListLimit
	}

	query := `
		SELECT id, timestamp, inserted_at, gesture_data, interpreted_text, command, confidence
		FROM gesture_interpretations
		ORDER BY timestamp DESC, inserted_at DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query interpretations: %v", history.ErrPersistence, err)
	}
	defer rows.Close()

	records := make([]*models.InterpretationRecord, 0, limit)
	for rows.Next() {
		var row interpretationRow
		if err := rows.Scan(&row.ID, &row.Timestamp, &row.InsertedAt, &row.GestureData,
			&row.InterpretedText, &row.Command, &row.Confidence); err != nil {
			return nil, fmt.Errorf("%w: failed to scan interpretation: %v", history.ErrPersistence, err)
		}
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", history.ErrPersistence, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", history.ErrPersistence, err)
	}
	return records, nil
}

// Get looks up one record by id.
func (db *ClickHouseDB) Get(ctx context.Context, id string) (*models.InterpretationRecord, bool, error) {
	query := `
		SELECT id, timestamp, inserted_at, gesture_data, interpreted_text, command, confidence
		FROM gesture_interpretations
		WHERE id = ?
		LIMIT 1
	`

	var row interpretationRow
	err := db.conn.QueryRow(ctx, query, id).Scan(&row.ID, &row.Timestamp, &row.InsertedAt,
		&row.GestureData, &row.InterpretedText, &row.Command, &row.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to fetch interpretation: %v", history.ErrPersistence, err)
	}

	rec, err := rowToRecord(row)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", history.ErrPersistence, err)
	}
	return rec, true, nil
}

// UpsertGlove inserts or updates a glove in the registry
func (db *ClickHouseDB) UpsertGlove(ctx context.Context, glove *models.Glove) error {
	query := `
		INSERT INTO glove_registry (device_id, registered_at, last_seen, is_active)
		VALUES (?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		glove.DeviceID,
		glove.RegisteredAt,
		glove.LastSeen,
		glove.IsActive,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert glove: %w", err)
	}

	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		db.logger.Info("clickhouse_closed")
	}
	return nil
}
