package database

// SQL schemas for all ClickHouse tables

const (
	// GestureInterpretationsTableSQL creates the gesture_interpretations table.
	// timestamp is epoch milliseconds as reported by the interpreter;
	// inserted_at breaks ties so the newest insertion lists first.
	GestureInterpretationsTableSQL = `
		CREATE TABLE IF NOT EXISTS gesture_interpretations (
			id String,
			timestamp Int64,
			inserted_at DateTime64(9),
			gesture_data String,
			interpreted_text String,
			command String,
			confidence Int32
		) ENGINE = MergeTree()
		ORDER BY (timestamp, inserted_at)
		PARTITION BY toYYYYMM(fromUnixTimestamp64Milli(timestamp))
	`

	// GloveRegistryTableSQL creates the glove_registry table
	GloveRegistryTableSQL = `
		CREATE TABLE IF NOT EXISTS glove_registry (
			device_id String,
			registered_at DateTime64(3),
			last_seen DateTime64(3),
			is_active Bool
		) ENGINE = ReplacingMergeTree(last_seen)
		ORDER BY device_id
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		GestureInterpretationsTableSQL,
		GloveRegistryTableSQL,
	}
}
