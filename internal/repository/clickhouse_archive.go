package repository

import (
	"context"
	"database/sql"
	"fmt"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"

	"github.com/bytedance/sonic"
)

// ClickHouseArchive appends every accepted snapshot to a MergeTree table for
// offline analysis. It is write-only.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

func NewClickHouseArchive(db *sql.DB, database, table string) drepo.SnapshotSink {
	return &ClickHouseArchive{db: db, table: database + "." + table}
}

// ArchiveSchema is the DDL for the archive table.
func ArchiveSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	seq UInt64,
	received_at DateTime64(3),
	ts Nullable(DateTime64(6)),
	symbol LowCardinality(String),
	source LowCardinality(String),
	regime LowCardinality(String),
	score Nullable(Float64),
	confidence Nullable(Float64),
	strength Nullable(Float64),
	price Nullable(Float64),
	market_closed UInt8,
	payload String
) ENGINE = MergeTree
ORDER BY (symbol, received_at)`, database, table),
	}
}

func (a *ClickHouseArchive) Name() string { return "clickhouse" }

func (a *ClickHouseArchive) Deliver(ctx context.Context, s models.Snapshot) error {
	payload, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var ts interface{}
	if t, ok := s.Timestamp.Get(); ok {
		ts = t
	}
	closed := uint8(0)
	if s.IsClosed() {
		closed = 1
	}

	q := fmt.Sprintf("INSERT INTO %s (seq, received_at, ts, symbol, source, regime, score, confidence, strength, price, market_closed, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err = a.db.ExecContext(ctx, q,
		s.Seq,
		s.ReceivedAt,
		ts,
		s.Symbol,
		string(s.Source),
		string(s.Regime),
		nullable(s.Score),
		nullable(s.Confidence),
		nullable(s.Strength),
		nullable(s.Price),
		closed,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (a *ClickHouseArchive) Close() error { return nil }

func nullable(o models.Optional[float64]) interface{} {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}
