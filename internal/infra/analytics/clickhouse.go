package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

const clickhouseInsert = "INSERT INTO funnel_events"

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseStore appends funnel events to a MergeTree table. Each event is sent as
// its own single-row batch so Append only returns once the row is stored.
type ClickHouseStore struct {
	conn driver.Conn
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &ClickHouseStore{conn: conn}, nil
}

func (s *ClickHouseStore) Append(ctx context.Context, e *entity.FunnelEvent) error {
	batch, err := s.conn.PrepareBatch(ctx, clickhouseInsert)
	if err != nil {
		return fmt.Errorf("prepare funnel event batch: %w", err)
	}

	if err := batch.Append(clickhouseRow(e)...); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("append funnel event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send funnel event: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

// clickhouseRow follows the column order of the funnel_events table. Attribution
// columns are Nullable(String).
func clickhouseRow(e *entity.FunnelEvent) []any {
	return []any{
		e.ID,
		string(e.EventType),
		e.FormID,
		string(e.InsuranceType),
		int32(e.Step),
		int32(e.TotalSteps),
		e.TimeSpentSeconds,
		e.Attribution.Source,
		e.Attribution.Medium,
		e.Attribution.Campaign,
		e.Attribution.Term,
		e.Attribution.Content,
		e.RecordedAt,
	}
}
