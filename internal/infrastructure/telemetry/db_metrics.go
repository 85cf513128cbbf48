package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dbMetricsStartTimeKey = "telemetry:db_metrics_start"

// DBMetrics records database query durations, errors and connection pool
// state.
type DBMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
	connections   metric.Int64Gauge
}

// NewDBMetrics creates the database instruments on the given meter provider.
func NewDBMetrics(mp *MeterProvider, logger *zap.Logger) (*DBMetrics, error) {
	m := &DBMetrics{
		logger: logger,
	}

	m.meter = mp.Meter("database")
	if m.meter == nil {
		return nil, &MetricsError{Op: "create_meter", Err: ErrMeterNil}
	}

	var err error
	if m.queryDuration, err = m.meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DBDurationBuckets...),
	); err != nil {
		return nil, &MetricsError{Op: "create_query_duration_histogram", Err: err}
	}
	if m.queryErrors, err = m.meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Number of failed database queries"),
	); err != nil {
		return nil, &MetricsError{Op: "create_query_errors_counter", Err: err}
	}
	if m.connections, err = m.meter.Int64Gauge(
		"db.connections",
		metric.WithDescription("Database connection pool state"),
	); err != nil {
		return nil, &MetricsError{Op: "create_connections_gauge", Err: err}
	}

	return m, nil
}

// RecordQuery records a completed query with its duration and outcome.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		AttrDBOperation.String(operation),
		AttrDBTable.String(table),
	}
	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil && err != gorm.ErrRecordNotFound {
		m.queryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordPoolStats records a snapshot of the sql.DB connection pool.
func (m *DBMetrics) RecordPoolStats(ctx context.Context, stats sql.DBStats) {
	m.connections.Record(ctx, int64(stats.InUse), metric.WithAttributes(
		AttrDBState.String("in_use"),
	))
	m.connections.Record(ctx, int64(stats.Idle), metric.WithAttributes(
		AttrDBState.String("idle"),
	))
}

// DBMetricsPlugin is a GORM plugin that times every query through callbacks.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

// NewDBMetricsPlugin wraps DBMetrics as a GORM plugin.
func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize registers before and after callbacks for every query kind.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("db_metrics:before_create", p.before); err != nil {
		return err
	}
	if err := db.Callback().Create().After("gorm:create").Register("db_metrics:after_create", p.after); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("db_metrics:before_query", p.before); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("db_metrics:after_query", p.after); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("db_metrics:before_update", p.before); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("db_metrics:after_update", p.after); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("db_metrics:before_delete", p.before); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:delete").Register("db_metrics:after_delete", p.after); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("db_metrics:before_row", p.before); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("db_metrics:after_row", p.after); err != nil {
		return err
	}
	if err := db.Callback().Raw().Before("gorm:raw").Register("db_metrics:before_raw", p.before); err != nil {
		return err
	}
	if err := db.Callback().Raw().After("gorm:raw").Register("db_metrics:after_raw", p.after); err != nil {
		return err
	}
	return nil
}

func (p *DBMetricsPlugin) before(db *gorm.DB) {
	db.InstanceSet(dbMetricsStartTimeKey, time.Now())
}

func (p *DBMetricsPlugin) after(db *gorm.DB) {
	value, ok := db.InstanceGet(dbMetricsStartTimeKey)
	if !ok {
		return
	}
	start, ok := value.(time.Time)
	if !ok {
		return
	}

	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	p.metrics.RecordQuery(ctx,
		detectOperationType(db.Statement.SQL.String()),
		db.Statement.Table,
		time.Since(start),
		db.Error,
	)
}

// detectOperationType classifies a SQL statement by its leading keyword.
func detectOperationType(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return "unknown"
	}
	firstWord := trimmed
	if idx := strings.IndexAny(trimmed, " \t\n"); idx > 0 {
		firstWord = trimmed[:idx]
	}
	switch strings.ToUpper(firstWord) {
	case "SELECT":
		return "select"
	case "INSERT":
		return "insert"
	case "UPDATE":
		return "update"
	case "DELETE":
		return "delete"
	case "TRUNCATE":
		return "truncate"
	default:
		return "other"
	}
}

// RegisterDBMetrics installs the metrics plugin on a GORM instance.
func RegisterDBMetrics(db *gorm.DB, metrics *DBMetrics) error {
	return db.Use(NewDBMetricsPlugin(metrics))
}
