package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database query tracing.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL includes bound query variables in spans. Sync payloads
	// carry customer data, so this stays off outside development.
	LogFullSQL       bool
	SlowQueryThresh  time.Duration
	DBSystem         string
	WithoutVariables bool
}

// DefaultDBTracingConfig returns the secure defaults.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin instruments GORM with otelgorm spans plus slow-query
// and error annotations. Repository calls made during webhook handling
// and bulk sync then show up under the request span.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin; call RegisterOtelGorm to attach it.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// tracedOperations are the GORM hooks the plugin instruments. Row and
// Raw cover the cleanup aggregation queries.
var tracedOperations = []string{"create", "query", "update", "delete", "row", "raw"}

// registerHook attaches fn around the named GORM operation. The callback
// API exposes one processor type per operation, hence the switch.
func registerHook(db *gorm.DB, op, name string, before bool, fn func(*gorm.DB)) error {
	var err error
	switch op {
	case "create":
		if before {
			err = db.Callback().Create().Before("gorm:create").Register(name, fn)
		} else {
			err = db.Callback().Create().After("gorm:create").Register(name, fn)
		}
	case "query":
		if before {
			err = db.Callback().Query().Before("gorm:query").Register(name, fn)
		} else {
			err = db.Callback().Query().After("gorm:query").Register(name, fn)
		}
	case "update":
		if before {
			err = db.Callback().Update().Before("gorm:update").Register(name, fn)
		} else {
			err = db.Callback().Update().After("gorm:update").Register(name, fn)
		}
	case "delete":
		if before {
			err = db.Callback().Delete().Before("gorm:delete").Register(name, fn)
		} else {
			err = db.Callback().Delete().After("gorm:delete").Register(name, fn)
		}
	case "row":
		if before {
			err = db.Callback().Row().Before("gorm:row").Register(name, fn)
		} else {
			err = db.Callback().Row().After("gorm:row").Register(name, fn)
		}
	case "raw":
		if before {
			err = db.Callback().Raw().Before("gorm:raw").Register(name, fn)
		} else {
			err = db.Callback().Raw().After("gorm:raw").Register(name, fn)
		}
	}
	return err
}

// RegisterOtelGorm attaches otelgorm and the timing callbacks to db.
// A disabled config is a no-op so call sites stay unconditional.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	for _, op := range tracedOperations {
		if err := registerHook(db, op, "storesync_tracing:before_"+op, true, p.markStart); err != nil {
			return err
		}
		if err := registerHook(db, op, "storesync_tracing:after_"+op, false, p.annotateSpan); err != nil {
			return err
		}
	}

	p.logger.Info("database tracing enabled",
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
	)
	return nil
}

// markStart stamps the statement context so annotateSpan can compute the
// elapsed time without relying on otelgorm internals.
func (p *DBTracingPlugin) markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan runs after each operation, enriching the active span with
// row counts, table name, errors and a slow-query event.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if rows := db.Statement.RowsAffected; rows >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	}
	if table := db.Statement.Table; table != "" {
		span.SetAttributes(attribute.String("db.sql.table", table))
	}

	// Not-found is an expected outcome for upsert existence checks
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		p.flagSlowQuery(span, time.Since(startTime))
	}
}

func (p *DBTracingPlugin) flagSlowQuery(span trace.Span, elapsed time.Duration) {
	if elapsed <= p.config.SlowQueryThresh {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	span.AddEvent("slow_query_warning", trace.WithAttributes(
		attribute.Int64("duration_ms", elapsed.Milliseconds()),
		attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
	))
}

type contextKey string

const queryStartTimeKey contextKey = "storesync_query_start_time"
