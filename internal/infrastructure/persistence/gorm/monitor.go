package gorm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const monitorStartKey = "query_monitor:start"

// QueryStats holds aggregated statement statistics
type QueryStats struct {
	TotalQueries     int64         `json:"total_queries"`
	SlowQueries      int64         `json:"slow_queries"`
	FailedQueries    int64         `json:"failed_queries"`
	AverageQueryTime time.Duration `json:"average_query_time"`
	TotalQueryTime   time.Duration `json:"total_query_time"`
	LastReset        time.Time     `json:"last_reset"`
}

// SlowQuery is one statement that exceeded the slow threshold
type SlowQuery struct {
	SQL       string        `json:"sql"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Error     string        `json:"error,omitempty"`
}

// QueryMonitor times every statement issued through gorm callbacks
type QueryMonitor struct {
	logger      *zap.Logger
	threshold   time.Duration
	mu          sync.RWMutex
	stats       QueryStats
	slowQueries []SlowQuery
	maxSlowLogs int
}

// NewQueryMonitor creates a monitor. A non-positive threshold means 100ms.
func NewQueryMonitor(threshold time.Duration, logger *zap.Logger) *QueryMonitor {
	if threshold <= 0 {
		threshold = 100 * time.Millisecond
	}
	return &QueryMonitor{
		logger:      logger.Named("query-monitor"),
		threshold:   threshold,
		stats:       QueryStats{LastReset: time.Now()},
		maxSlowLogs: 100,
	}
}

// Install registers before/after callbacks for every statement kind
func (qm *QueryMonitor) Install(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		kind          string
		before, after registrar
	}{
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, h := range hooks {
		if err := h.before.Register("monitor:before_"+h.kind, qm.before); err != nil {
			return fmt.Errorf("register %s callback: %w", h.kind, err)
		}
		if err := h.after.Register("monitor:after_"+h.kind, qm.after); err != nil {
			return fmt.Errorf("register %s callback: %w", h.kind, err)
		}
	}
	return nil
}

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func (qm *QueryMonitor) before(db *gorm.DB) {
	db.InstanceSet(monitorStartKey, time.Now())
}

func (qm *QueryMonitor) after(db *gorm.DB) {
	v, ok := db.InstanceGet(monitorStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	sql := ""
	if db.Statement != nil {
		sql = db.Statement.SQL.String()
	}
	err := db.Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}
	qm.record(sql, time.Since(start), err)
}

func (qm *QueryMonitor) record(sql string, duration time.Duration, err error) {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	qm.stats.TotalQueries++
	qm.stats.TotalQueryTime += duration
	qm.stats.AverageQueryTime = qm.stats.TotalQueryTime / time.Duration(qm.stats.TotalQueries)
	if err != nil {
		qm.stats.FailedQueries++
	}

	if duration <= qm.threshold {
		return
	}
	qm.stats.SlowQueries++
	slow := SlowQuery{SQL: sanitizeSQL(sql), Duration: duration, Timestamp: time.Now()}
	if err != nil {
		slow.Error = err.Error()
	}
	if len(qm.slowQueries) >= qm.maxSlowLogs {
		qm.slowQueries = qm.slowQueries[1:]
	}
	qm.slowQueries = append(qm.slowQueries, slow)

	qm.logger.Warn("Slow query detected",
		zap.Duration("duration", duration),
		zap.String("sql", slow.SQL),
		zap.Error(err),
	)
}

// Stats returns the current statistics
func (qm *QueryMonitor) Stats() QueryStats {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.stats
}

// SlowQueries returns up to limit of the most recent slow statements
func (qm *QueryMonitor) SlowQueries(limit int) []SlowQuery {
	qm.mu.RLock()
	defer qm.mu.RUnlock()

	if limit <= 0 || limit > len(qm.slowQueries) {
		limit = len(qm.slowQueries)
	}
	out := make([]SlowQuery, limit)
	copy(out, qm.slowQueries[len(qm.slowQueries)-limit:])
	return out
}

// Reset clears all statistics
func (qm *QueryMonitor) Reset() {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.stats = QueryStats{LastReset: time.Now()}
	qm.slowQueries = nil
}

// sanitizeSQL masks quoted literals and caps the length
func sanitizeSQL(sql string) string {
	sanitized := strings.ReplaceAll(sql, "'", "?")
	if len(sanitized) > 500 {
		sanitized = sanitized[:500] + "..."
	}
	return sanitized
}

// NewLogger builds a gorm logger that writes through zap. level is one of
// silent, error, warn or info.
func NewLogger(log *zap.Logger, level string, slowThreshold time.Duration) logger.Interface {
	return logger.New(
		&zapWriter{logger: log.Named("gorm")},
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  ParseLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// ParseLogLevel maps a config string onto a gorm log level
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "info":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}

// zapWriter implements gorm's logger.Writer
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "error"), strings.Contains(msg, "ERROR"):
		w.logger.Error("GORM error", zap.String("message", msg))
	default:
		w.logger.Debug("GORM log", zap.String("message", msg))
	}
}
