package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerAdapter adapts the global zap logger to GORM's logger interface
type GormLoggerAdapter struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a GORM logger that writes through zap.
// Queries slower than slowThreshold are logged as warnings.
func NewGormLogger(level gormlogger.LogLevel, slowThreshold time.Duration) gormlogger.Interface {
	return &GormLoggerAdapter{level: level, slowThreshold: slowThreshold}
}

// LogMode returns a copy of the adapter with the given level
func (g *GormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLoggerAdapter) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		InfoCtx(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *GormLoggerAdapter) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		WarnCtx(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *GormLoggerAdapter) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		ErrorCtx(ctx, fmt.Errorf(msg, args...))
	}
}

// Trace logs a finished SQL statement. Record-not-found is not treated as an error.
func (g *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		FromContext(ctx).Error("SQL error",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows))
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		FromContext(ctx).Warn("Slow SQL",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", g.slowThreshold),
			zap.String("sql", sql),
			zap.Int64("rows", rows))
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		FromContext(ctx).Debug("SQL",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows))
	}
}
