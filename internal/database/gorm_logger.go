package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

type gormLogWriter struct {
	logger zerolog.Logger
}

func (w gormLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewGormLogger sends slow queries and SQL errors to zerolog. Missing rows are
// a normal answer for ban and case lookups and are not logged.
func NewGormLogger(logger zerolog.Logger) gormlogger.Interface {
	writer := gormLogWriter{logger: logger.With().Str("component", "gorm").Logger()}
	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
