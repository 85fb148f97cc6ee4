package logging

import (
	"fmt"

	"go.uber.org/zap"
	"goa.design/goa/v3/middleware"
)

// goaAdapter feeds goa middleware key/value logs into zap
type goaAdapter struct {
	logger *zap.Logger
}

// NewGoaLogger adapts logger to the goa middleware logging interface
func NewGoaLogger(logger *zap.Logger) middleware.Logger {
	return &goaAdapter{logger: logger.Named("http")}
}

// Log writes one entry. Entries carrying "req" are requests, the others
// responses.
func (a *goaAdapter) Log(keyvals ...any) error {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING")
	}
	msg := "response"
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == "req" {
			msg = "request"
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	a.logger.Info(msg, fields...)
	return nil
}
