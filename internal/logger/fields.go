package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/utils"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldStore    = "store"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, skipping blank keys and values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the AI provider and model of a component.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// QueryFields summarizes a job query for logs without dumping the full description.
func QueryFields(q domain.JobQuery, maxLen int) []zap.Field {
	fields := []zap.Field{
		zap.String("description_preview", utils.TruncateForLog(q.Description, maxLen)),
		zap.Int("skills", len(q.Skills)),
		zap.Bool("time_window", q.Window != nil),
		zap.Bool("location", q.Location != nil),
	}
	if q.Location != nil {
		fields = append(fields, StringFields(StringField{Key: "postcode", Value: q.Location.Postcode})...)
	}
	return fields
}
