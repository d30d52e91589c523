package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.App.Port < 1 || c.App.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "app.port",
			Message: "port must be between 1 and 65535",
		})
	}
	if c.App.MaxBodyBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "app.max_body_bytes",
			Message: "max_body_bytes must be positive",
		})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	if c.Model.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "model.path",
			Message: "model path is required",
		})
	}
	if c.Model.TokenizerPath == "" {
		errors = append(errors, ValidationError{
			Field:   "model.tokenizer_path",
			Message: "tokenizer path is required",
		})
	}
	if c.Model.MaxLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "model.max_length",
			Message: "max_length must be positive",
		})
	}

	if c.Chunking.SafetyMargin < 0 || c.ChunkBudget() < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunking.safety_margin",
			Message: "safety_margin must be non-negative and less than model.max_length",
		})
	}

	if c.Sync.Enabled {
		if c.Sync.Bucket == "" || c.Sync.Key == "" {
			errors = append(errors, ValidationError{
				Field:   "sync.bucket",
				Message: "bucket and key are required when sync is enabled",
			})
		}
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			errors = append(errors, ValidationError{
				Field:   "sync.schedule",
				Message: fmt.Sprintf("invalid cron schedule: %v", err),
			})
		}
		if c.Sync.Endpoint != "" {
			if u, err := url.Parse(c.Sync.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, ValidationError{
					Field:   "sync.endpoint",
					Message: "invalid endpoint URL",
				})
			}
		}
	}

	return errors
}
