package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// GraphPaths are graph files or directories containing them.
	GraphPaths []string `validate:"required,min=1,dive,required"`

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`
	WorkerCount     int    `validate:"gte=1,lte=1024"`

	// FailOnError makes Run return an error when any node is left without an
	// artifact.
	FailOnError bool
	// SkipInvalid keeps nodes whose validation status is error out of the
	// evaluation.
	SkipInvalid bool
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	err := getValidator().Struct(cfg)
	if err == nil {
		return &cfg, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		messages = append(messages, e.Field()+": "+describe(e))
	}
	return nil, fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

// describe creates a human-readable message for one failed rule.
func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "needs at least " + e.Param() + " entries"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	default:
		return "is invalid"
	}
}
