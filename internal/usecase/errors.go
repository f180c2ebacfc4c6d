package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

// ErrNotConfigured is returned by a service handle whose credentials are missing.
var ErrNotConfigured = errors.New("service not configured")

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one payload.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Error())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func IsValidationError(err error) bool {
	var v ValidationErrors
	return errors.As(err, &v)
}

// PersistenceError wraps a storage backend failure on the lead store or the analytics sink.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsPersistenceError(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}

// ChannelError is the failure of a single notification channel for a single lead.
type ChannelError struct {
	Channel entity.Channel
	LeadID  string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s failed for lead %s: %v", e.Channel, e.LeadID, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// ConfigurationError names the settings an external service is missing.
type ConfigurationError struct {
	Service string
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured: missing %s", e.Service, strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}
