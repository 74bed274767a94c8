package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeBlocked represents an explicit bot-block response
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeTimeout represents a fetch or content-wait timeout
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeListing represents a listing that could not be assembled
	ErrorTypeListing ErrorType = "listing"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	URL     string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.URL, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeNetwork:
		return true
	case ErrorTypeBlocked:
		// A blocked response means the protection has flagged us; retrying
		// the same fetch only burns the fingerprint further.
		return false
	default:
		return false
	}
}

// IsBlocked reports whether err is a bot-block error.
func IsBlocked(err error) bool {
	se, ok := err.(*ScrapeError)
	return ok && se.Type == ErrorTypeBlocked
}

// New creates a new ScrapeError
func New(errType ErrorType, url, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		URL:     url,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewBlocked creates a new bot-block error
func NewBlocked(url string, status int) *ScrapeError {
	message := fmt.Sprintf("blocked with status %d", status)
	return New(ErrorTypeBlocked, url, message, nil)
}

// NewTimeout creates a new timeout error
func NewTimeout(url, message string, err error) *ScrapeError {
	return New(ErrorTypeTimeout, url, message, err)
}

// NewListing creates a new listing failure
func NewListing(url, message string, err error) *ScrapeError {
	return New(ErrorTypeListing, url, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(url, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, url, message, err)
}

// NewCache creates a new cache error
func NewCache(url, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, url, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(url, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, url, message, err)
}

// NewValidation creates a new validation error
func NewValidation(url, message string) *ScrapeError {
	return New(ErrorTypeValidation, url, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}
