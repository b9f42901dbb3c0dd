package client

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed. Callers see only the kind, never HTTP status codes.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindUpstream    Kind = "upstream"
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindParsing     Kind = "parsing"
)

// FetchError is the failure of one city's fetch. It always carries the city name.
type FetchError struct {
	City string
	Kind Kind
	Err  error
}

func newFetchError(city string, kind Kind, err error) *FetchError {
	return &FetchError{City: city, Kind: kind, Err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.City, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Reason is a short human-readable cause for display.
func (e *FetchError) Reason() string {
	switch e.Kind {
	case KindAuth:
		return "weather service rejected the API key"
	case KindNotFound:
		return "city not found"
	case KindRateLimited:
		return "weather service rate limit reached"
	case KindTimeout:
		return "weather service timed out"
	case KindNetwork:
		return "network failure"
	case KindParsing:
		return "unreadable weather service response"
	default:
		return "weather service unavailable"
	}
}

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout      ErrorCategory = "timeout"
	ErrorCategoryNetwork      ErrorCategory = "network"
	ErrorCategoryAuth         ErrorCategory = "auth"
	ErrorCategoryCityNotFound ErrorCategory = "city_not_found"
	ErrorCategoryRateLimited  ErrorCategory = "rate_limited"
	ErrorCategoryUpstream     ErrorCategory = "upstream"
	ErrorCategoryParsing      ErrorCategory = "parsing"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case KindAuth:
			return ErrorCategoryAuth
		case KindNotFound:
			return ErrorCategoryCityNotFound
		case KindRateLimited:
			return ErrorCategoryRateLimited
		case KindUpstream:
			return ErrorCategoryUpstream
		case KindNetwork:
			return ErrorCategoryNetwork
		case KindTimeout:
			return ErrorCategoryTimeout
		case KindParsing:
			return ErrorCategoryParsing
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	return ErrorCategoryUnknown
}

// KindOf returns the Kind of a FetchError in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
