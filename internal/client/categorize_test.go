package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestCategorizeError verifies that CategorizeError maps fetch errors to the ErrorCategory
// used for metric labels, including wrapped errors and bare context errors.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"auth", newFetchError("Tokyo", KindAuth, errors.New("x")), ErrorCategoryAuth},
		{"wrapped not found", fmt.Errorf("outer: %w", newFetchError("Tokyo", KindNotFound, errors.New("x"))), ErrorCategoryCityNotFound},
		{"rate limited", newFetchError("Tokyo", KindRateLimited, errors.New("x")), ErrorCategoryRateLimited},
		{"upstream", newFetchError("Tokyo", KindUpstream, errors.New("x")), ErrorCategoryUpstream},
		{"network", newFetchError("Tokyo", KindNetwork, errors.New("x")), ErrorCategoryNetwork},
		{"parsing", newFetchError("Tokyo", KindParsing, errors.New("x")), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchError_CarriesCity(t *testing.T) {
	inner := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", newFetchError("New York", KindNetwork, inner))

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("errors.As(%v) = false, want FetchError", err)
	}
	if fe.City != "New York" {
		t.Errorf("City = %q, want %q", fe.City, "New York")
	}
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(err, inner) = false, want Unwrap to expose cause")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("KindOf() = %q, want %q", KindOf(err), KindNetwork)
	}
	if fe.Reason() != "network failure" {
		t.Errorf("Reason() = %q", fe.Reason())
	}
}
