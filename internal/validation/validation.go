package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCityEmpty is returned when the city name is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city name is required")

// ErrCityTooLong is returned when the city name exceeds the maximum rune length.
var ErrCityTooLong = errors.New("city name too long")

// ErrCityInvalidChars is returned when the city name contains anything other than letters and whitespace.
var ErrCityInvalidChars = errors.New("city name may only contain letters and spaces")

// IsValidationError reports whether err is one of the city name validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrCityEmpty) || errors.Is(err, ErrCityTooLong) || errors.Is(err, ErrCityInvalidChars)
}

// ValidateCityName trims the input and accepts only Unicode letters and whitespace.
// maxLen bounds the trimmed length in runes; 0 disables the bound.
// Returns the trimmed name. Case is preserved; list uniqueness is case-sensitive.
func ValidateCityName(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrCityEmpty
	}
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !unicode.IsLetter(c) && !unicode.IsSpace(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}
