package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit is the temperature unit used when rendering. Fahrenheit is the canonical stored unit.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ErrUnknownUnit is returned by ParseUnit for anything other than C/F.
var ErrUnknownUnit = errors.New("unknown temperature unit")

// ParseUnit accepts "C", "F", "celsius" or "fahrenheit" in any case.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// ToCelsius converts Fahrenheit to Celsius.
func ToCelsius(tempF float64) float64 {
	return (tempF - 32) * 5 / 9
}

// Convert returns tempF expressed in u, unrounded.
func Convert(tempF float64, u Unit) float64 {
	if u == Celsius {
		return ToCelsius(tempF)
	}
	return tempF
}

// Format renders tempF in u with one decimal place. Rounding happens only here.
func Format(tempF float64, u Unit) string {
	return strconv.FormatFloat(Convert(tempF, u), 'f', 1, 64)
}
