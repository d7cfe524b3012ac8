package detector

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/upsell/internal/condition"
)

// toFloat64 coerces a numeric property to float64.
// Anything that is not a finite number reports false.
func toFloat64(v interface{}) (float64, bool) {
	return condition.Number(v)
}

// priceText keeps the literal form of a JSON number or numeric string.
func priceText(v interface{}) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case string:
		return strings.TrimSpace(n)
	}
	return ""
}

// toString returns a non-empty string rendering of scalar properties.
func toString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		return s.String(), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

// toBool reports whether v is a true-ish flag.
func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && ok
	}
	return false
}
