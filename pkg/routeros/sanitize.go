package routeros

import (
	"strconv"
	"strings"
)

// zeroMAC is the placeholder for absent hardware addresses.
const zeroMAC = "00:00:00:00:00:00"

// boolFields are the row keys that downstream collectors read as booleans.
var boolFields = map[string]struct{}{
	"running":  {},
	"disabled": {},
	"dynamic":  {},
	"invalid":  {},
	"complete": {},
	"blocked":  {},
	"enabled":  {},
	"active":   {},
	"radius":   {},
}

// sanitizeRow coerces a raw reply row so that every boolean-like field is
// strictly "true" or "false", every counter is a parseable non-negative
// number, and MAC/name fields are never empty. The API returns everything
// as strings and omits absent fields, and every downstream collector
// assumes typed, present values.
func sanitizeRow(row Row) Row {
	if row == nil {
		return Row{}
	}

	out := make(Row, len(row))

	for key, value := range row {
		switch {
		case isBoolField(key):
			if value == "true" || value == "yes" {
				out[key] = "true"
			} else {
				out[key] = "false"
			}
		case isCounterField(key):
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				out[key] = "0"
			} else {
				out[key] = value
			}
		case key == "mac-address" && value == "":
			out[key] = zeroMAC
		case key == "name" && value == "":
			out[key] = "unknown"
		default:
			out[key] = value
		}
	}

	return out
}

func isBoolField(key string) bool {
	_, ok := boolFields[key]
	return ok
}

func isCounterField(key string) bool {
	return strings.Contains(key, "byte") ||
		strings.Contains(key, "packets") ||
		strings.Contains(key, "drops") ||
		strings.Contains(key, "errors") ||
		key == "link-downs"
}

// Bool reads a boolean field; absent fields read false.
func (r Row) Bool(key string) bool {
	return r[key] == "true"
}

// Int reads a numeric field; absent or malformed values read 0, and
// negative counters are clamped to 0.
func (r Row) Int(key string) int64 {
	v, err := strconv.ParseInt(r[key], 10, 64)
	if err != nil || v < 0 {
		return 0
	}

	return v
}

// IntOr reads a numeric field with an explicit default.
func (r Row) IntOr(key string, def int64) int64 {
	v, err := strconv.ParseInt(r[key], 10, 64)
	if err != nil {
		return def
	}

	return v
}

// Str reads a string field; absent fields read "".
func (r Row) Str(key string) string {
	return r[key]
}

// StrOr reads a string field with an explicit default for absent or empty
// values.
func (r Row) StrOr(key, def string) string {
	if v := r[key]; v != "" {
		return v
	}

	return def
}

// MAC reads a hardware-address field, defaulting to the zero placeholder.
func (r Row) MAC(key string) string {
	return r.StrOr(key, zeroMAC)
}
