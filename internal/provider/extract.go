// Package provider holds the data shapes shared by game-statistics sources.
package provider

import (
	"encoding/json"
	"math"
	"strconv"
)

// Reading is the result of one successful poll. Players is only meaningful
// when Present is true.
type Reading struct {
	Present bool
	Players int
}

// ExtractCount normalizes a mode population value from a counts response.
//
// Hypixel reports flat JSON numbers, but string-encoded numbers are accepted
// as well. Fractional or negative values are rejected.
//
// Returns ok=false if the value is not a usable player count.
func ExtractCount(val interface{}) (int, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil || n < 0 {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
