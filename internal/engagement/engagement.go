// Package engagement computes normalized interaction ratios. Every function
// is total: non-numeric or missing inputs count as zero and a non-positive
// denominator yields exactly 0.
package engagement

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/finfluencer-cli/internal/model"
)

// Number coerces v to a finite float64. Strings are parsed, numeric kinds
// converted; anything else, including NaN and infinities, becomes 0.
func Number(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Profile returns likes divided by followers (or video count).
func Profile(likes, denom any) float64 {
	return ratio(Number(likes), Number(denom))
}

// Video returns (likes + shares + comments + saves) / views for a video row.
func Video(row map[string]string) float64 {
	interactions := Number(row[model.ColDiggCount]) +
		Number(row[model.ColShareCount]) +
		Number(row[model.ColCommentCount]) +
		Number(row[model.ColCollectCount])
	return ratio(interactions, Number(row[model.ColPlayCount]))
}

func ratio(num, denom float64) float64 {
	if denom <= 0 {
		return 0.0
	}
	r := num / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0.0
	}
	return r
}

// Format renders a ratio the way the prompt templates print it: shortest
// decimal form, always with a fractional part ("0.0", "2.5").
func Format(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
