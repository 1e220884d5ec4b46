package engagement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"int string", "42", 42},
		{"float string", " 1.5 ", 1.5},
		{"garbage", "abc", 0},
		{"empty", "", 0},
		{"nan string", "nan", 0},
		{"inf string", "inf", 0},
		{"int", 7, 7},
		{"int64", int64(8), 8},
		{"float NaN", math.NaN(), 0},
		{"nil", nil, 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.in))
		})
	}
}

func TestProfile(t *testing.T) {
	assert.Equal(t, 2.0, Profile("200", "100"))
	assert.Equal(t, 0.0, Profile("200", "0"))
	assert.Equal(t, 0.0, Profile("200", "-5"))
	assert.Equal(t, 0.0, Profile("200", "n/a"))
	assert.Equal(t, 0.0, Profile("n/a", "100"))
	assert.Equal(t, 0.0, Profile(nil, nil))
}

func TestVideo(t *testing.T) {
	row := map[string]string{
		"diggCount":    "10",
		"shareCount":   "5",
		"commentCount": "3",
		"collectCount": "2",
		"playCount":    "100",
	}
	assert.Equal(t, 0.2, Video(row))

	row["playCount"] = "0"
	assert.Equal(t, 0.0, Video(row))

	row["playCount"] = ""
	assert.Equal(t, 0.0, Video(row))

	assert.Equal(t, 0.0, Video(map[string]string{}))
	assert.Equal(t, 0.5, Video(map[string]string{"diggCount": "x", "shareCount": "1", "playCount": "2"}))
}

func TestNeverNaNOrInf(t *testing.T) {
	inputs := []any{"1e308", "-1e308", "0", "nan", "", 1e308, -1.0, "5"}
	for _, a := range inputs {
		for _, b := range inputs {
			got := Profile(a, b)
			assert.False(t, math.IsNaN(got))
			assert.False(t, math.IsInf(got, 0))
		}
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.0", Format(0))
	assert.Equal(t, "2.0", Format(2))
	assert.Equal(t, "0.25", Format(0.25))
}
