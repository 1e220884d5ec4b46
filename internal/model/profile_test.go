package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileFromRow(t *testing.T) {
	t.Parallel()

	p := ProfileFromRow(map[string]string{
		ColID:       "6789",
		ColProfile:  "stockguru",
		ColFans:     "1500",
		ColHeart:    "not-a-number",
		ColVideo:    "nan",
		ColVerified: "True",
		ColTTSeller: "",
	})

	assert.Equal(t, "6789", p.ID)
	assert.Equal(t, "stockguru", p.Profile)
	assert.Equal(t, 1500.0, p.Fans)
	assert.Equal(t, 0.0, p.Heart)
	assert.Equal(t, 0.0, p.Videos)
	assert.True(t, p.Verified)
	assert.False(t, p.TTSeller)
}

func TestIsValidID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"", "None", "nan", " None ", "null"} {
		assert.False(t, IsValidID(id), id)
	}
	assert.True(t, IsValidID("7012345678"))
}

func TestVideoFromRow(t *testing.T) {
	t.Parallel()

	v := VideoFromRow(map[string]string{
		ColID:             "1",
		ColPlayCount:      "100",
		ColExtractionTime: "2024-05-01T10:00:00Z",
	})
	assert.Equal(t, "1", v.ID)
	assert.Equal(t, "100", v.Views)
	assert.Nil(t, v.Transcript)
	assert.Equal(t, 2024, v.ExtractionTime.Year())

	v = VideoFromRow(map[string]string{ColTranscript: "hello"})
	if assert.NotNil(t, v.Transcript) {
		assert.Equal(t, "hello", *v.Transcript)
	}

	v = VideoFromRow(map[string]string{ColTranscript: NoSpeechTranscript})
	assert.Nil(t, v.Transcript)
}
