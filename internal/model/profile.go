package model

import (
	"math"
	"strconv"
	"strings"
)

// Profile store column names. Most come from the flattened author metadata.
const (
	ColNickName       = "nickName"
	ColVerified       = "verified"
	ColPrivateAccount = "privateAccount"
	ColRegion         = "region"
	ColTTSeller       = "ttSeller"
	ColSignature      = "signature"
	ColAvatar         = "avatar"
	ColFans           = "fans"
	ColFollowing      = "following"
	ColHeart          = "heart"
	ColVideo          = "video"
	ColDigg           = "digg"
)

// ProfileRecord is one tracked account, derived from the author metadata
// embedded in its videos.
type ProfileRecord struct {
	ID        string
	Profile   string
	NickName  string
	Fans      float64
	Following float64
	Heart     float64
	Videos    float64
	Verified  bool
	Region    string
	TTSeller  bool
	Avatar    string
}

// ProfileFromRow builds a ProfileRecord from a profile store row.
func ProfileFromRow(row map[string]string) ProfileRecord {
	return ProfileRecord{
		ID:        row[ColID],
		Profile:   row[ColProfile],
		NickName:  row[ColNickName],
		Fans:      parseCount(row[ColFans]),
		Following: parseCount(row[ColFollowing]),
		Heart:     parseCount(row[ColHeart]),
		Videos:    parseCount(row[ColVideo]),
		Verified:  parseFlag(row[ColVerified]),
		Region:    row[ColRegion],
		TTSeller:  parseFlag(row[ColTTSeller]),
		Avatar:    row[ColAvatar],
	}
}

// IsValidID reports whether a profile id survived serialization. Null-like
// spellings left behind by earlier exports are rejected.
func IsValidID(id string) bool {
	switch strings.TrimSpace(id) {
	case "", "None", "nan", "NaN", "<nil>", "null":
		return false
	}
	return true
}

func parseCount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseFlag(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
