package model

import "time"

// Column names used by the scraped video store. They match the scraper's
// dataset field names so raw items can be stored without renaming.
const (
	ColID             = "id"
	ColProfile        = "profile"
	ColProfileID      = "profile_id"
	ColSearchQuery    = "searchQuery"
	ColInput          = "input"
	ColCreateTimeISO  = "createTimeISO"
	ColText           = "text"
	ColAuthorMeta     = "authorMeta"
	ColMentions       = "detailedMentions"
	ColHashtags       = "hashtags"
	ColDiggCount      = "diggCount"
	ColShareCount     = "shareCount"
	ColCommentCount   = "commentCount"
	ColCollectCount   = "collectCount"
	ColPlayCount      = "playCount"
	ColIsSponsored    = "isSponsored"
	ColIsAd           = "isAd"
	ColWebVideoURL    = "webVideoUrl"
	ColVideoFilename  = "video_filename"
	ColTranscript     = "video_transcript"
	ColExtractionTime = "extractionTime"
)

// NoSpeechTranscript is stored for videos whose transcription succeeded
// but returned no text, so later runs do not transcribe them again.
const NoSpeechTranscript = "[no speech]"

// VideoRecord is one scraped video. Raw embedded structures (author
// metadata, mentions, hashtags) are kept in their serialized form.
type VideoRecord struct {
	ID             string
	ProfileID      string
	Profile        string
	CreateTimeISO  string
	Likes          string
	Shares         string
	Comments       string
	Saves          string
	Views          string
	AuthorMeta     string
	Mentions       string
	Hashtags       string
	Text           string
	Transcript     *string
	ExtractionTime time.Time
}

// VideoFromRow builds a VideoRecord from a store row. Missing columns leave
// fields empty; an empty or no-speech transcript is reported as nil.
func VideoFromRow(row map[string]string) VideoRecord {
	v := VideoRecord{
		ID:            row[ColID],
		ProfileID:     row[ColProfileID],
		Profile:       row[ColProfile],
		CreateTimeISO: row[ColCreateTimeISO],
		Likes:         row[ColDiggCount],
		Shares:        row[ColShareCount],
		Comments:      row[ColCommentCount],
		Saves:         row[ColCollectCount],
		Views:         row[ColPlayCount],
		AuthorMeta:    row[ColAuthorMeta],
		Mentions:      row[ColMentions],
		Hashtags:      row[ColHashtags],
		Text:          row[ColText],
	}
	if t := row[ColTranscript]; t != "" && t != NoSpeechTranscript {
		v.Transcript = &t
	}
	if ts, err := time.Parse(time.RFC3339Nano, row[ColExtractionTime]); err == nil {
		v.ExtractionTime = ts
	}
	return v
}
