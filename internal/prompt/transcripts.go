package prompt

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finfluencer-cli/internal/engagement"
	"github.com/sells-group/finfluencer-cli/internal/extract"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

// videoFields are the placeholders a transcript template may use.
var videoFields = map[string]bool{
	"video_creation_date":             true,
	"video_text":                      true,
	"num_likes":                       true,
	"num_shares":                      true,
	"view_count":                      true,
	"num_saves":                       true,
	"num_comments":                    true,
	"total_engagement_over_num_views": true,
	"mentions":                        true,
	"hashtags":                        true,
	"is_sponsored":                    true,
	"is_advertisement":                true,
	"video_transcript":                true,
}

func validateTranscript(tmpl string) error {
	names, err := placeholders(tmpl)
	if err != nil {
		return err
	}
	for _, n := range names {
		if !videoFields[n] {
			return eris.Errorf("unknown transcript field %q", n)
		}
	}
	return nil
}

// AttachProfileIDs sets the profile_id column of every video from its
// author metadata.
func AttachProfileIDs(videos *table.Table) {
	videos.Set(model.ColProfileID, func(r table.Row) string {
		return extract.ProfileID(r[model.ColAuthorMeta])
	})
}

// ExtractVideoTranscripts concatenates the transcript blocks of every video
// whose profile_id is profileID, most recent first, using the built-in
// transcript template.
func ExtractVideoTranscripts(profileID string, videos *table.Table) string {
	return combineTranscripts(DefaultTranscriptTemplate, videos.Filter(func(r table.Row) bool {
		return r[model.ColProfileID] == profileID
	}).Rows)
}

// combineTranscripts sorts rows by creation time, descending, and renders
// each with tmpl. The sort is stable and rows is left untouched.
func combineTranscripts(tmpl string, rows []table.Row) string {
	sorted := table.New()
	sorted.Rows = append(sorted.Rows, rows...)
	sorted.SortStable(func(a, b table.Row) bool {
		return a[model.ColCreateTimeISO] > b[model.ColCreateTimeISO]
	})

	var b strings.Builder
	for _, r := range sorted.Rows {
		// Templates are validated against videoFields, so render cannot fail.
		block, _ := render(tmpl, videoValues(r))
		b.WriteString(block)
	}
	return b.String()
}

func videoValues(r table.Row) map[string]string {
	v := model.VideoFromRow(r)
	transcript := ""
	if v.Transcript != nil {
		transcript = *v.Transcript
	}
	return map[string]string{
		"video_creation_date":             v.CreateTimeISO,
		"video_text":                      cleanText(v.Text),
		"num_likes":                       v.Likes,
		"num_shares":                      v.Shares,
		"view_count":                      v.Views,
		"num_saves":                       v.Saves,
		"num_comments":                    v.Comments,
		"total_engagement_over_num_views": engagement.Format(engagement.Video(r)),
		"mentions":                        extract.Mentions(v.Mentions).Value,
		"hashtags":                        extract.Hashtags(v.Hashtags).Value,
		"is_sponsored":                    r[model.ColIsSponsored],
		"is_advertisement":                r[model.ColIsAd],
		"video_transcript":                transcript,
	}
}

// cleanText flattens a caption onto one line. Null captions read as empty.
func cleanText(s string) string {
	if s == "nan" || s == "NaN" {
		return ""
	}
	return strings.ReplaceAll(s, "\n", " ")
}
