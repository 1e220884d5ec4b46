package prompt

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/engagement"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

// Prompt table columns.
const (
	ColTranscripts  = "transcripts_combined"
	ColSystemPrompt = "system_prompt"
	ColUserPrompt   = "user_prompt"
	ColCustomID     = "custom_id"
	ColStockMention = "stock_mentions"
	ColQuestion     = "question_prompt"
)

// Builder renders prompts for profile rows.
type Builder struct {
	reg     *Registry
	tickers string
}

// NewBuilder creates a Builder. tickers is the rendered reference list
// interpolated into interview prompts (see TickerList).
func NewBuilder(reg *Registry, tickers string) *Builder {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Builder{reg: reg, tickers: tickers}
}

// SystemPrompt renders the system template of t for a profile row.
func (b *Builder) SystemPrompt(row table.Row, t model.InterviewType) (string, error) {
	spec, err := b.reg.Spec(t)
	if err != nil {
		return "", err
	}
	return render(spec.System, b.values(row))
}

// UserPrompt renders the user template of t for a profile row.
func (b *Builder) UserPrompt(row table.Row, t model.InterviewType) (string, error) {
	spec, err := b.reg.Spec(t)
	if err != nil {
		return "", err
	}
	return render(spec.User, b.values(row))
}

// ExtractVideoTranscripts is the package function of the same name using
// the builder's transcript template.
func (b *Builder) ExtractVideoTranscripts(profileID string, videos *table.Table) string {
	return combineTranscripts(b.reg.transcript, videos.Filter(func(r table.Row) bool {
		return r[model.ColProfileID] == profileID
	}).Rows)
}

// values maps template placeholders to row data. Optional per-row fields
// are only present when the row carries the column, so a template that
// needs one fails with ErrMissingField instead of rendering a blank.
func (b *Builder) values(row table.Row) map[string]string {
	v := map[string]string{
		"profile_image":                  row[model.ColAvatar],
		"profile_name":                   row[model.ColProfile],
		"profile_nickname":               row[model.ColNickName],
		"verified_status":                row[model.ColVerified],
		"private_account":                row[model.ColPrivateAccount],
		"region":                         row[model.ColRegion],
		"tiktok_seller":                  row[model.ColTTSeller],
		"profile_signature":              row[model.ColSignature],
		"num_followers":                  row[model.ColFans],
		"num_following":                  row[model.ColFollowing],
		"num_likes":                      row[model.ColHeart],
		"num_videos":                     row[model.ColVideo],
		"num_digg":                       row[model.ColDigg],
		"total_likes_over_num_followers": engagement.Format(engagement.Profile(row[model.ColHeart], row[model.ColFans])),
		"total_likes_over_num_videos":    engagement.Format(engagement.Profile(row[model.ColHeart], row[model.ColVideo])),
		"video_transcripts":              row[ColTranscripts],
		"russell_4000_tickers":           b.tickers,
	}
	for _, col := range []string{ColStockMention, ColQuestion} {
		if s, ok := row[col]; ok {
			v[col] = s
		}
	}
	return v
}

// BuildPromptTable renders one prompt row per profile: the profile columns
// plus transcripts_combined, system_prompt, user_prompt and custom_id (the
// profile id). videos gains a profile_id column. Profiles whose prompt
// cannot be rendered abort the build.
func (b *Builder) BuildPromptTable(profiles, videos *table.Table, t model.InterviewType) (*table.Table, error) {
	if _, err := b.reg.Spec(t); err != nil {
		return nil, err
	}

	AttachProfileIDs(videos)
	byProfile := make(map[string][]table.Row)
	for _, r := range videos.Rows {
		id := r[model.ColProfileID]
		byProfile[id] = append(byProfile[id], r)
	}

	out := table.New(profiles.Columns...)
	for _, c := range []string{ColTranscripts, ColSystemPrompt, ColUserPrompt, ColCustomID} {
		out.AddColumn(c)
	}

	for _, p := range profiles.Rows {
		id := p[model.ColID]
		row := make(table.Row, len(p)+4)
		for k, v := range p {
			row[k] = v
		}
		row[ColTranscripts] = combineTranscripts(b.reg.transcript, byProfile[id])

		sys, err := b.SystemPrompt(row, t)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: system prompt for profile %s", id)
		}
		user, err := b.UserPrompt(row, t)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: user prompt for profile %s", id)
		}
		row[ColSystemPrompt] = sys
		row[ColUserPrompt] = user
		row[ColCustomID] = id
		out.Append(row)
	}

	zap.L().Info("prompt: built prompt table",
		zap.String("interview_type", string(t)),
		zap.Int("profiles", out.Len()),
		zap.Int("videos", videos.Len()),
	)
	return out, nil
}
