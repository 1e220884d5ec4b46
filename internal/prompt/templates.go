package prompt

import "github.com/sells-group/finfluencer-cli/internal/model"

// profileBlock describes a creator from their profile attributes and the
// transcripts of their recent videos.
const profileBlock = `Profile:
- Profile image: {profile_image}
- Username: {profile_name}
- Display name: {profile_nickname}
- Verified: {verified_status}
- Private account: {private_account}
- Region: {region}
- TikTok seller: {tiktok_seller}
- Bio: {profile_signature}
- Followers: {num_followers}
- Following: {num_following}
- Total likes: {num_likes}
- Videos posted: {num_videos}
- Videos liked: {num_digg}
- Total likes / followers: {total_likes_over_num_followers}
- Total likes / videos: {total_likes_over_num_videos}

Recent videos, most recent first:
{video_transcripts}`

var profileFields = []string{
	"num_digg",
	"num_followers",
	"num_following",
	"num_likes",
	"num_videos",
	"private_account",
	"profile_image",
	"profile_name",
	"profile_nickname",
	"profile_signature",
	"region",
	"tiktok_seller",
	"total_likes_over_num_followers",
	"total_likes_over_num_videos",
	"verified_status",
	"video_transcripts",
}

const identificationSystem = `You are a research assistant classifying social media creators.
A finfluencer is a creator whose content regularly gives financial or investment advice to their audience.
Read the profile below and answer the question you are asked using only this information.

` + profileBlock

const interviewSystem = `You are the social media creator described below. Stay in character and answer
questions the way this creator would, using the views they express in their videos.

` + profileBlock

const interviewUser = `Which stocks have you recommended to your audience?
Only consider companies from this reference list: {russell_4000_tickers}

Stocks already identified in your videos: {stock_mentions}

For each stock, answer in a separate paragraph using exactly this format:
**Stock name: <company name>**
**Ticker: <ticker>**
**Mention date: <date of the video>**
**Influencer: <your username>**
**Recommendation: <buy, sell or hold>**
**Explanation: <why you made the recommendation>**
**Confidence: <low, medium or high>**
**Virality: <low, medium or high>**`

func reflectionSystem(role string) string {
	return `You are an experienced ` + role + ` reviewing the content of the social media creator described below.
Answer the question you are asked from your professional perspective.

` + profileBlock
}

const geographicSystem = `You are a research assistant studying which places and organizations social media creators discuss.
Identify the entities and geographic locations referenced by the creator described below.

` + profileBlock

const pollingSystem = `You are a survey respondent. You are the social media creator described below.
Answer each poll question as this creator would, using the views they express in their videos.

` + profileBlock

// questionUser forwards a per-row question.
const questionUser = `{question_prompt}`

// DefaultTranscriptTemplate renders one video in a combined transcript.
const DefaultTranscriptTemplate = `
Video created {video_creation_date}
Caption: {video_text}
Likes: {num_likes} | Shares: {num_shares} | Views: {view_count} | Saves: {num_saves} | Comments: {num_comments}
Engagement (interactions / views): {total_engagement_over_num_views}
Mentions: {mentions}
Hashtags: {hashtags}
Sponsored: {is_sponsored} | Advertisement: {is_advertisement}
Transcript: {video_transcript}
`

func withFields(extra ...string) []string {
	return append(append([]string(nil), profileFields...), extra...)
}

// DefaultTemplates returns the built-in template for every interview type.
func DefaultTemplates() map[model.InterviewType]TemplateSpec {
	return map[model.InterviewType]TemplateSpec{
		model.InterviewFinfluencerIdentification: {
			System:   identificationSystem,
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
		model.InterviewStandard: {
			System:   interviewSystem,
			User:     interviewUser,
			Required: withFields("russell_4000_tickers", "stock_mentions"),
		},
		model.InterviewPortfolioManager: {
			System:   reflectionSystem("portfolio manager"),
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
		model.InterviewInvestmentAdvisor: {
			System:   reflectionSystem("investment advisor"),
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
		model.InterviewFinancialAnalyst: {
			System:   reflectionSystem("financial analyst"),
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
		model.InterviewEconomist: {
			System:   reflectionSystem("economist"),
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
		model.InterviewGeographicInclusion: {
			System:   geographicSystem,
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
		model.InterviewPolling: {
			System:   pollingSystem,
			User:     questionUser,
			Required: withFields("question_prompt"),
		},
	}
}
