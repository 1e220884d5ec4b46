package apify

// TikTokActor is the public TikTok scraper actor.
const TikTokActor = "clockworks/tiktok-scraper"

// TikTokInput is the input of the TikTok scraper actor. Exactly one of
// Profiles or SearchQueries is normally set.
type TikTokInput struct {
	Profiles             []string `json:"profiles,omitempty"`
	SearchQueries        []string `json:"searchQueries,omitempty"`
	ResultsPerPage       int      `json:"resultsPerPage"`
	ShouldDownloadVideos bool     `json:"shouldDownloadVideos"`
	ShouldDownloadCovers bool     `json:"shouldDownloadCovers"`
}

// ProfileInput builds actor input that scrapes the latest videos of each
// profile handle.
func ProfileInput(profiles []string, resultsPerPage int) TikTokInput {
	return TikTokInput{Profiles: profiles, ResultsPerPage: resultsPerPage}
}

// KeywordInput builds actor input that scrapes search results for each term.
func KeywordInput(terms []string, resultsPerPage int) TikTokInput {
	return TikTokInput{SearchQueries: terms, ResultsPerPage: resultsPerPage}
}
