package model

// ExtractedField is one survey answer parsed from a completion. Any subset
// of the optional fields may be absent (nil).
type ExtractedField struct {
	Question    string
	Explanation *string
	Symbol      *string
	Category    *string
	Speculation *string
	Value       *string
	Response    *string
}

// StockMention is one stock recommendation parsed from a completion.
type StockMention struct {
	CustomID       string  `csv:"custom_id,omitempty"`
	StockName      *string `csv:"stock_name"`
	Ticker         *string `csv:"ticker"`
	MentionDate    *string `csv:"mention_date"`
	Influencer     *string `csv:"influencer"`
	Recommendation *string `csv:"recommendation"`
	Explanation    *string `csv:"explanation"`
	Confidence     *string `csv:"confidence"`
	Virality       *string `csv:"virality"`
}

// LabeledValue is one flattened survey cell, e.g. "Q1 - explanation".
type LabeledValue struct {
	Label string  `csv:"label"`
	Value *string `csv:"value"`
}
