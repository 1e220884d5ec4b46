package parser

import (
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

const stockFilter = "stock name"

// Labels of the stock recommendation schema.
const (
	LabelStockName      = "Stock name"
	LabelTicker         = "Ticker"
	LabelMentionDate    = "Mention date"
	LabelInfluencer     = "Influencer"
	LabelRecommendation = "Recommendation"
	LabelExplanation    = "Explanation"
	LabelConfidence     = "Confidence"
	LabelVirality       = "Virality"
)

// ParseStockMentions returns one StockMention per block that mentions a
// stock name.
func ParseStockMentions(text string) []model.StockMention {
	var out []model.StockMention
	for _, b := range Blocks(text) {
		if !Mentions(b, stockFilter) {
			continue
		}
		out = append(out, model.StockMention{
			StockName:      Field(b, LabelStockName),
			Ticker:         Field(b, LabelTicker),
			MentionDate:    Field(b, LabelMentionDate),
			Influencer:     Field(b, LabelInfluencer),
			Recommendation: Field(b, LabelRecommendation),
			Explanation:    Field(b, LabelExplanation),
			Confidence:     Field(b, LabelConfidence),
			Virality:       Field(b, LabelVirality),
		})
	}
	return out
}

// ParseStockTable parses the textCol of every row and tags each mention
// with the row's idCol value.
func ParseStockTable(rows *table.Table, idCol, textCol string) []model.StockMention {
	var out []model.StockMention
	for _, r := range rows.Rows {
		mentions := ParseStockMentions(r[textCol])
		for i := range mentions {
			mentions[i].CustomID = r[idCol]
		}
		out = append(out, mentions...)
	}
	zap.L().Info("parser: stock mentions extracted",
		zap.Int("rows", rows.Len()),
		zap.Int("mentions", len(out)),
	)
	return out
}
