package prompt

import (
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// Ticker is one row of the stock reference list.
type Ticker struct {
	Company string `csv:"COMNAM"`
	Symbol  string `csv:"TICKER"`
}

// LoadTickers reads the reference list CSV (COMNAM and TICKER columns).
func LoadTickers(path string) ([]Ticker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: read tickers %s", path)
	}
	var tickers []Ticker
	if err := csvutil.Unmarshal(data, &tickers); err != nil {
		return nil, eris.Wrapf(err, "prompt: decode tickers %s", path)
	}
	return tickers, nil
}

// TickerList renders tickers as "COMPANY (TICKER)" joined by ", ".
func TickerList(tickers []Ticker) string {
	parts := make([]string, len(tickers))
	for i, t := range tickers {
		parts[i] = t.Company + " (" + t.Symbol + ")"
	}
	return strings.Join(parts, ", ")
}
