package models

// Coin is a record from the CoinGecko coin-listing endpoint. The upstream
// response carries additional fields which are ignored here.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Category is a record from the CoinGecko category-listing endpoint.
type Category struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// CurrencyQuote holds the price fields copied from a secondary-currency
// markets record during the merge.
type CurrencyQuote struct {
	CurrentPrice *float64
	MarketCap    *float64
}

// MarketRecord is a row from the CoinGecko markets endpoint in the base
// currency, augmented with quotes from secondary-currency responses merged
// by coin id. Optional upstream fields are pointers so that absence
// survives decoding; a coin with no secondary match simply has no entry in
// Quotes for that currency.
type MarketRecord struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`

	// Quotes maps a secondary currency code to the values merged from that
	// currency's response. Populated by the aggregation client, never by
	// JSON decoding.
	Quotes map[string]CurrencyQuote `json:"-"`
}

// FormattedCoin is the public market-data shape returned by the API.
// Secondary-currency and change fields are omitted when absent rather than
// serialized as zero or null.
type FormattedCoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPriceINR          *float64 `json:"current_price_inr"`
	CurrentPriceCAD          *float64 `json:"current_price_cad,omitempty"`
	MarketCapINR             *float64 `json:"market_cap_inr"`
	MarketCapCAD             *float64 `json:"market_cap_cad,omitempty"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h,omitempty"`
}

// FormatMarketRecord projects a merged market record into the public coin
// shape. It is a pure renaming projection: base-currency fields become the
// *_inr fields and the "cad" quote, when merged, becomes the *_cad fields.
func FormatMarketRecord(rec MarketRecord) FormattedCoin {
	formatted := FormattedCoin{
		ID:                       rec.ID,
		Symbol:                   rec.Symbol,
		Name:                     rec.Name,
		CurrentPriceINR:          rec.CurrentPrice,
		MarketCapINR:             rec.MarketCap,
		PriceChangePercentage24h: rec.PriceChangePercentage24h,
	}

	if quote, ok := rec.Quotes["cad"]; ok {
		formatted.CurrentPriceCAD = quote.CurrentPrice
		formatted.MarketCapCAD = quote.MarketCap
	}

	return formatted
}
