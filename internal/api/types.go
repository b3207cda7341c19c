package api

import "github.com/shopspring/decimal"

// TradableSecurity is one row of GET /available-traded/list. Fields are
// pointers so that a missing or null value can be told apart from a zero.
type TradableSecurity struct {
	Symbol            *string  `json:"symbol"`
	Name              *string  `json:"name"`
	Price             *float64 `json:"price"`
	Exchange          *string  `json:"exchange"`
	ExchangeShortName *string  `json:"exchangeShortName"`
	Type              *string  `json:"type"`
}

// FXQuote is one row of GET /fx.
type FXQuote struct {
	Ticker  string              `json:"ticker"`
	Bid     decimal.NullDecimal `json:"bid"`
	Ask     decimal.NullDecimal `json:"ask"`
	Open    decimal.NullDecimal `json:"open"`
	Low     decimal.NullDecimal `json:"low"`
	High    decimal.NullDecimal `json:"high"`
	Changes *float64            `json:"changes"`
	Date    string              `json:"date"`
}
