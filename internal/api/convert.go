package api

import (
	"fmt"
	"strings"

	"github.com/rickgao/market-data/internal/model"
)

// ValidationError reports an upstream record that cannot be converted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid upstream record: %s is missing", e.Field)
	}
	return fmt.Sprintf("invalid upstream record: %s %s", e.Field, e.Reason)
}

// ToModel converts a tradable-security row. Every field is required.
func (s TradableSecurity) ToModel() (model.Security, error) {
	switch {
	case s.Symbol == nil || *s.Symbol == "":
		return model.Security{}, &ValidationError{Field: "symbol"}
	case s.Name == nil:
		return model.Security{}, &ValidationError{Field: "name"}
	case s.Price == nil:
		return model.Security{}, &ValidationError{Field: "price"}
	case s.ExchangeShortName == nil || *s.ExchangeShortName == "":
		return model.Security{}, &ValidationError{Field: "exchangeShortName"}
	case s.Type == nil || *s.Type == "":
		return model.Security{}, &ValidationError{Field: "type"}
	}

	return model.Security{
		Symbol:    *s.Symbol,
		Name:      *s.Name,
		Price:     *s.Price,
		Exchange:  *s.ExchangeShortName,
		AssetType: model.AssetType(*s.Type),
	}, nil
}

// ToModel converts an FX row. The ticker is "FROM/TO"; bid and ask are required.
func (q FXQuote) ToModel() (model.ExchangeRate, error) {
	from, to, ok := strings.Cut(q.Ticker, "/")
	if !ok || from == "" || to == "" {
		return model.ExchangeRate{}, &ValidationError{Field: "ticker", Reason: fmt.Sprintf("%q is not a currency pair", q.Ticker)}
	}
	if !q.Ask.Valid {
		return model.ExchangeRate{}, &ValidationError{Field: "ask"}
	}
	if !q.Bid.Valid {
		return model.ExchangeRate{}, &ValidationError{Field: "bid"}
	}

	return model.ExchangeRate{
		From: from,
		To:   to,
		Ask:  q.Ask.Decimal,
		Bid:  q.Bid.Decimal,
	}, nil
}
