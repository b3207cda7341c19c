package cache

import (
	"sort"
	"sync"

	"github.com/rickgao/market-data/internal/model"
)

// SecurityCatalog holds security metadata keyed by symbol.
type SecurityCatalog struct {
	mu         sync.RWMutex
	securities map[string]model.Security
}

// NewSecurityCatalog creates an empty catalog.
func NewSecurityCatalog() *SecurityCatalog {
	return &SecurityCatalog{
		securities: make(map[string]model.Security),
	}
}

// Has reports whether symbol is in the catalog.
func (c *SecurityCatalog) Has(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.securities[symbol]
	return ok
}

// Upsert inserts or overwrites the security stored under symbol.
func (c *SecurityCatalog) Upsert(symbol string, s model.Security) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.securities[symbol] = s
}

// UpsertAll stores every security under its own symbol while holding the lock once.
func (c *SecurityCatalog) UpsertAll(securities []model.Security) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range securities {
		c.securities[s.Symbol] = s
	}
}

// Remove deletes symbol and reports whether it was present.
func (c *SecurityCatalog) Remove(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.securities[symbol]; !ok {
		return false
	}
	delete(c.securities, symbol)
	return true
}

// Get returns the security for symbol, or a *NotFoundError.
func (c *SecurityCatalog) Get(symbol string) (model.Security, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.securities[symbol]
	if !ok {
		return model.Security{}, &NotFoundError{Symbol: symbol}
	}
	return s, nil
}

// GetMany returns securities in the order requested. It fails on the first
// missing symbol and returns nothing in that case.
func (c *SecurityCatalog) GetMany(symbols []string) ([]model.Security, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]model.Security, 0, len(symbols))
	for _, symbol := range symbols {
		s, ok := c.securities[symbol]
		if !ok {
			return nil, &NotFoundError{Symbol: symbol}
		}
		result = append(result, s)
	}
	return result, nil
}

// Lookup returns the securities present for symbols, skipping unknown ones.
func (c *SecurityCatalog) Lookup(symbols []string) []model.Security {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]model.Security, 0, len(symbols))
	for _, symbol := range symbols {
		if s, ok := c.securities[symbol]; ok {
			result = append(result, s)
		}
	}
	return result
}

// GetAll returns a copy of every security sorted by symbol.
func (c *SecurityCatalog) GetAll() []model.Security {
	c.mu.RLock()
	result := make([]model.Security, 0, len(c.securities))
	for _, s := range c.securities {
		result = append(result, s)
	}
	c.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result
}

// Len returns the number of securities.
func (c *SecurityCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.securities)
}
