package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/market-data/internal/market"
)

func (s *Server) listSecurities(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Catalog.GetAll())
}

func (s *Server) getSecurity(c *gin.Context) {
	sec, err := s.deps.Catalog.Get(c.Param("symbol"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sec)
}

// trackQuotes registers a JSON array of symbols and returns their prices.
func (s *Server) trackQuotes(c *gin.Context) {
	var symbols []string
	if err := c.ShouldBindJSON(&symbols); err != nil {
		badRequest(c, "body must be a JSON array of symbols")
		return
	}
	c.JSON(http.StatusOK, s.deps.Quotes.Track(cleanSymbols(symbols)))
}

func (s *Server) exchangeRates(c *gin.Context) {
	currencies := listParam(c, "currencies")
	if len(currencies) == 0 {
		badRequest(c, "currencies query parameter is required")
		return
	}
	c.JSON(http.StatusOK, market.USDRates(s.deps.Rates, currencies))
}

// listParam accepts both ?k=a,b and ?k=a&k=b.
func listParam(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		out = append(out, strings.Split(v, ",")...)
	}
	return cleanSymbols(out)
}

// cleanSymbols trims, drops empties and de-duplicates, keeping order.
func cleanSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
