package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/x402-media-gateway/internal/http/middleware"
)

// TokenInfo describes the payment asset.
type TokenInfo struct {
	Address  string `json:"address" example:"0x587Cd533F418825521f3A1daa7CCd1E7339A1B07"`
	Symbol   string `json:"symbol" example:"STARKBOT"`
	Decimals int    `json:"decimals" example:"18"`
}

// EndpointInfo is one paid (route, quality) tier.
type EndpointInfo struct {
	Path        string `json:"path" example:"/fox"`
	Quality     string `json:"quality" example:"low"`
	Default     bool   `json:"default"`
	Description string `json:"description" example:"Generate a fox image"`
	Cost        string `json:"cost" example:"10 STARKBOT"`
	Amount      string `json:"amount" example:"10000000000000000000"`
	MediaType   string `json:"type" example:"image"`
	// Artifacts and StoredSize describe unexpired cached artifacts for the
	// tier's resource path.
	Artifacts  int64  `json:"artifacts"`
	StoredSize string `json:"stored_size" example:"1.2 MB"`
}

// InfoResponse is the GET / body.
type InfoResponse struct {
	Service   string         `json:"service" example:"x402-media-gateway"`
	Version   string         `json:"version" example:"0.1.0"`
	Network   string         `json:"network" example:"base"`
	Token     TokenInfo      `json:"token"`
	Endpoints []EndpointInfo `json:"endpoints"`
}

// Info godoc
// @ID          info
// @Summary     Service information
// @Description Lists every paid route and quality tier with its price, the payment token and
// @Description network, and how many cached artifacts each route currently serves.
// @Tags        Info
// @Produce     json
// @Success     200  {object}  handlers.InfoResponse
// @Router      / [get]
func (h *Handlers) Info(c *gin.Context) {
	type usage struct {
		count int64
		bytes int64
	}
	byPath := map[string]usage{}
	if h.stats != nil {
		stats, err := h.stats.MediaStats(c.Request.Context())
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("artifact stats unavailable")
		}
		for _, s := range stats {
			byPath[s.EndpointPath] = usage{count: s.Count, bytes: s.Bytes}
		}
	}

	resp := InfoResponse{
		Service: h.info.Name,
		Version: h.info.Version,
		Network: h.info.Network,
		Token: TokenInfo{
			Address:  h.info.Token.Address,
			Symbol:   h.info.Token.Symbol,
			Decimals: h.info.Token.Decimals,
		},
		Endpoints: []EndpointInfo{},
	}
	for _, route := range h.registry.Routes() {
		for _, def := range h.registry.Qualities(route) {
			u := byPath[def.ResourcePath()]
			resp.Endpoints = append(resp.Endpoints, EndpointInfo{
				Path:        def.Route,
				Quality:     def.Quality,
				Default:     def.Default,
				Description: def.Description,
				Cost:        def.Price + " " + h.info.Token.Symbol,
				Amount:      def.Amount(),
				MediaType:   def.MediaType,
				Artifacts:   u.count,
				StoredSize:  humanize.Bytes(uint64(u.bytes)),
			})
		}
	}
	ok(c, http.StatusOK, resp)
}
