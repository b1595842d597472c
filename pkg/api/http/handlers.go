package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// assetURI binds the asset lookup path
type assetURI struct {
	ID string `uri:"id" binding:"required"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}
	if s.health != nil {
		upstream := s.health.Status()
		if !upstream.Healthy {
			status = "degraded"
		}
		checks["upstream"] = upstream
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleListings handles the full listings page
func (s *Server) handleListings(c *gin.Context) {
	listings, err := s.market.Listings(c.Request.Context())
	if err != nil {
		s.respondUpstreamError(c, "Failed to fetch data", err)
		return
	}

	s.observeAssets(c, len(listings.Assets))
	c.JSON(http.StatusOK, listings)
}

// handleTrending handles the trending view
func (s *Server) handleTrending(c *gin.Context) {
	trending, err := s.market.Trending(c.Request.Context())
	if err != nil {
		s.respondUpstreamError(c, "Failed to fetch trending data", err)
		return
	}

	s.observeAssets(c, len(trending))
	c.JSON(http.StatusOK, trending)
}

// handleTopGainers handles the top gainers view
func (s *Server) handleTopGainers(c *gin.Context) {
	gainers, err := s.market.TopGainers(c.Request.Context())
	if err != nil {
		s.respondUpstreamError(c, "Failed to fetch top gainers", err)
		return
	}

	s.observeAssets(c, len(gainers))
	c.JSON(http.StatusOK, gainers)
}

// handleTopLosers handles the top losers view
func (s *Server) handleTopLosers(c *gin.Context) {
	losers, err := s.market.TopLosers(c.Request.Context())
	if err != nil {
		s.respondUpstreamError(c, "Failed to fetch top losers", err)
		return
	}

	s.observeAssets(c, len(losers))
	c.JSON(http.StatusOK, losers)
}

// handleGetAsset handles a single asset lookup
func (s *Server) handleGetAsset(c *gin.Context) {
	var uri assetURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Cryptocurrency not found"})
		return
	}

	asset, err := s.market.ByID(c.Request.Context(), uri.ID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Cryptocurrency not found"})
		return
	}
	if err != nil {
		s.respondUpstreamError(c, "Failed to fetch cryptocurrency details", err)
		return
	}

	s.observeAssets(c, 1)
	c.JSON(http.StatusOK, asset)
}

// handleNotFound answers unknown routes
func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not Found"})
}

// respondUpstreamError logs err and writes a 500 envelope. The details
// carry the upstream error when one is in the chain.
func (s *Server) respondUpstreamError(c *gin.Context, message string, err error) {
	details := err.Error()
	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		details = upstreamErr.Error()
	}

	s.logger.Error(message,
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

func (s *Server) observeAssets(c *gin.Context, count int) {
	if s.metrics != nil {
		s.metrics.ObserveAssetsServed(c.FullPath(), count)
	}
}
