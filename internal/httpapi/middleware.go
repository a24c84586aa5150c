package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/pkg/logging"
)

const (
	ClientHeader = "X-Client-ID"
	clientKey    = "client"
)

func requestLog(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Zap().Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	}
}

func (h *handler) observe(c *gin.Context) {
	if h.Metrics == nil {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.Metrics.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	h.Metrics.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
}

func (h *handler) timeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.RequestTimeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// identify resolves the calling client from X-Client-ID. A missing,
// malformed or unknown id is rejected with 401.
func (h *handler) identify(c *gin.Context) {
	raw := c.GetHeader(ClientHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "A valid " + ClientHeader + " header is required."})
		return
	}

	var client domain.Client
	err = h.UoW.WithinTx(c.Request.Context(), func(ctx context.Context, st tx.Stores) error {
		var err error
		client, err = st.Clients().GetClient(ctx, domain.ClientID(id))
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown client."})
			return
		}
		h.internal(c, "identify", err)
		c.Abort()
		return
	}
	c.Set(clientKey, client)
	c.Next()
}

func clientOf(c *gin.Context) domain.Client {
	return c.MustGet(clientKey).(domain.Client)
}
