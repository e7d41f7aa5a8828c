package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"webshare-api/internal/infrastructure/metrics"
)

const (
	maxLogBodySize = 1 << 12 // 4 KB
	masked         = "***"
)

var sensitiveFields = []string{"password"}

func RequestLogGin(logger *zap.Logger, mCounter *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions ||
			c.Request.URL.Path == "/favicon.ico" ||
			strings.HasSuffix(c.Request.URL.Path, "/metrics") {
			c.Next()
			return
		}

		start := time.Now()

		var body string
		if c.Request != nil && c.Request.Body != nil {
			ct := c.GetHeader("Content-Type")
			if strings.HasPrefix(ct, "multipart/form-data") {
				body = "<multipart/form-data omitted>"
			} else {
				var buf bytes.Buffer
				_, _ = io.Copy(&buf, io.LimitReader(c.Request.Body, maxLogBodySize))
				rest := c.Request.Body
				c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(buf.Bytes()), rest), rest}
				body = maskBody(ct, buf.Bytes())
			}
		}

		c.Next()

		if mCounter != nil {
			mCounter.WithLabelValues(metrics.AppRequests).Inc()
		}

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("url", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("body", body),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// maskBody hides credential values. A body that cannot be parsed is not logged.
func maskBody(contentType string, b []byte) string {
	if len(b) == 0 {
		return ""
	}

	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return "<unparsed body omitted>"
		}
		for _, f := range sensitiveFields {
			if _, ok := m[f]; ok {
				m[f] = masked
			}
		}
		out, err := json.Marshal(m)
		if err != nil {
			return "<unparsed body omitted>"
		}
		return string(out)

	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		v, err := url.ParseQuery(string(b))
		if err != nil {
			return "<unparsed body omitted>"
		}
		for _, f := range sensitiveFields {
			if v.Has(f) {
				v.Set(f, masked)
			}
		}
		return v.Encode()
	}

	return "<body omitted>"
}
