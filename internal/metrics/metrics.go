// Package metrics records article access events and exposes Prometheus collectors
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-preprint/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	articleAccesses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "preprint",
			Subsystem: "articles",
			Name:      "accesses_total",
			Help:      "Total number of recorded article accesses.",
		},
		[]string{"type"},
	)

	accessRecordErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "preprint",
			Subsystem: "articles",
			Name:      "access_record_errors_total",
			Help:      "Total number of article accesses that could not be stored.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "preprint",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		articleAccesses,
		accessRecordErrors,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware counts handled requests by route template, so ids do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// AccessStore persists access events
type AccessStore interface {
	InsertArticleAccess(access *models.ArticleAccess) error
}

// Recorder records accesses of an article. Callers treat it as best-effort.
type Recorder interface {
	RecordAccess(article *models.Article, accessType, ip, userAgent string) error
}

// StoreRecorder writes access events to an AccessStore and counts them
type StoreRecorder struct {
	store AccessStore
}

// NewStoreRecorder returns a Recorder backed by store
func NewStoreRecorder(store AccessStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// RecordAccess stores one access event for article
func (r *StoreRecorder) RecordAccess(article *models.Article, accessType, ip, userAgent string) error {
	if article == nil {
		return fmt.Errorf("record access: nil article")
	}
	err := r.store.InsertArticleAccess(&models.ArticleAccess{
		ArticleID: article.ID,
		Type:      accessType,
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		accessRecordErrors.Inc()
		return fmt.Errorf("record %s access of article %d: %w", accessType, article.ID, err)
	}
	articleAccesses.WithLabelValues(accessType).Inc()
	return nil
}
