// Package backend is a reference implementation of the remediation backend's
// HTTP contract. It reports real host metrics and keeps alerts and history in
// memory. Remediation requests are recorded, never executed.
package backend

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ftahirops/healtop/model"
)

// Thresholds raise an alert when a metric reaches them.
type Thresholds struct {
	CPU    float64
	Memory float64
	Disk   float64
}

// DefaultThresholds match the agent's alerting rules.
var DefaultThresholds = Thresholds{CPU: 80, Memory: 85, Disk: 90}

// Options configures a Server.
type Options struct {
	Thresholds   Thresholds
	AutoRaise    bool
	RateLimit    float64 // POST requests per second
	Burst        int
	ProcessLimit int
	HistoryCap   int
	Notifier     Notifier
	Now          func() time.Time
}

func (o *Options) defaults() {
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.ProcessLimit <= 0 {
		o.ProcessLimit = 15
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = 100
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Server holds the pending alert and the action history.
type Server struct {
	opts    Options
	src     Source
	log     *zap.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	pending *model.AlertRecord
	history []model.HistoryItem
}

// New creates a Server over src.
func New(src Source, opts Options, log *zap.Logger) *Server {
	opts.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		opts:    opts,
		src:     src,
		log:     log.Named("backend"),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
	}
}

// Router builds the gin engine serving the contract.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/history", s.handleHistory)
	api.GET("/manual-options/:resource", s.handleManualOptions)

	post := api.Group("", rateLimit(s.limiter))
	post.POST("/action", s.handleAction)
	post.POST("/manual-execute", s.handleManualExecute)
	post.POST("/dismiss", s.handleDismiss)
	post.POST("/dev/alert", s.handleRaise)
	return r
}

// Raise sets the pending alert unless one is already pending. The timestamp
// is fixed here, so every poll reports the identical record.
func (s *Server) Raise(alertType, severity, threshold, current string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return false
	}
	if severity == "" {
		severity = "CRITICAL"
	}
	s.pending = &model.AlertRecord{
		AlertType:    strings.ToUpper(alertType),
		Severity:     model.Text(severity),
		Threshold:    model.Text(threshold),
		CurrentUsage: model.Text(current),
		Timestamp:    model.Text(s.opts.Now().Format("2006-01-02T15:04:05.000000")),
	}
	s.log.Info("alert raised", zap.String("alert_type", s.pending.AlertType), zap.String("current", current))
	s.notify("ALERT_RAISED", *s.pending)
	return true
}

// Pending returns a copy of the pending alert, or nil.
func (s *Server) Pending() *model.AlertRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	a := *s.pending
	return &a
}

// History returns a copy of the history, most recent first.
func (s *Server) History() []model.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.HistoryItem(nil), s.history...)
}

func (s *Server) addHistoryLocked(kind string, details interface{}) {
	item := model.HistoryItem{
		Type:      kind,
		Timestamp: s.opts.Now().Format(time.RFC3339),
		Details:   mustJSON(details),
	}
	s.history = append([]model.HistoryItem{item}, s.history...)
	if len(s.history) > s.opts.HistoryCap {
		s.history = s.history[:s.opts.HistoryCap]
	}
	s.notify(kind, item)
}

func (s *Server) notify(event string, payload interface{}) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(event, payload)
	}
}

// resolveLocked clears the pending alert and returns its lower-case type.
func (s *Server) resolveLocked() (string, *model.AlertRecord) {
	a := s.pending
	s.pending = nil
	if a == nil {
		return "unknown", nil
	}
	return strings.ToLower(a.DisplayType()), a
}

func (s *Server) maybeRaise(m model.Metrics) {
	if !s.opts.AutoRaise {
		return
	}
	t := s.opts.Thresholds
	switch {
	case m.CPU >= t.CPU:
		s.Raise("CPU", "CRITICAL", pct(t.CPU), pct(m.CPU))
	case m.Memory >= t.Memory:
		s.Raise("MEMORY", "CRITICAL", pct(t.Memory), pct(m.Memory))
	case m.Disk >= t.Disk:
		s.Raise("DISK", "CRITICAL", pct(t.Disk), pct(m.Disk))
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func rateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.Duration("took", time.Since(start)),
		)
	}
}
