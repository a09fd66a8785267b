// Package webhook receives tracker push events and turns qualifying ones
// into runs without waiting for them.
package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucasnoah/issuepilot/internal/health"
	"github.com/lucasnoah/issuepilot/internal/runid"
	"github.com/lucasnoah/issuepilot/internal/trigger"
)

// Envelope is the incoming webhook payload. Only the fields the dispatch
// decision needs are decoded; everything else passes through untouched.
type Envelope struct {
	EventType string `json:"eventType"`
	Action    string `json:"action"`
	Issue     struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
	} `json:"issue"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}

// Server is the webhook receiver. The endpoint is unauthenticated; deploy it
// behind a tunnel or proxy that handles signature verification.
type Server struct {
	launcher    trigger.Launcher
	triggerWord string
	runsDir     string
	port        int
	registry    *prometheus.Registry
	metrics     *Metrics
	logger      *log.Logger
	checker     *health.Checker // optional; nil = liveness only
	newRunID    func() string
}

// NewServer creates a webhook Server registering metrics on reg.
func NewServer(launcher trigger.Launcher, triggerWord, runsDir string, port int, reg *prometheus.Registry, logger *log.Logger) *Server {
	if triggerWord == "" {
		triggerWord = "adw"
	}
	if logger == nil {
		logger = log.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		registry:    reg,
		launcher:    launcher,
		triggerWord: triggerWord,
		runsDir:     runsDir,
		port:        port,
		metrics:     NewMetrics(reg),
		logger:      logger,
		newRunID:    runid.New,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gh-webhook", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start serves until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Printf("webhook listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// SetChecker enables full prerequisite probing on /health.
func (s *Server) SetChecker(c *health.Checker) {
	s.checker = c
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	report := s.checker.Check()
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.observe(time.Since(start).Seconds()) }()

	if r.Method != http.MethodPost {
		s.metrics.event("rejected")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.metrics.event("malformed")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable payload"})
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.metrics.event("malformed")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	reason, ok := s.qualify(&env)
	if !ok {
		s.metrics.event("ignored")
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": reason,
		})
		return
	}

	id := s.newRunID()
	event := trigger.Event{
		Kind:       trigger.KindWebhook,
		Issue:      env.Issue.Number,
		Reason:     reason,
		RawPayload: body,
	}
	s.logger.Printf("webhook dispatching run %s for issue #%d (%s)", id, event.Issue, event.Reason)
	s.metrics.event("accepted")
	s.metrics.runStarted("webhook")

	// Launch off the request path: the tracker's delivery timeout is short
	// and the run's lifetime is unbounded.
	go func() {
		if err := s.launcher.Launch(event.Issue, id); err != nil {
			s.logger.Printf("launch run %s for issue #%d: %v", id, event.Issue, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
		"issue":  event.Issue,
		"run_id": id,
		"logs":   filepath.Join(s.runsDir, id),
	})
}

// qualify decides whether the event starts a run. New issues always do;
// comments only when the body is exactly the trigger word.
func (s *Server) qualify(env *Envelope) (string, bool) {
	if env.Issue.Number <= 0 {
		return "no issue number", false
	}
	switch env.EventType {
	case "issues":
		if env.Action == "opened" {
			return "issue opened", true
		}
		return fmt.Sprintf("issues action %q", env.Action), false
	case "issue_comment":
		if env.Action != "created" {
			return fmt.Sprintf("comment action %q", env.Action), false
		}
		if strings.TrimSpace(env.Comment.Body) != s.triggerWord {
			return "comment is not the trigger word", false
		}
		return "trigger comment", true
	default:
		return fmt.Sprintf("event type %q", env.EventType), false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
