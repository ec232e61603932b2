package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Manager interface {
	ListExperiments() any
	Record(id, variant string, converted bool) error
	Evaluate(id string) error
	Conclude(id string) error
	Reopen(id string) error
}

type Server struct {
	Mgr         Manager
	MetricsPath string
	HealthzPath string
	limiter     *rate.Limiter
	reqInFlight atomic.Int64
}

// New builds a server; ratePerMinute <= 0 disables API rate limiting.
func New(mgr Manager, metricsPath, healthzPath string, ratePerMinute int) *Server {
	s := &Server{Mgr: mgr, MetricsPath: metricsPath, HealthzPath: healthzPath}
	if ratePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.routes() }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.HealthzPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(s.MetricsPath, promhttp.Handler())

	mux.HandleFunc("/api/v1/experiments", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, 200, s.Mgr.ListExperiments())
	}))
	mux.HandleFunc("/api/v1/record", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		variant := r.URL.Query().Get("variant")
		if id == "" || variant == "" {
			sendJSON(w, 400, errMsg("missing id or variant"))
			return
		}
		converted := r.URL.Query().Get("converted") == "true"
		if err := s.Mgr.Record(id, variant, converted); err != nil {
			sendJSON(w, 500, errMsg(err.Error()))
			return
		}
		sendJSON(w, 200, okMsg("recorded"))
	}))
	mux.HandleFunc("/api/v1/evaluate", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			sendJSON(w, 400, errMsg("missing id"))
			return
		}
		if err := s.Mgr.Evaluate(id); err != nil {
			sendJSON(w, 500, errMsg(err.Error()))
			return
		}
		sendJSON(w, 200, okMsg("evaluated"))
	}))
	mux.HandleFunc("/api/v1/conclude", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			sendJSON(w, 400, errMsg("missing id"))
			return
		}
		if err := s.Mgr.Conclude(id); err != nil {
			sendJSON(w, 500, errMsg(err.Error()))
			return
		}
		sendJSON(w, 200, okMsg("concluded"))
	}))
	mux.HandleFunc("/api/v1/reopen", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			sendJSON(w, 400, errMsg("missing id"))
			return
		}
		if err := s.Mgr.Reopen(id); err != nil {
			sendJSON(w, 500, errMsg(err.Error()))
			return
		}
		sendJSON(w, 200, okMsg("reopened"))
	}))
	return mux
}

func (s *Server) wrap(h func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			sendJSON(w, 429, errMsg("rate_limited"))
			return
		}
		s.reqInFlight.Add(1)
		defer s.reqInFlight.Add(-1)
		h(w, r)
	}
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.routes())
}

func sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func okMsg(m string) map[string]any  { return map[string]any{"ok": true, "message": m} }
func errMsg(m string) map[string]any { return map[string]any{"ok": false, "error": m} }
