// Package admin serves the results of a finished run over HTTP.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"lorawan-sim/internal/geo"
	"lorawan-sim/internal/logging"
	"lorawan-sim/internal/sim"
	"lorawan-sim/internal/tracker"
)

// Server exposes the report, ledger and node layout of a simulation. Ledger
// routes answer 503 until the run has finished.
type Server struct {
	Sim     *sim.Simulation
	metrics http.Handler
	tpl     *template.Template
	mux     *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates a server for s. metrics may be nil.
func NewServer(s *sim.Simulation, metrics http.Handler) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	srv := &Server{Sim: s, metrics: metrics, tpl: tpl, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/report", s.finished(s.handleReport))
	s.mux.HandleFunc("/packets", s.finished(s.handlePackets))
	s.mux.HandleFunc("/window", s.finished(s.handleWindow))
	s.mux.HandleFunc("/nodes", s.handleNodes)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdown)
	}()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) finished(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Sim.Finished() {
			http.Error(w, "simulation still running", http.StatusServiceUnavailable)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	rep, done := s.Sim.Report()
	data := struct {
		RunID    string
		Finished bool
		Report   sim.Report
		Ratio    float64
	}{
		RunID:    s.Sim.RunID(),
		Finished: done,
		Report:   rep,
		Ratio:    100 * rep.DeliveryRatio,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, _ := s.Sim.Report()
	writeJSON(w, rep)
}

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Tracker().Packets())
}

type windowResult struct {
	Start      time.Duration          `json:"start"`
	End        time.Duration          `json:"end"`
	Counts     tracker.Counts         `json:"counts"`
	Throughput float64                `json:"throughput"`
	Gateways   []tracker.GatewayStats `json:"gateways"`
}

// handleWindow answers counts over [start, end). Both bounds are Go duration
// strings; end defaults to the stop time.
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	start, end := time.Duration(0), s.Sim.Config().StopTime
	q := r.URL.Query()
	for _, b := range []struct {
		name string
		dst  *time.Duration
	}{{"start", &start}, {"end", &end}} {
		v := q.Get(b.name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			http.Error(w, "bad "+b.name+": "+err.Error(), http.StatusBadRequest)
			return
		}
		*b.dst = d
	}
	tr := s.Sim.Tracker()
	writeJSON(w, windowResult{
		Start:      start,
		End:        end,
		Counts:     tr.CountInWindow(start, end),
		Throughput: tr.Throughput(start, end),
		Gateways:   tr.GatewayCounts(start, end),
	})
}

type nodeView struct {
	ID       int        `json:"id"`
	Role     string     `json:"role"`
	Mobility string     `json:"mobility"`
	Position geo.Vector `json:"position"`
}

// handleNodes lists the initial deployment. It does not touch the ledger.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	var out []nodeView
	for _, n := range s.Sim.Nodes().All() {
		out = append(out, nodeView{
			ID:       n.ID,
			Role:     n.Role.Role().String(),
			Mobility: string(n.Mode),
			Position: n.Position(0),
		})
	}
	writeJSON(w, out)
}
