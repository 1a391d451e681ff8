// Package mockensembl serves a minimal Ensembl-like homology endpoint for
// tests and offline runs.
package mockensembl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Call records a request made to the mock service.
type Call struct {
	Species string
	GeneID  string
	Query   url.Values
	Header  http.Header
}

// Homology is one homologous gene in a fixture response.
type Homology struct {
	TargetSpecies string
	TargetID      string
	Type          string
}

// Response is a canned reply for one gene.
type Response struct {
	Status int
	Body   []byte
	// Delay is waited before replying (or until the client gives up).
	Delay time.Duration
	// DropConnection closes the connection without writing a response.
	DropConnection bool
}

// Server implements the GET /homology/id/{species}/{id} endpoint.
type Server struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]Response
}

// New constructs an empty mock server. Unknown genes get a 400 like the real service.
func New() *Server {
	return &Server{responses: make(map[string]Response)}
}

func key(species, geneID string) string {
	return species + "/" + geneID
}

// SetResponse installs a canned reply for species/geneID.
func (s *Server) SetResponse(species, geneID string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	s.responses[key(species, geneID)] = resp
}

// SetHomologies installs a 200 reply listing the given homologies.
func (s *Server) SetHomologies(species, geneID string, homologies []Homology) {
	s.SetResponse(species, geneID, Response{Body: HomologyBody(species, geneID, homologies)})
}

// HomologyBody renders a response document in the service's shape.
func HomologyBody(species, geneID string, homologies []Homology) []byte {
	items := make([]map[string]any, 0, len(homologies))
	for _, h := range homologies {
		typ := h.Type
		if typ == "" {
			typ = "ortholog_one2one"
		}
		items = append(items, map[string]any{
			"type":             typ,
			"method_link_type": "ENSEMBL_ORTHOLOGUES",
			"source": map[string]any{
				"id":      geneID,
				"species": species,
			},
			"target": map[string]any{
				"id":      h.TargetID,
				"species": h.TargetSpecies,
				"perc_id": 80.5,
			},
		})
	}
	doc := map[string]any{
		"data": []any{map[string]any{
			"id":         geneID,
			"homologies": items,
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}

// LoadFixtures installs a 200 reply for every <dir>/<species>/<gene>.json file.
func (s *Server) LoadFixtures(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*", "*.json"))
	if err != nil {
		return 0, err
	}
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return 0, fmt.Errorf("read fixture %s: %w", m, err)
		}
		species := filepath.Base(filepath.Dir(m))
		gene := strings.TrimSuffix(filepath.Base(m), ".json")
		s.SetResponse(species, gene, Response{Body: b})
	}
	return len(matches), nil
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/homology/id/{species}/{id}", s.handleHomology)
	return r
}

func (s *Server) handleHomology(w http.ResponseWriter, r *http.Request) {
	species := chi.URLParam(r, "species")
	geneID := chi.URLParam(r, "id")

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Species: species,
		GeneID:  geneID,
		Query:   r.URL.Query(),
		Header:  r.Header.Clone(),
	})
	resp, ok := s.responses[key(species, geneID)]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("No valid lookup found for ID %s", geneID),
		})
		return
	}

	if resp.Delay > 0 {
		t := time.NewTimer(resp.Delay)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			return
		}
	}

	if resp.DropConnection {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijacking not supported", http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
