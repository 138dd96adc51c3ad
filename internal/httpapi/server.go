// Package httpapi exposes read-only visa lookups over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gxo-labs/visacheck/internal/boundary"
	intCountry "github.com/gxo-labs/visacheck/internal/country"
	"github.com/gxo-labs/visacheck/internal/resolver"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"
)

// Service is the part of the checker the API reads from.
type Service interface {
	Resolve(ctx context.Context, nationality, destination string) rules.Status
	Compare(ctx context.Context, nationality string, destinations []string) []rules.ComparisonRow
	SupportedNationalities() []string
	Countries() country.Registry
}

var codePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Handler wires the lookup endpoints to a Service.
type Handler struct {
	service  Service
	log      vclog.Logger
	registry *prometheus.Registry
}

// New creates a Handler. registry may be nil, in which case /metrics is not mounted.
func New(service Service, log vclog.Logger, registry *prometheus.Registry) *Handler {
	return &Handler{service: service, log: log.With("component", "HTTPAPI"), registry: registry}
}

// Router builds the chi router with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(boundary.Recoverer(h.log))

	r.Get("/healthz", h.HandleHealth)
	if h.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/nationalities", h.HandleNationalities)
		r.Get("/countries", h.HandleCountries)
		r.Get("/visa/{nationality}/{destination}", h.HandleVisa)
		r.Get("/compare/{nationality}", h.HandleCompare)
	})
	return r
}

// NewServer returns an http.Server for addr serving h.
func (h *Handler) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleNationalities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"nationalities": h.service.SupportedNationalities()})
}

// HandleCountries handles GET /v1/countries?q=&exclude=.
func (h *Handler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	query := intCountry.SanitizeSearch(r.URL.Query().Get("q"))
	exclude := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("exclude")))

	matches := h.service.Countries().Search(query)
	out := make([]country.Country, 0, len(matches))
	for _, c := range matches {
		if c.Code != exclude {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]country.Country{"countries": out})
}

type visaResponse struct {
	Nationality string `json:"nationality"`
	Destination string `json:"destination"`
	Label       string `json:"label,omitempty"`
	rules.Status
}

// HandleVisa handles GET /v1/visa/{nationality}/{destination}.
func (h *Handler) HandleVisa(w http.ResponseWriter, r *http.Request) {
	nat := strings.ToUpper(chi.URLParam(r, "nationality"))
	dest := strings.ToUpper(chi.URLParam(r, "destination"))
	if !codePattern.MatchString(nat) || !codePattern.MatchString(dest) {
		writeError(w, http.StatusBadRequest, "country codes must be two letters")
		return
	}

	st := h.service.Resolve(r.Context(), nat, dest)
	resp := visaResponse{Nationality: nat, Destination: dest, Status: st}
	if st.Available() {
		resp.Label = resolver.Label(st.Requirement.Type)
	}
	h.log.Debugf("Resolved %s -> %s: %s", nat, dest, st.Kind)
	writeJSON(w, http.StatusOK, resp)
}

type compareRow struct {
	rules.ComparisonRow
	Label string `json:"label,omitempty"`
}

// HandleCompare handles GET /v1/compare/{nationality}?to=TH,JP.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	nat := strings.ToUpper(chi.URLParam(r, "nationality"))
	if !codePattern.MatchString(nat) {
		writeError(w, http.StatusBadRequest, "nationality must be a two letter code")
		return
	}

	var dests []string
	for _, part := range strings.Split(r.URL.Query().Get("to"), ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if !codePattern.MatchString(code) {
			writeError(w, http.StatusBadRequest, "destination codes must be two letters")
			return
		}
		if code == nat || slices.Contains(dests, code) {
			continue
		}
		dests = append(dests, code)
	}
	if len(dests) == 0 {
		writeError(w, http.StatusBadRequest, "at least one destination is required in 'to'")
		return
	}
	if len(dests) > selection.MaxCompareDestinations {
		writeError(w, http.StatusBadRequest, "at most 3 destinations can be compared")
		return
	}

	rows := h.service.Compare(r.Context(), nat, dests)
	out := make([]compareRow, len(rows))
	for i, row := range rows {
		out[i] = compareRow{ComparisonRow: row}
		if row.Status.Available() {
			out[i].Label = resolver.Label(row.Status.Requirement.Type)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"nationality": nat, "destinations": out})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, map[string]string{
		"error":             strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"),
		"error_description": description,
	})
}
