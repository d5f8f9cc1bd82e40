package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"focustriage/internal/orchestrator"
	"focustriage/internal/rules"
	"focustriage/internal/triage"
	logx "focustriage/pkg/logx"
)

// API is the triage state the server exposes. *orchestrator.Orchestrator
// implements it.
type API interface {
	Status() orchestrator.Status
	Groups() []triage.Group
	Counts() [4]int
	Summarize(ctx context.Context) string
	ClearOne(id int64) bool
	ClearApp(appKey string) int
	ClearAll() int
	Inject(n int) int

	Contexts() []rules.AppContext
	SetContext(appKey, text string) error
	DeleteContext(appKey string) (bool, error)
	IgnoredApps() []string
	IgnoreApp(appKey string) error
	UnignoreApp(appKey string) (bool, error)
}

// Wire types shared with Client.
type (
	CountsResponse struct {
		Total    int    `json:"total"`
		Tiers    [4]int `json:"tiers"`
		Critical int    `json:"critical"`
		High     int    `json:"high"`
		Medium   int    `json:"medium"`
		Low      int    `json:"low"`
	}
	SummaryResponse struct {
		Summary string `json:"summary"`
	}
	ClearResponse struct {
		Cleared int `json:"cleared"`
	}
	InjectResponse struct {
		Injected int `json:"injected"`
	}
	RemoveResponse struct {
		Removed bool `json:"removed"`
	}
	ContextRequest struct {
		Context string `json:"context"`
	}
	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func countsResponse(c [4]int) CountsResponse {
	return CountsResponse{
		Total:    c[0] + c[1] + c[2] + c[3],
		Tiers:    c,
		Critical: c[0],
		High:     c[1],
		Medium:   c[2],
		Low:      c[3],
	}
}

type handlers struct {
	api API
	log logx.Logger
}

// Handler routes the JSON API. Authentication is applied by the server.
func Handler(api API, log logx.Logger) http.Handler {
	h := &handlers{api: api, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/status", h.status)
	mux.HandleFunc("GET /v1/groups", h.groups)
	mux.HandleFunc("GET /v1/counts", h.counts)
	mux.HandleFunc("GET /v1/summary", h.summary)
	mux.HandleFunc("POST /v1/clear", h.clear)
	mux.HandleFunc("POST /v1/inject", h.inject)
	mux.HandleFunc("GET /v1/contexts", h.listContexts)
	mux.HandleFunc("PUT /v1/contexts/{app}", h.setContext)
	mux.HandleFunc("DELETE /v1/contexts/{app}", h.deleteContext)
	mux.HandleFunc("GET /v1/ignored", h.listIgnored)
	mux.HandleFunc("PUT /v1/ignored/{app}", h.ignore)
	mux.HandleFunc("DELETE /v1/ignored/{app}", h.unignore)
	return mux
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.api.Status())
}

func (h *handlers) groups(w http.ResponseWriter, r *http.Request) {
	groups := h.api.Groups()
	if groups == nil {
		groups = []triage.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *handlers) counts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, countsResponse(h.api.Counts()))
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: h.api.Summarize(r.Context())})
}

// clear takes exactly one of ?id=N, ?app=KEY or ?all=true.
func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, app, all := q.Get("id"), q.Get("app"), q.Get("all")
	set := 0
	for _, v := range []string{id, app, all} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		writeError(w, http.StatusBadRequest, errors.New("exactly one of id, app, all is required"))
		return
	}

	var cleared int
	switch {
	case id != "":
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("id must be an integer"))
			return
		}
		if h.api.ClearOne(n) {
			cleared = 1
		}
	case app != "":
		cleared = h.api.ClearApp(app)
	default:
		ok, err := strconv.ParseBool(all)
		if err != nil || !ok {
			writeError(w, http.StatusBadRequest, errors.New("all must be true"))
			return
		}
		cleared = h.api.ClearAll()
	}
	h.log.Info("cleared notifications", logx.Int("count", cleared))
	writeJSON(w, http.StatusOK, ClearResponse{Cleared: cleared})
}

func (h *handlers) inject(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("count must be an integer"))
			return
		}
		n = v
	}
	writeJSON(w, http.StatusOK, InjectResponse{Injected: h.api.Inject(n)})
}

func (h *handlers) listContexts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.api.Contexts())
}

func (h *handlers) setContext(w http.ResponseWriter, r *http.Request) {
	app := strings.TrimSpace(r.PathValue("app"))
	if app == "" {
		writeError(w, http.StatusBadRequest, errors.New("app is required"))
		return
	}
	var req ContextRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.api.SetContext(app, req.Context); err != nil {
		h.persistFailed(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteContext(w http.ResponseWriter, r *http.Request) {
	removed, err := h.api.DeleteContext(r.PathValue("app"))
	if err != nil {
		h.persistFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

func (h *handlers) listIgnored(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.api.IgnoredApps())
}

func (h *handlers) ignore(w http.ResponseWriter, r *http.Request) {
	app := strings.TrimSpace(r.PathValue("app"))
	if app == "" {
		writeError(w, http.StatusBadRequest, errors.New("app is required"))
		return
	}
	if err := h.api.IgnoreApp(app); err != nil {
		h.persistFailed(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) unignore(w http.ResponseWriter, r *http.Request) {
	removed, err := h.api.UnignoreApp(r.PathValue("app"))
	if err != nil {
		h.persistFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

// persistFailed reports a rules write error; the in-memory change stands.
func (h *handlers) persistFailed(w http.ResponseWriter, err error) {
	h.log.Warn("rules persistence failed", logx.Err(err))
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
