// Package diagnostics exposes the container's registrations and interception
// counters as read-only JSON over HTTP.
package diagnostics

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/interception"
	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/events"
	"github.com/GoCodeAlone/interception/logging"
)

// ServiceSource describes registrations. Both *di.ServiceCollection and
// *di.Provider implement it.
type ServiceSource interface {
	Describe() []di.DescriptorInfo
}

// StatsSource reports interception counters, e.g. *interception.CountingInterceptor.
type StatsSource interface {
	Stats() []interception.MethodStats
}

// Options configures the router. Only Services is required.
type Options struct {
	Services ServiceSource
	Stats    StatsSource
	Events   events.Subject
	Logger   logging.Logger
}

type handler struct {
	opts   Options
	logger logging.Logger
}

// NewRouter returns a chi router serving:
//
//	GET /services             all registrations; ?keyed=true|false and ?lifetime= filter
//	GET /services/{type}      registrations of one service type, e.g. testutil.ITestService
//	GET /interceptions        per-method call counters
//	GET /observers            event observers
func NewRouter(opts Options) chi.Router {
	h := &handler{opts: opts, logger: logging.OrNop(opts.Logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/services", h.listServices)
	r.Get("/services/{type}", h.getService)
	r.Get("/interceptions", h.listInterceptions)
	r.Get("/observers", h.listObservers)
	return r
}

func (h *handler) describe() []di.DescriptorInfo {
	if h.opts.Services == nil {
		return []di.DescriptorInfo{}
	}
	return h.opts.Services.Describe()
}

func (h *handler) listServices(w http.ResponseWriter, r *http.Request) {
	infos := h.describe()
	query := r.URL.Query()

	if raw := query.Get("keyed"); raw != "" {
		keyed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid keyed filter: "+raw)
			return
		}
		infos = filter(infos, func(info di.DescriptorInfo) bool { return info.Keyed == keyed })
	}
	if raw := query.Get("lifetime"); raw != "" {
		lifetime, err := di.ParseServiceLifetime(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		infos = filter(infos, func(info di.DescriptorInfo) bool { return info.Lifetime == lifetime.String() })
	}

	h.writeJSON(w, r, http.StatusOK, infos)
}

func (h *handler) getService(w http.ResponseWriter, r *http.Request) {
	serviceType, err := url.PathUnescape(chi.URLParam(r, "type"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid service type")
		return
	}

	infos := filter(h.describe(), func(info di.DescriptorInfo) bool { return info.ServiceType == serviceType })
	if len(infos) == 0 {
		h.writeError(w, r, http.StatusNotFound, "service not registered: "+serviceType)
		return
	}
	h.writeJSON(w, r, http.StatusOK, infos)
}

func (h *handler) listInterceptions(w http.ResponseWriter, r *http.Request) {
	if h.opts.Stats == nil {
		h.writeJSON(w, r, http.StatusOK, []interception.MethodStats{})
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.opts.Stats.Stats())
}

func (h *handler) listObservers(w http.ResponseWriter, r *http.Request) {
	if h.opts.Events == nil {
		h.writeJSON(w, r, http.StatusOK, []events.ObserverInfo{})
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.opts.Events.GetObservers())
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, errorResponse{Error: message, RequestID: middleware.GetReqID(r.Context())})
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write diagnostics response", "path", r.URL.Path, "error", err)
	}
}

func filter(infos []di.DescriptorInfo, keep func(di.DescriptorInfo) bool) []di.DescriptorInfo {
	out := make([]di.DescriptorInfo, 0, len(infos))
	for _, info := range infos {
		if keep(info) {
			out = append(out, info)
		}
	}
	return out
}
