package beanhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/junioryono/beans"
)

// BeanInfo describes a definition, and the bean when one was resolved.
type BeanInfo struct {
	Name         string      `json:"name"`
	Package      string      `json:"package"`
	Context      string      `json:"context"`
	Scope        beans.Scope `json:"scope"`
	Factory      string      `json:"factory,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
	Type         string      `json:"type,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// NewRouter returns a Chi router exposing the factory for inspection:
//
//	GET  /beans                list definitions
//	GET  /beans/{name}         resolve a bean (?package=, ?context=)
//	GET  /graph                dependency graph (?format=tree|dot)
//	POST /scopes/clear         clear scopes (?force=true drops retained beans)
//
// Every request runs on its own thread scope.
func NewRouter(factory *beans.BeanFactory, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{factory: factory, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(ThreadMiddleware(factory))

	r.Get("/beans", h.list)
	r.Get("/beans/{name}", h.get)
	r.Get("/graph", h.graph)
	r.Post("/scopes/clear", h.clear)

	return r
}

type handlers struct {
	factory *beans.BeanFactory
	logger  *slog.Logger
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.factory.Registry().(interface{ ToSlice() []*beans.Definition })
	if !ok {
		h.fail(w, r, http.StatusNotImplemented, errors.New("registry cannot list its definitions"))
		return
	}

	defs := lister.ToSlice()
	infos := make([]BeanInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, describe(def))
	}

	writeJSON(w, http.StatusOK, infos)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var opts []beans.LookupOption
	if pkg := r.URL.Query().Get("package"); pkg != "" {
		opts = append(opts, beans.FromPackage(pkg))
	}
	if ctx := r.URL.Query().Get("context"); ctx != "" {
		opts = append(opts, beans.InContext(ctx))
	}

	def, err := h.factory.Lookup(name, opts...)
	if err != nil {
		h.fail(w, r, statusOf(err), err)
		return
	}

	bean, err := h.factory.GetBean(r.Context(), name, opts...)
	if err != nil {
		h.fail(w, r, statusOf(err), err)
		return
	}

	info := describe(def)
	info.Type = fmt.Sprintf("%T", bean)
	writeJSON(w, http.StatusOK, info)
}

func (h *handlers) graph(w http.ResponseWriter, r *http.Request) {
	format := beans.GraphFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = beans.GraphTree
	}

	g, err := h.factory.Graph()
	if err != nil {
		h.fail(w, r, http.StatusNotImplemented, err)
		return
	}

	if format != beans.GraphDOT && format != beans.GraphTree {
		h.fail(w, r, http.StatusBadRequest, fmt.Errorf("unknown graph format %q", format))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if err := g.Write(w, format); err != nil {
		h.logger.Error("failed to write graph", "error", err)
	}
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("force") == "true" {
		h.factory.ForceClearScopes()
	} else {
		h.factory.ClearScopes()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("bean request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func describe(def *beans.Definition) BeanInfo {
	info := BeanInfo{
		Name:    def.Name,
		Package: def.Package,
		Context: def.Context,
		Scope:   def.Scope,
		Factory: def.FactoryMethod,
	}
	for _, ref := range def.Dependencies {
		info.Dependencies = append(info.Dependencies, ref.Bean)
	}
	return info
}

// statusOf maps resolution errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, beans.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, beans.ErrBeanNotFound):
		return http.StatusNotFound
	case errors.Is(err, beans.ErrAmbiguousDefinition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
