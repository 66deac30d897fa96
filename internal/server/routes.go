// internal/server/routes.go
//
// HTTP adapter over the artifact core.
//
// Routes
// ------
//
//	GET  /healthz                    liveness
//	GET  /metrics                    Prometheus scrape
//	GET  /preview/{token}            image behind a live-preview token
//	POST /preview                    live preview of unsaved source → tokens
//	POST /sites                      create a site from a template
//	PUT  /sites/{id}/content         replace bindings, refresh preview
//	GET  /sites/{id}/preview         site preview image
//	GET  /templates/{id}/preview     template preview image
//	GET  /templates                  template list, newest first; ?name= for one
//	GET  /users/{id}/sites           a user's sites, oldest first
//	PATCH /sites/{id}/name           rename a site
//
// Preview image routes take ?wide=true|false.  Without it the client's
// device class picks the variant.
//
// Error mapping
// -------------
//   - errs.ErrNotFound  → 404
//   - bad request body  → 400
//   - body over limit   → 413
//   - anything else     → 500 with a generic message; details are logged
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/zitefy/internal/assemble"
	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/middleware"
	"github.com/yanizio/zitefy/internal/preview"
	"github.com/yanizio/zitefy/internal/requestinfo"
	"github.com/yanizio/zitefy/internal/site"
	"github.com/yanizio/zitefy/internal/templates"
)

// Tokens resolves live-preview download tokens.
type Tokens interface {
	Get(token string) (string, bool)
}

// LivePreviewer renders unsaved source.
type LivePreviewer interface {
	Preview(ctx context.Context, src assemble.RawSource) (preview.Tokens, error)
}

// SiteCreator materializes sites.
type SiteCreator interface {
	Materialize(ctx context.Context, templateID, ownerID string) (string, error)
}

// Sites is the request-time site API.
type Sites interface {
	PreviewPath(ctx context.Context, id string, wide bool) (string, error)
	UpdateContent(ctx context.Context, id string, bindings []assemble.Binding) (preview.Pair, error)
	ListByOwner(ctx context.Context, ownerID string) ([]site.Record, error)
	Rename(ctx context.Context, id, name string) error
}

// DefaultMaxBodyBytes caps request bodies when API.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 4 << 20

// API bundles the collaborators behind the routes.
type API struct {
	Tokens       Tokens
	Live         LivePreviewer
	Creator      SiteCreator
	Sites        Sites
	Templates    templates.Store
	ForceHTTPS   bool
	MaxBodyBytes int64 // JSON request bodies; DefaultMaxBodyBytes when zero
}

var validate = validator.New()

type createSiteReq struct {
	TemplateID string `json:"template_id" validate:"required"`
	OwnerID    string `json:"owner_id"    validate:"required"`
}

type renameReq struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Routes returns the full handler chain.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)
	r.Use(requestinfo.Enrich)
	r.Use(middleware.Security)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/preview/{token}", a.tokenImage)
	r.Post("/preview", a.livePreview)
	r.Post("/sites", a.createSite)
	r.Put("/sites/{id}/content", a.updateContent)
	r.Get("/sites/{id}/preview", a.sitePreview)
	r.Patch("/sites/{id}/name", a.renameSite)
	r.Get("/users/{id}/sites", a.ownerSites)
	r.Get("/templates", a.listTemplates)
	r.Get("/templates/{id}/preview", a.templatePreview)

	return middleware.ForceHTTPS(a.ForceHTTPS, r)
}

func (a *API) tokenImage(w http.ResponseWriter, r *http.Request) {
	path, ok := a.Tokens.Get(chi.URLParam(r, "token"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	serveImage(w, r, path)
}

func (a *API) livePreview(w http.ResponseWriter, r *http.Request) {
	var src assemble.RawSource
	if err := a.decode(w, r, &src); err != nil {
		badRequest(w, err)
		return
	}
	toks, err := a.Live.Preview(r.Context(), src)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toks)
}

func (a *API) createSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteReq
	if err := a.decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		badRequest(w, err)
		return
	}
	id, err := a.Creator.Materialize(r.Context(), req.TemplateID, req.OwnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"site_id": id})
}

func (a *API) updateContent(w http.ResponseWriter, r *http.Request) {
	var bindings []assemble.Binding
	if err := a.decode(w, r, &bindings); err != nil {
		badRequest(w, err)
		return
	}
	if _, err := a.Sites.UpdateContent(r.Context(), chi.URLParam(r, "id"), bindings); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) renameSite(w http.ResponseWriter, r *http.Request) {
	var req renameReq
	if err := a.decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		badRequest(w, err)
		return
	}
	if err := a.Sites.Rename(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ownerSites(w http.ResponseWriter, r *http.Request) {
	list, err := a.Sites.ListByOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) listTemplates(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		rec, err := a.Templates.ByName(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}
	list, err := a.Templates.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []templates.Record{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) sitePreview(w http.ResponseWriter, r *http.Request) {
	wide, err := wantWide(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	path, err := a.Sites.PreviewPath(r.Context(), chi.URLParam(r, "id"), wide)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveImage(w, r, path)
}

func (a *API) templatePreview(w http.ResponseWriter, r *http.Request) {
	wide, err := wantWide(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	rec, err := a.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveImage(w, r, rec.Previews.Pick(wide))
}

// wantWide reads ?wide=, falling back to the client's device class.
func wantWide(r *http.Request) (bool, error) {
	if v := r.URL.Query().Get("wide"); v != "" {
		return strconv.ParseBool(v)
	}
	return requestinfo.Wide(r), nil
}

// decode reads one JSON value from the body, refusing more than
// MaxBodyBytes.
func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) error {
	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}

func serveImage(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	zap.S().Errorw("request failed",
		"path", r.URL.Path,
		"req_id", chimw.GetReqID(r.Context()),
		"err", err,
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
