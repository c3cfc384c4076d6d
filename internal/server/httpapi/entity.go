package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/server/controller"
	"github.com/transdovic/backoffice/internal/server/querycache"
)

// listBody mirrors a cache entry snapshot: data may be absent while the
// first fetch is still loading, and a stale-but-present list is served
// alongside the error that failed to refresh it.
type listBody[E any] struct {
	Data    []E    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type entityHooks struct {
	afterCreate func()
}

// mountEntity wires the generic list/create/update/delete workflow for
// one entity type under path. idOf extracts the identifier used to find
// the modal target in the cached list.
func mountEntity[E any](r chi.Router, path string, c *controller.Controller[E], idOf func(E) string, hooks *entityHooks) {
	r.Route(path, func(er chi.Router) {
		er.Get("/", func(w http.ResponseWriter, req *http.Request) {
			entry := c.List(req.Context())
			writeJSON(w, http.StatusOK, snapshotBody(entry))
		})

		er.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var draft E
			if err := json.NewDecoder(req.Body).Decode(&draft); err != nil {
				writeError(w, &common.ValidationError{Field: "body", Reason: "malformed json"})
				return
			}

			sess := c.Session()
			if sess != nil {
				if err := sess.OpenCreate(); err != nil {
					writeError(w, err)
					return
				}
			}

			if err := c.Create(req.Context(), draft); err != nil {
				// The workflow keeps the draft's modal open for retry; the
				// HTTP client holds the draft, so the request-scoped modal
				// is released here.
				if sess != nil {
					sess.Close()
				}
				writeError(w, err)
				return
			}

			if hooks != nil && hooks.afterCreate != nil {
				hooks.afterCreate()
			}
			w.WriteHeader(http.StatusCreated)
		})

		er.Put("/{id}", func(w http.ResponseWriter, req *http.Request) {
			var entity E
			if err := json.NewDecoder(req.Body).Decode(&entity); err != nil {
				writeError(w, &common.ValidationError{Field: "body", Reason: "malformed json"})
				return
			}
			if idOf(entity) != chi.URLParam(req, "id") {
				writeError(w, &common.ValidationError{Field: "id", Reason: "does not match url"})
				return
			}

			sess := c.Session()
			if sess != nil {
				if err := sess.OpenEdit(entity); err != nil {
					writeError(w, err)
					return
				}
			}

			if err := c.Update(req.Context(), entity); err != nil {
				if sess != nil {
					sess.Close()
				}
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		er.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")

			sess := c.Session()
			if sess != nil {
				target, ok := findInCache(c.List(req.Context()), idOf, id)
				if ok {
					if err := sess.OpenConfirmDelete(target); err != nil {
						writeError(w, err)
						return
					}
				}
			}

			if err := c.Delete(req.Context(), id); err != nil {
				if sess != nil {
					sess.Close()
				}
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func snapshotBody[E any](entry querycache.Entry[[]E]) listBody[E] {
	body := listBody[E]{Loading: entry.Loading}
	if entry.HasData {
		body.Data = entry.Data
		if body.Data == nil {
			body.Data = []E{}
		}
	}
	if entry.Err != nil {
		body.Error = entry.Err.Error()
	}
	return body
}

func findInCache[E any](entry querycache.Entry[[]E], idOf func(E) string, id string) (E, bool) {
	if entry.HasData {
		for _, e := range entry.Data {
			if idOf(e) == id {
				return e, true
			}
		}
	}
	var zero E
	return zero, false
}
