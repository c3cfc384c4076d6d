package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/server/controller"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errUnauthorized() error { return common.ErrUnauthorized }

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// auth 401, busy workflow 409, missing row 404, remote failure 502.
func writeError(w http.ResponseWriter, err error) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Reason, Field: ve.Field})
		return
	}

	switch {
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	case errors.Is(err, common.ErrModalOpen), errors.Is(err, controller.ErrMutationInFlight):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}

	var remote *common.RemoteError
	if errors.As(err, &remote) {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: remote.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
}
