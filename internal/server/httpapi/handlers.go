package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/server/expense"
	"github.com/transdovic/backoffice/internal/server/models"
)

const maxVoucherSize = 10 << 20 // 10 MiB

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &common.ValidationError{Field: "body", Reason: "malformed json"})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, &common.ValidationError{Field: "credentials", Reason: "required"})
		return
	}

	token, err := s.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type clientConfigResponse struct {
	MapWidgetKey string `json:"map_widget_key"`
}

// handleClientConfig surfaces the opaque configuration the frontend
// needs; nothing here is inspected server-side.
func (s *Server) handleClientConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, clientConfigResponse{MapWidgetKey: s.MapWidgetKey})
}

type expenseListResponse struct {
	Lines []models.ExpenseLine `json:"lines"`
	Total decimal.Decimal      `json:"total"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	servicioID := chi.URLParam(r, "id")

	lines, err := s.Expenses.ListByServicio(r.Context(), servicioID)
	if err != nil {
		writeError(w, err)
		return
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	if lines == nil {
		lines = []models.ExpenseLine{}
	}
	writeJSON(w, http.StatusOK, expenseListResponse{Lines: lines, Total: total})
}

// handleAddExpense runs the detail-line workflow for one line: local
// validation first, then the eager voucher upload, then persistence. A
// failed upload leaves nothing behind.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	servicioID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxVoucherSize); err != nil {
		writeError(w, &common.ValidationError{Field: "body", Reason: "malformed multipart form"})
		return
	}

	var attachment *expense.Attachment
	if file, header, err := r.FormFile("voucher"); err == nil {
		defer file.Close()
		attachment = &expense.Attachment{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	sheet := expense.NewLineList(s.Storage)
	line, err := sheet.AddLine(r.Context(),
		r.FormValue("amount"), r.FormValue("document_number"), attachment)
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.Expenses.Insert(r.Context(), models.ExpenseLine{
		ServicioID:     servicioID,
		Amount:         line.Amount,
		DocumentNumber: line.DocumentNumber,
		VoucherURL:     line.VoucherURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.Expenses.Delete(r.Context(), chi.URLParam(r, "lineId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// handleVoucherUpload stores a voucher file eagerly, before its line is
// submitted, and returns the resolved key and public URL.
func (s *Server) handleVoucherUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxVoucherSize); err != nil {
		writeError(w, &common.ValidationError{Field: "body", Reason: "malformed multipart form"})
		return
	}

	file, header, err := r.FormFile("voucher")
	if err != nil {
		writeError(w, &common.ValidationError{Field: "voucher", Reason: "required"})
		return
	}
	defer file.Close()

	key := expense.StorageKey(header.Filename)
	if err := s.Storage.Upload(r.Context(), key, file, header.Header.Get("Content-Type")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Key: key, URL: s.Storage.PublicURL(key)})
}

// handleVoucherLink resolves a short-lived signed URL for a stored
// voucher, for deployments where the bucket is not public.
func (s *Server) handleVoucherLink(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, &common.ValidationError{Field: "key", Reason: "required"})
		return
	}

	url, err := s.Storage.PresignedGetURL(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Key: key, URL: url})
}

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &common.ValidationError{Field: "body", Reason: "malformed json"})
		return
	}

	dt, err := s.Push.RegisterDevice(r.Context(), req.Token, req.Platform)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}
