package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/cryptox"
	"github.com/transdovic/backoffice/internal/logging"
	"github.com/transdovic/backoffice/internal/server/auth"
	"github.com/transdovic/backoffice/internal/server/controller"
	"github.com/transdovic/backoffice/internal/server/models"
	"github.com/transdovic/backoffice/internal/server/push"
	"github.com/transdovic/backoffice/internal/server/querycache"
	"github.com/transdovic/backoffice/internal/server/session"
	"github.com/transdovic/backoffice/internal/server/store"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

type fakeStore[E any] struct {
	mu          sync.Mutex
	rows        []E
	selectDelay time.Duration
	insertErr   error
	updateErr   error
	deleteErr   error
	inserted    []E
	updated     []E
	deleted     []string
}

func (f *fakeStore[E]) Select(ctx context.Context) ([]E, error) {
	if f.selectDelay > 0 {
		select {
		case <-time.After(f.selectDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]E(nil), f.rows...), nil
}

func (f *fakeStore[E]) Insert(ctx context.Context, draft E) (E, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		var zero E
		return zero, f.insertErr
	}
	f.inserted = append(f.inserted, draft)
	f.rows = append(f.rows, draft)
	return draft, nil
}

func (f *fakeStore[E]) Update(ctx context.Context, entity E) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, entity)
	return nil
}

func (f *fakeStore[E]) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newEntityController[E any](key string, st *fakeStore[E]) *controller.Controller[E] {
	cache := querycache.New(func(ctx context.Context, _ string) ([]E, error) {
		return st.Select(ctx)
	})
	return controller.New(controller.Config[E]{
		Key:     key,
		Store:   st,
		Cache:   cache,
		Session: session.New[E](),
		Logger:  testLogger(),
	})
}

type fakeStorage struct {
	mu        sync.Mutex
	uploads   map[string]string // key -> content type
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[key] = contentType
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://files.test/" + key
}

func (f *fakeStorage) PresignedGetURL(ctx context.Context, key string) (string, error) {
	return "https://files.test/" + key + "?signed=1", nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeAdminStore struct {
	admin *models.Admin
}

func (f *fakeAdminStore) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if f.admin != nil && f.admin.Username == username {
		return f.admin, nil
	}
	return nil, common.ErrNotFound
}

type fakeRegistry struct {
	mu      sync.Mutex
	devices []models.DeviceToken
}

func (f *fakeRegistry) Register(ctx context.Context, token, platform string) (*models.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dt := models.DeviceToken{ID: "d1", Token: token, Platform: platform}
	f.devices = append(f.devices, dt)
	return &dt, nil
}

func (f *fakeRegistry) List(ctx context.Context) ([]models.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, nil
}

type harness struct {
	srv     *Server
	router  http.Handler
	farms   *fakeStore[models.Farm]
	storage *fakeStorage
	mock    sqlmock.Sqlmock
	token   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	salt := cryptox.NewSalt()
	adminStore := &fakeAdminStore{admin: &models.Admin{
		ID:           "a1",
		Username:     "admin",
		PasswordHash: cryptox.HashPassword([]byte("secret"), salt),
		Salt:         salt,
	}}
	authSvc := auth.NewService(adminStore, "test-secret", time.Hour)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	farms := &fakeStore[models.Farm]{}
	storage := &fakeStorage{}

	srv := New(Deps{
		Addr:         "127.0.0.1:0",
		Logger:       testLogger(),
		Auth:         authSvc,
		Users:        newEntityController("users", &fakeStore[models.User]{}),
		Vehicles:     newEntityController("vehicles", &fakeStore[models.Vehicle]{}),
		Farms:        newEntityController("farms", farms),
		Peajes:       newEntityController("peajes", &fakeStore[models.Peaje]{}),
		Servicios:    newEntityController("servicios", &fakeStore[models.Servicio]{}),
		Botiquin:     newEntityController("botiquin_items", &fakeStore[models.BotiquinItem]{}),
		Expenses:     store.NewExpenseLineRepository(db),
		Storage:      storage,
		Push:         push.New("http://push.test", "key", &fakeRegistry{}, testLogger()),
		MapWidgetKey: "widget-key-123",
	})

	token, err := authSvc.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	return &harness{
		srv:     srv,
		router:  srv.Router(),
		farms:   farms,
		storage: storage,
		mock:    mock,
		token:   token,
	}
}

func (h *harness) do(t *testing.T, method, target string, body io.Reader, contentType string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) doJSON(t *testing.T, method, target string, payload any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return h.do(t, method, target, body, "application/json", authed)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.doJSON(t, http.MethodPost, "/api/login",
		map[string]string{"username": "admin", "password": "secret"}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	rec = h.doJSON(t, http.MethodPost, "/api/login",
		map[string]string{"username": "admin", "password": "wrong"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientConfig_NoAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/client-config", nil, "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "widget-key-123", resp["map_widget_key"])
}

func TestRequireAuth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/farms", nil, "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/farms", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListFarms_ServesCacheSnapshot(t *testing.T) {
	h := newHarness(t)
	h.farms.rows = []models.Farm{{ID: "f1", Name: "La Esperanza"}}

	// The first read triggers the background fetch and reports loading.
	rec := h.do(t, http.MethodGet, "/api/farms", nil, "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		rec := h.do(t, http.MethodGet, "/api/farms", nil, "", true)
		if rec.Code != http.StatusOK {
			return false
		}
		var body listBody[models.Farm]
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			return false
		}
		return len(body.Data) == 1 && body.Data[0].Name == "La Esperanza" && !body.Loading
	}, time.Second, 5*time.Millisecond)
}

// The recorder-driven tests never cancel the request context, so this
// one goes through a real server: the context dies the moment each
// response is written, and the background fetch must still complete.
func TestListFarms_LoadsThroughRealServer(t *testing.T) {
	h := newHarness(t)
	h.farms.rows = []models.Farm{{ID: "f1", Name: "La Esperanza"}}
	h.farms.selectDelay = 5 * time.Millisecond

	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	get := func() listBody[models.Farm] {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/farms", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+h.token)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body listBody[models.Farm]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	first := get()
	assert.True(t, first.Loading)

	require.Eventually(t, func() bool {
		b := get()
		return !b.Loading && b.Error == "" && len(b.Data) == 1 && b.Data[0].Name == "La Esperanza"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateFarm(t *testing.T) {
	h := newHarness(t)

	rec := h.doJSON(t, http.MethodPost, "/api/farms",
		models.Farm{Name: "Santa Rosa", RUC: "80012345-6", CityID: "c1"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, h.farms.inserted, 1)
	assert.Equal(t, "Santa Rosa", h.farms.inserted[0].Name)
}

func TestCreateFarm_RemoteFailure(t *testing.T) {
	h := newHarness(t)
	h.farms.insertErr = common.NewRemoteError("ruc already registered", errors.New("duplicate key"))

	rec := h.doJSON(t, http.MethodPost, "/api/farms", models.Farm{Name: "Dup"}, true)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ruc already registered", body.Error)

	// The request-scoped modal was released, so a retry is not blocked.
	h.farms.insertErr = nil
	rec = h.doJSON(t, http.MethodPost, "/api/farms", models.Farm{Name: "Retry"}, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUpdateFarm_BodyIDMustMatchURL(t *testing.T) {
	h := newHarness(t)

	rec := h.doJSON(t, http.MethodPut, "/api/farms/f1", models.Farm{ID: "f2", Name: "Wrong"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "id", body.Field)
	assert.Empty(t, h.farms.updated, "mismatched update must not reach the store")

	rec = h.doJSON(t, http.MethodPut, "/api/farms/f1", models.Farm{ID: "f1", Name: "Right"}, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, h.farms.updated, 1)
	assert.Equal(t, "Right", h.farms.updated[0].Name)
}

func TestUpdateFarm_NotFoundMapsTo404(t *testing.T) {
	h := newHarness(t)
	h.farms.updateErr = common.NewRemoteError("farm missing", common.ErrNotFound)

	rec := h.doJSON(t, http.MethodPut, "/api/farms/f9", models.Farm{ID: "f9", Name: "Ghost"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteFarm(t *testing.T) {
	h := newHarness(t)
	h.farms.rows = []models.Farm{{ID: "f1", Name: "La Esperanza"}}

	rec := h.do(t, http.MethodDelete, "/api/farms/f1", nil, "", true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"f1"}, h.farms.deleted)
}

func TestVoucherUpload(t *testing.T) {
	h := newHarness(t)

	body, ct := multipartBody(t, nil, "voucher", "factura.pdf", "pdf-bytes")
	rec := h.do(t, http.MethodPost, "/api/uploads/vouchers", body, ct, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Key, "vouchers/"))
	assert.True(t, strings.HasSuffix(resp.Key, "-factura.pdf"))
	assert.Equal(t, "https://files.test/"+resp.Key, resp.URL)
	assert.Equal(t, 1, h.storage.count())
}

func TestVoucherLink(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/uploads/vouchers/link?key=vouchers/2026/01/02/x-factura.pdf", nil, "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://files.test/vouchers/2026/01/02/x-factura.pdf?signed=1", resp.URL)

	rec = h.do(t, http.MethodGet, "/api/uploads/vouchers/link", nil, "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoucherUpload_MissingFile(t *testing.T) {
	h := newHarness(t)

	body, ct := multipartBody(t, map[string]string{"note": "x"}, "", "", "")
	rec := h.do(t, http.MethodPost, "/api/uploads/vouchers", body, ct, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddExpense(t *testing.T) {
	h := newHarness(t)
	h.mock.ExpectQuery("INSERT INTO expense_lines").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("e1"))

	fields := map[string]string{"amount": "100.50", "document_number": "001-001-0000123"}
	body, ct := multipartBody(t, fields, "voucher", "ticket.jpg", "jpeg-bytes")
	rec := h.do(t, http.MethodPost, "/api/servicios/s1/expenses", body, ct, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var line models.ExpenseLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))
	assert.Equal(t, "e1", line.ID)
	assert.Equal(t, "s1", line.ServicioID)
	assert.Equal(t, "100.5", line.Amount.String())
	assert.NotEmpty(t, line.VoucherURL)

	assert.Equal(t, 1, h.storage.count())
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestAddExpense_ValidationSkipsUploadAndInsert(t *testing.T) {
	h := newHarness(t)

	fields := map[string]string{"amount": "not-a-number", "document_number": "001"}
	body, ct := multipartBody(t, fields, "voucher", "ticket.jpg", "jpeg-bytes")
	rec := h.do(t, http.MethodPost, "/api/servicios/s1/expenses", body, ct, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, h.storage.count())
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestAddExpense_UploadFailureSkipsInsert(t *testing.T) {
	h := newHarness(t)
	h.storage.uploadErr = errors.New("bucket unavailable")

	fields := map[string]string{"amount": "25.00", "document_number": "002"}
	body, ct := multipartBody(t, fields, "voucher", "ticket.jpg", "jpeg-bytes")
	rec := h.do(t, http.MethodPost, "/api/servicios/s1/expenses", body, ct, true)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestListExpenses_Total(t *testing.T) {
	h := newHarness(t)
	rows := sqlmock.NewRows([]string{"id", "servicio_id", "amount", "document_number", "voucher_url"}).
		AddRow("e1", "s1", "100.50", "001", "https://files.test/v1").
		AddRow("e2", "s1", "49.50", "002", "")
	h.mock.ExpectQuery("SELECT id, servicio_id, amount, document_number, voucher_url").
		WithArgs("s1").WillReturnRows(rows)

	rec := h.do(t, http.MethodGet, "/api/servicios/s1/expenses", nil, "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Lines []models.ExpenseLine `json:"lines"`
		Total string               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "150", resp.Total)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestRegisterDevice(t *testing.T) {
	h := newHarness(t)

	rec := h.doJSON(t, http.MethodPost, "/api/devices",
		map[string]string{"token": "tok-1", "platform": "android"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var dt models.DeviceToken
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dt))
	assert.Equal(t, "tok-1", dt.Token)
}
