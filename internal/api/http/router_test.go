package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/api/http/handlers"
	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/notify"
	"github.com/campusvoice/complaint-service/internal/observability"
	"github.com/campusvoice/complaint-service/internal/repository/repotest"
	"github.com/campusvoice/complaint-service/internal/service"
	"github.com/campusvoice/complaint-service/internal/storage"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type apiFixture struct {
	app     *fiber.App
	store   *repotest.Store
	metrics *observability.Metrics
}

func newAPIFixture(t *testing.T, redisErr error) *apiFixture {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{Name: "complaint-service", Env: "development", PublicURL: "http://campus.test"},
		Auth: config.AuthConfig{
			JWTSecret:               "router-test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
		Storage: config.StorageConfig{
			MediaDir:       t.TempDir(),
			PublicBaseURL:  "http://campus.test/media",
			MaxFiles:       5,
			MaxFileSizeMiB: 1,
		},
	}
	store := repotest.NewStore()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, notify.NewLogNotifier(logger), store.Users(), logger, cfg.App).RegisterHandlers()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	revocations := auth.NewMemoryRevocationList()
	files := storage.NewLocalStore(cfg.Storage)

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          store.Users(),
		PasswordResetRepo: store.Resets(),
		TokenManager:      tokens,
		Revocations:       revocations,
		Notifier:          notify.NewLogNotifier(logger),
		Logger:            logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:  store.Complaints(),
		AttachmentRepo: store.Attachments(),
		ResponseRepo:   store.Responses(),
		DepartmentRepo: store.Departments(),
		Files:          files,
		Dispatcher:     dispatcher,
		Logger:         logger,
		MaxFiles:       cfg.Storage.MaxFiles,
	})
	responseService := service.NewResponseService(service.ResponseDependencies{
		ComplaintRepo: store.Complaints(),
		ResponseRepo:  store.Responses(),
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	adminService := service.NewAdminService(cfg, service.AdminDependencies{
		DepartmentRepo: store.Departments(),
		UserRepo:       store.Users(),
	})

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, "test", map[string]handlers.Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{err: redisErr},
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService, responseService),
		Admin:          handlers.NewAdminHandler(adminService),
		Chatbot:        handlers.NewChatbotHandler(service.NewChatbotService(store.Sessions())),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users(), revocations, logger),
		MediaDir:       cfg.Storage.MediaDir,
	})
	return &apiFixture{app: app, store: store, metrics: metrics}
}

type apiResponse struct {
	Status int
	Body   map[string]any
}

func (r apiResponse) data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r apiResponse) list() []any {
	items, _ := r.Body["data"].([]any)
	return items
}

func (r apiResponse) errorCode() string {
	errBody, _ := r.Body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func (f *apiFixture) send(t *testing.T, req *http.Request, token string) apiResponse {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := apiResponse{Status: resp.StatusCode, Body: map[string]any{}}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func (f *apiFixture) call(t *testing.T, method, path, token string, body any) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(t, req, token)
}

// account inserts a user directly and logs in through the API.
func (f *apiFixture) account(t *testing.T, username string, role domain.Role, deptID *string) string {
	t.Helper()
	hash, err := auth.HashPassword("password123", 4)
	require.NoError(t, err)
	user := &domain.User{
		Username:     username,
		Email:        username + "@campus.test",
		Name:         username,
		PasswordHash: hash,
		Role:         role,
		DepartmentID: deptID,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	resp := f.call(t, http.MethodPost, "/auth/login", "", map[string]any{"username": username, "password": "password123"})
	require.Equal(t, http.StatusOK, resp.Status)
	return resp.data()["token"].(string)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.call(t, http.MethodPost, "/auth/register", "", map[string]any{
		"username":         "alice",
		"email":            "Alice@Campus.test",
		"name":             "Alice",
		"gpa":              3.5,
		"password":         "password123",
		"password_confirm": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "/student", resp.data()["dashboard_path"])
	token := resp.data()["token"].(string)

	me := f.call(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Status)
	user := me.data()["user"].(map[string]any)
	assert.Equal(t, "alice@campus.test", user["email"])
	assert.Equal(t, "Student", user["role"])

	dup := f.call(t, http.MethodPost, "/auth/register", "", map[string]any{
		"username":         "alice",
		"email":            "other@campus.test",
		"name":             "Other",
		"password":         "password123",
		"password_confirm": "password123",
	})
	assert.Equal(t, http.StatusConflict, dup.Status)
	assert.Equal(t, "CONFLICT", dup.errorCode())
}

func TestRegisterValidationDetails(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.call(t, http.MethodPost, "/auth/register", "", map[string]any{
		"username":         "bob",
		"email":            "not-an-email",
		"name":             "Bob",
		"gpa":              5,
		"password":         "short",
		"password_confirm": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())
	details := resp.Body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "lte", details["gpa"])
	assert.Equal(t, "min", details["password"])
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.account(t, "carol", domain.RoleStudent, nil)

	resp := f.call(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.Status)

	me := f.call(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, me.Status)
}

func TestRoleGuards(t *testing.T) {
	f := newAPIFixture(t, nil)
	student := f.account(t, "dave", domain.RoleStudent, nil)
	gm := f.account(t, "gm", domain.RoleGeneralManager, nil)

	assert.Equal(t, http.StatusUnauthorized, f.call(t, http.MethodGet, "/general/complaints", "", nil).Status)
	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodGet, "/general/complaints", student, nil).Status)
	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodPost, "/admin/departments", student, map[string]any{"name": "IT"}).Status)
	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodPost, "/complaints", gm, map[string]any{
		"type": "Complaint", "title": "t", "description": "d",
	}).Status)
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/general/complaints", gm, nil).Status)
}

func submitMultipart(t *testing.T, f *apiFixture, token string) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("type", "Complaint"))
	require.NoError(t, writer.WriteField("title", "Broken heater"))
	require.NoError(t, writer.WriteField("description", "Room 101 is freezing"))
	part, err := writer.CreateFormFile("files", "photo.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("evidence"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/complaints", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return f.send(t, req, token)
}

func TestComplaintWorkflowEndToEnd(t *testing.T) {
	f := newAPIFixture(t, nil)
	gm := f.account(t, "gm", domain.RoleGeneralManager, nil)

	deptResp := f.call(t, http.MethodPost, "/admin/departments", gm, map[string]any{"name": "Facilities"})
	require.Equal(t, http.StatusCreated, deptResp.Status)
	deptID := deptResp.data()["id"].(string)

	dm := f.account(t, "facilities", domain.RoleDepartmentManager, &deptID)
	student := f.account(t, "erin", domain.RoleStudent, nil)

	submitted := submitMultipart(t, f, student)
	require.Equal(t, http.StatusCreated, submitted.Status)
	complaintID := submitted.data()["id"].(string)
	code := submitted.data()["tracking_code"].(string)
	assert.Equal(t, "Pending", submitted.data()["status"])
	assert.Len(t, code, 12)
	assert.Equal(t, true, submitted.Body["notification"].(map[string]any)["delivered"])

	detail := f.call(t, http.MethodGet, "/general/complaints/"+complaintID, gm, nil)
	require.Equal(t, http.StatusOK, detail.Status)
	attachments := detail.data()["attachments"].([]any)
	require.Len(t, attachments, 1)
	assert.Equal(t, "photo.txt", attachments[0].(map[string]any)["file_name"])

	// Responding before assignment is rejected.
	early := f.call(t, http.MethodPost, "/department/complaints/"+complaintID+"/responses", dm, map[string]any{"message": "on it"})
	assert.Equal(t, http.StatusForbidden, early.Status)

	assigned := f.call(t, http.MethodPost, "/general/complaints/"+complaintID+"/assign", gm, map[string]any{"department_id": deptID})
	require.Equal(t, http.StatusOK, assigned.Status)
	assert.Equal(t, "In Review", assigned.data()["status"])

	listed := f.call(t, http.MethodGet, "/department/complaints", dm, nil)
	require.Equal(t, http.StatusOK, listed.Status)
	assert.Len(t, listed.list(), 1)

	responded := f.call(t, http.MethodPost, "/department/complaints/"+complaintID+"/responses", dm, map[string]any{"message": "Heater replaced"})
	require.Equal(t, http.StatusCreated, responded.Status)
	responseID := responded.data()["response"].(map[string]any)["id"].(string)
	assert.Equal(t, "Resolved", responded.data()["complaint"].(map[string]any)["status"])

	tracked := f.call(t, http.MethodGet, "/track/"+code, "", nil)
	require.Equal(t, http.StatusOK, tracked.Status)
	assert.Equal(t, "Resolved", tracked.data()["status"])
	assert.Empty(t, tracked.data()["responses"])

	hidden := f.call(t, http.MethodGet, "/general/responses?visible=false", gm, nil)
	require.Equal(t, http.StatusOK, hidden.Status)
	assert.Len(t, hidden.list(), 1)

	published := f.call(t, http.MethodPost, "/general/responses/"+responseID+"/visibility", gm, map[string]any{"visible": true})
	require.Equal(t, http.StatusOK, published.Status)
	assert.Equal(t, true, published.Body["changed"])
	assert.NotNil(t, published.data()["published_at"])

	again := f.call(t, http.MethodPost, "/general/responses/"+responseID+"/visibility", gm, map[string]any{"visible": true})
	require.Equal(t, http.StatusOK, again.Status)
	assert.Equal(t, false, again.Body["changed"])
	assert.NotContains(t, again.Body, "notification")

	tracked = f.call(t, http.MethodGet, "/track/"+code, "", nil)
	require.Len(t, tracked.data()["responses"], 1)

	own := f.call(t, http.MethodGet, "/student/complaints/"+complaintID, student, nil)
	require.Equal(t, http.StatusOK, own.Status)
	responses := own.data()["responses"].([]any)
	require.Len(t, responses, 1)
	assert.NotContains(t, responses[0].(map[string]any), "sender_id")
}

func TestComplaintQueryValidation(t *testing.T) {
	f := newAPIFixture(t, nil)
	gm := f.account(t, "gm", domain.RoleGeneralManager, nil)

	resp := f.call(t, http.MethodGet, "/general/complaints?status=Closed", gm, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = f.call(t, http.MethodGet, "/general/complaints?created_from=yesterday", gm, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestVisibilityRequiresFlag(t *testing.T) {
	f := newAPIFixture(t, nil)
	gm := f.account(t, "gm", domain.RoleGeneralManager, nil)

	resp := f.call(t, http.MethodPost, "/general/responses/missing/visibility", gm, map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.Status)
	details := resp.Body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "required", details["visible"])
}

func TestAdminUserManagement(t *testing.T) {
	f := newAPIFixture(t, nil)
	gm := f.account(t, "gm", domain.RoleGeneralManager, nil)

	dept := f.call(t, http.MethodPost, "/admin/departments", gm, map[string]any{"name": "Library"})
	require.Equal(t, http.StatusCreated, dept.Status)
	deptID := dept.data()["id"].(string)

	noDept := f.call(t, http.MethodPost, "/admin/users", gm, map[string]any{
		"username": "lib1", "email": "lib1@campus.test", "password": "password123", "role": "DepartmentManager",
	})
	assert.Equal(t, http.StatusBadRequest, noDept.Status)

	created := f.call(t, http.MethodPost, "/admin/users", gm, map[string]any{
		"username": "lib1", "email": "lib1@campus.test", "password": "password123",
		"role": "DepartmentManager", "department_id": deptID, "gpa": 3.9,
	})
	require.Equal(t, http.StatusCreated, created.Status)
	assert.Nil(t, created.data()["gpa"])

	second := f.call(t, http.MethodPost, "/admin/users", gm, map[string]any{
		"username": "lib2", "email": "lib2@campus.test", "password": "password123",
		"role": "DepartmentManager", "department_id": deptID,
	})
	assert.Equal(t, http.StatusConflict, second.Status)

	listed := f.call(t, http.MethodGet, "/admin/users?role=DepartmentManager", gm, nil)
	require.Equal(t, http.StatusOK, listed.Status)
	assert.Len(t, listed.list(), 1)

	badRole := f.call(t, http.MethodGet, "/admin/users?role=Janitor", gm, nil)
	assert.Equal(t, http.StatusBadRequest, badRole.Status)

	gmUser, err := f.store.Users().GetByUsername(context.Background(), "gm")
	require.NoError(t, err)
	del := f.call(t, http.MethodDelete, "/admin/users/"+gmUser.ID, gm, nil)
	assert.Equal(t, http.StatusForbidden, del.Status)

	userID := created.data()["id"].(string)
	assert.Equal(t, http.StatusNoContent, f.call(t, http.MethodDelete, "/admin/users/"+userID, gm, nil).Status)
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, "/admin/users/"+userID, gm, nil).Status)
}

func TestChatbotSessions(t *testing.T) {
	f := newAPIFixture(t, nil)
	student := f.account(t, "frank", domain.RoleStudent, nil)

	started := f.call(t, http.MethodPost, "/chatbot/sessions", student, nil)
	require.Equal(t, http.StatusCreated, started.Status)
	id := started.data()["id"].(string)
	assert.Equal(t, true, started.data()["active"])

	ended := f.call(t, http.MethodPost, "/chatbot/sessions/"+id+"/end", student, nil)
	require.Equal(t, http.StatusOK, ended.Status)
	assert.Equal(t, false, ended.data()["active"])

	touched := f.call(t, http.MethodPost, "/chatbot/sessions/"+id+"/touch", student, nil)
	assert.Equal(t, http.StatusConflict, touched.Status)

	listed := f.call(t, http.MethodGet, "/chatbot/sessions", student, nil)
	assert.Len(t, listed.list(), 1)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.account(t, "gina", domain.RoleStudent, nil)

	unknown := f.call(t, http.MethodPost, "/auth/password/reset/request", "", map[string]any{"email": "nobody@campus.test"})
	require.Equal(t, http.StatusAccepted, unknown.Status)
	assert.NotContains(t, unknown.data(), "token")

	issued := f.call(t, http.MethodPost, "/auth/password/reset/request", "", map[string]any{"email": "gina@campus.test"})
	require.Equal(t, http.StatusAccepted, issued.Status)
	token := issued.data()["token"].(string)

	confirm := f.call(t, http.MethodPost, "/auth/password/reset/confirm", "", map[string]any{"token": token, "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, confirm.Status)

	reused := f.call(t, http.MethodPost, "/auth/password/reset/confirm", "", map[string]any{"token": token, "new_password": "another-pass"})
	assert.Equal(t, http.StatusBadRequest, reused.Status)

	login := f.call(t, http.MethodPost, "/auth/login", "", map[string]any{"username": "gina", "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, login.Status)
}

func TestTrackingUnknownCodeAndUnknownRoute(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.call(t, http.MethodGet, "/track/NOPE00000000", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())

	resp = f.call(t, http.MethodGet, "/no/such/route", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())

	assert.NotEmpty(t, f.metrics.Snapshot().Errors)
}

func TestHealthChecks(t *testing.T) {
	healthy := newAPIFixture(t, nil)
	assert.Equal(t, http.StatusOK, healthy.call(t, http.MethodGet, "/health/live", "", nil).Status)
	assert.Equal(t, http.StatusOK, healthy.call(t, http.MethodGet, "/health/ready", "", nil).Status)

	degraded := newAPIFixture(t, errors.New("connection refused"))
	resp := degraded.call(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", resp.errorCode())
}
