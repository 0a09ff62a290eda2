package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusvoice/complaint-service/internal/config"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/repository/repotest"
	"github.com/campusvoice/complaint-service/internal/storage"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) to(addr string) []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMail
	for _, m := range n.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type memoryFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	maxSize int64
	seq     int
}

func newMemoryFiles(maxSize int64) *memoryFiles {
	return &memoryFiles{files: map[string][]byte{}, maxSize: maxSize}
}

func (m *memoryFiles) Save(_ context.Context, folder, filename string, r io.Reader) (storage.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.StoredFile{}, err
	}
	if int64(len(data)) > m.maxSize {
		return storage.StoredFile{}, storage.ErrFileTooLarge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	key := folder + "/" + strings.Repeat("x", m.seq) + "-" + filename
	m.files[key] = data
	return storage.StoredFile{Key: key, URL: m.URL(key), Size: int64(len(data)), MimeType: "text/plain"}, nil
}

func (m *memoryFiles) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *memoryFiles) URL(key string) string { return "http://campus.test/media/" + key }

func (m *memoryFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type recordingCache struct {
	mu          sync.Mutex
	views       map[string]*domain.TrackingView
	invalidated []string
	failGet     error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{views: map[string]*domain.TrackingView{}}
}

func (c *recordingCache) Get(_ context.Context, code string) (*domain.TrackingView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, false, c.failGet
	}
	view, ok := c.views[code]
	return view, ok, nil
}

func (c *recordingCache) Set(_ context.Context, view *domain.TrackingView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.TrackingCode] = view
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, code)
	c.invalidated = append(c.invalidated, code)
	return nil
}

type harness struct {
	cfg        config.Config
	store      *repotest.Store
	notifier   *recordingNotifier
	files      *memoryFiles
	cache      *recordingCache
	complaints *ComplaintService
	responses  *ResponseService
	admin      *AdminService
	auth       *AuthService
	chatbot    *ChatbotService
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{Env: "development", PublicURL: "http://campus.test"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cfg:      testConfig(),
		store:    repotest.NewStore(),
		notifier: &recordingNotifier{},
		files:    newMemoryFiles(1 << 20),
		cache:    newRecordingCache(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, h.notifier, h.store.Users(), nil, h.cfg.App).RegisterHandlers()

	h.complaints = NewComplaintService(ComplaintDependencies{
		ComplaintRepo:  h.store.Complaints(),
		AttachmentRepo: h.store.Attachments(),
		ResponseRepo:   h.store.Responses(),
		DepartmentRepo: h.store.Departments(),
		Files:          h.files,
		Cache:          h.cache,
		Dispatcher:     dispatcher,
		MaxFiles:       5,
	})
	h.responses = NewResponseService(ResponseDependencies{
		ComplaintRepo: h.store.Complaints(),
		ResponseRepo:  h.store.Responses(),
		Cache:         h.cache,
		Dispatcher:    dispatcher,
	})
	h.admin = NewAdminService(h.cfg, AdminDependencies{
		DepartmentRepo: h.store.Departments(),
		UserRepo:       h.store.Users(),
		ComplaintRepo:  h.store.Complaints(),
		Cache:          h.cache,
	})
	h.auth = NewAuthService(h.cfg, AuthDependencies{
		UserRepo:          h.store.Users(),
		PasswordResetRepo: h.store.Resets(),
		Notifier:          h.notifier,
	})
	h.chatbot = NewChatbotService(h.store.Sessions())
	return h
}

func (h *harness) user(t *testing.T, username string, role domain.Role, deptID *string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@campus.test",
		Name:         strings.ToUpper(username[:1]) + username[1:],
		Role:         role,
		DepartmentID: deptID,
	}
	require.NoError(t, h.store.Users().Create(context.Background(), user))
	return user
}

func (h *harness) student(t *testing.T, username string) *domain.User {
	return h.user(t, username, domain.RoleStudent, nil)
}

func (h *harness) generalManager(t *testing.T) *domain.User {
	return h.user(t, "gm", domain.RoleGeneralManager, nil)
}

func (h *harness) department(t *testing.T, name string) *domain.Department {
	t.Helper()
	dept := &domain.Department{Name: name}
	require.NoError(t, h.store.Departments().Create(context.Background(), dept))
	return dept
}

func (h *harness) departmentManager(t *testing.T, username string, dept *domain.Department) *domain.User {
	return h.user(t, username, domain.RoleDepartmentManager, &dept.ID)
}

func (h *harness) submit(t *testing.T, student *domain.User) *domain.Complaint {
	t.Helper()
	result, err := h.complaints.SubmitComplaint(context.Background(), student, SubmitInput{
		Type:        domain.ComplaintTypeComplaint,
		Title:       "Broken projector",
		Description: "Room 101 projector has been broken for a week",
	})
	require.NoError(t, err)
	return result.Complaint
}

func upload(name, content string) Upload {
	return Upload{FileName: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(content))), nil
	}}
}

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, code, domainErr.Code, domainErr.Message)
	return domainErr
}
