package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Veein-web/AI-Background-Remover/internal/billing"
	"github.com/Veein-web/AI-Background-Remover/internal/config"
	"github.com/Veein-web/AI-Background-Remover/internal/flash"
	"github.com/Veein-web/AI-Background-Remover/internal/middleware"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/oauth"
	"github.com/Veein-web/AI-Background-Remover/internal/security"
	"github.com/Veein-web/AI-Background-Remover/internal/service"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
	"github.com/Veein-web/AI-Background-Remover/internal/web"
)

const (
	testSecret = "handler-secret"
	testNonce  = "nonce-1"
	goodToken  = "session-ok"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testUser = models.User{ID: "u-1", Email: "ada@example.com", DisplayName: "Ada", Credits: 1}

type stubAuth struct {
	mu        sync.Mutex
	loggedOut []string
	signupErr error
	loginErr  error
	federated oauth.Identity
	created   bool
	sessions  int
}

func (s *stubAuth) Resolve(ctx context.Context, token string) (service.Principal, error) {
	if token != goodToken {
		return service.Principal{}, service.ErrSessionInvalid
	}
	return service.Principal{User: testUser, SessionID: "s-1"}, nil
}

func (s *stubAuth) Signup(ctx context.Context, input service.SignupInput) (models.User, error) {
	return testUser, s.signupErr
}

func (s *stubAuth) Login(ctx context.Context, input service.LoginInput) (models.User, error) {
	if s.loginErr != nil {
		return models.User{}, s.loginErr
	}
	return testUser, nil
}

func (s *stubAuth) FederatedLogin(ctx context.Context, identity oauth.Identity) (models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.federated = identity
	return testUser, s.created, nil
}

func (s *stubAuth) StartSession(ctx context.Context, user models.User, meta service.SessionMeta) (service.SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions++
	return service.SessionToken{Value: goodToken}, nil
}

func (s *stubAuth) Logout(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = append(s.loggedOut, sessionID)
	return nil
}

type stubImages struct {
	err      error
	filename string
	data     []byte
}

func (s *stubImages) Process(ctx context.Context, owner models.User, filename string, data []byte) (service.ProcessResult, error) {
	s.filename, s.data = filename, data
	if s.err != nil {
		return service.ProcessResult{}, s.err
	}
	return service.ProcessResult{
		Image: models.Image{OriginalName: "photo.png", ProcessedName: "photo_processed.png", Width: 4, Height: 4},
		Tiers: billing.Tiers(),
	}, nil
}

func (s *stubImages) Recent(ctx context.Context, owner models.User, limit int) ([]models.Image, error) {
	return nil, nil
}

type stubDelivery struct {
	err error
}

func (s stubDelivery) Download(ctx context.Context, account models.User, processedName, tierKey string) (service.Delivery, error) {
	if s.err != nil {
		return service.Delivery{}, s.err
	}
	tier, _ := billing.Lookup(tierKey)
	return service.Delivery{
		Filename: "photo_" + tierKey + ".png",
		Data:     []byte("\x89PNG fake"),
		Tier:     tier,
		Charged:  tier.Cost,
		Balance:  account.Credits - tier.Cost,
	}, nil
}

type stubProvider struct {
	err error
}

func (stubProvider) Name() string { return "google" }

func (stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p stubProvider) Exchange(ctx context.Context, code string) (oauth.Identity, error) {
	if p.err != nil {
		return oauth.Identity{}, p.err
	}
	return oauth.Identity{Email: "grace@example.com", Name: "Grace", Verified: true}, nil
}

type memoryStates struct {
	mu     sync.Mutex
	issued map[string]bool
}

func (m *memoryStates) Issue(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued["state-1"] = true
	return "state-1", nil
}

func (m *memoryStates) Consume(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.issued[state] {
		return oauth.ErrStateMismatch
	}
	delete(m.issued, state)
	return nil
}

type fixture struct {
	engine   *gin.Engine
	auth     *stubAuth
	images   *stubImages
	delivery *stubDelivery
	area     *staging.FSArea
	provider *stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	area, err := staging.NewFSArea(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		auth:     &stubAuth{},
		images:   &stubImages{},
		delivery: &stubDelivery{},
		area:     area,
		provider: &stubProvider{},
	}

	cfg := &config.AppConfig{Environment: "test"}
	cfg.Security.SessionSecret = testSecret

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	NewHandlerSet(Deps{
		Log:      zerolog.Nop(),
		Config:   cfg,
		Auth:     f.auth,
		Images:   f.images,
		Delivery: f.delivery,
		Area:     area,
		Google:   f.provider,
		States:   &memoryStates{issued: map[string]bool{}},
		Checks: []HealthCheck{
			{Name: "database", Ping: func(ctx context.Context) error { return nil }},
		},
	}).Register(engine)
	f.engine = engine
	return f
}

func (f *fixture) do(req *http.Request, loggedIn bool) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: "csrf_nonce", Value: testNonce})
	if loggedIn {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: goodToken})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func formRequest(path string, values url.Values) *http.Request {
	values.Set(middleware.CSRFField, security.CSRFToken(testSecret, testNonce))
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte, withFile bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(middleware.CSRFField, security.CSRFToken(testSecret, testNonce)))
	if withFile {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/remove", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func flashText(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var value string
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.Value != "" {
			value = c.Value
		}
	}
	if value == "" {
		return ""
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: "flash", Value: value})

	var texts []string
	for _, m := range flash.Pop(c) {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, "\n")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
