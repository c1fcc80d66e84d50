package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/easypeasy/internal/content"
	"github.com/terraincognita07/easypeasy/internal/db"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/notify"
	"github.com/terraincognita07/easypeasy/internal/realtime"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecretKey = "test-secret-key-0123456789abcdef"

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Email
}

func (notifier *recordingNotifier) Send(_ context.Context, email notify.Email) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.sent = append(notifier.sent, email)
	return nil
}

func (notifier *recordingNotifier) emails() []notify.Email {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return append([]notify.Email(nil), notifier.sent...)
}

type testEnv struct {
	app      *fiber.App
	handler  *Handler
	database *gorm.DB
	notifier *recordingNotifier
	hub      *realtime.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "easypeasy-api-test.db")
	database, err := db.OpenSQLite(databasePath, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	catalog, err := content.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if err := db.NewContentRepository(database).SeedFromCatalog(context.Background(), catalog); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	notifier := &recordingNotifier{}
	hub := realtime.NewHub(nil)
	handler, err := NewHandler(database, Options{
		SecretKey:     testSecretKey,
		Location:      time.UTC,
		PublicBaseURL: "https://easypeasy.test",
		Catalog:       catalog,
		Devices:       localstore.NewMemoryDevices(),
		Broker:        hub,
		Notifier:      notifier,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	t.Cleanup(handler.Close)

	app := fiber.New()
	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return &testEnv{app: app, handler: handler, database: database, notifier: notifier, hub: hub}
}

// testClient keeps cookies between requests the way a browser would.
type testClient struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]string
	headers map[string]string
}

func (env *testEnv) client(t *testing.T) *testClient {
	return &testClient{t: t, env: env, cookies: map[string]string{}, headers: map[string]string{}}
}

type testResponse struct {
	status  int
	body    []byte
	header  http.Header
	cookies []*http.Cookie
}

func (response testResponse) decode(t *testing.T, target any) {
	t.Helper()
	if err := json.Unmarshal(response.body, target); err != nil {
		t.Fatalf("decode response %q: %v", string(response.body), err)
	}
}

func (response testResponse) errorMessage(t *testing.T) string {
	t.Helper()
	payload := map[string]string{}
	response.decode(t, &payload)
	return payload["error"]
}

func (client *testClient) do(method string, path string, payload any) testResponse {
	client.t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			client.t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	request := httptest.NewRequest(method, path, body)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	for name, value := range client.headers {
		request.Header.Set(name, value)
	}
	for name, value := range client.cookies {
		request.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	response, err := client.env.app.Test(request, -1)
	if err != nil {
		client.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		client.t.Fatalf("read body: %v", err)
	}
	for _, cookie := range response.Cookies() {
		if cookie.Value == "" || (!cookie.Expires.IsZero() && cookie.Expires.Before(time.Now())) {
			delete(client.cookies, cookie.Name)
			continue
		}
		client.cookies[cookie.Name] = cookie.Value
	}
	return testResponse{status: response.StatusCode, body: raw, header: response.Header, cookies: response.Cookies()}
}

func (client *testClient) expect(method string, path string, payload any, status int) testResponse {
	client.t.Helper()
	response := client.do(method, path, payload)
	if response.status != status {
		client.t.Fatalf("%s %s: expected status %d, got %d (%s)", method, path, status, response.status, string(response.body))
	}
	return response
}

func (client *testClient) register(email string, password string) models.User {
	client.t.Helper()
	response := client.expect(http.MethodPost, "/api/auth/register", map[string]string{
		"email":            email,
		"password":         password,
		"confirm_password": password,
		"display_name":     "Reader",
	}, http.StatusCreated)

	payload := struct {
		User models.User `json:"user"`
	}{}
	response.decode(client.t, &payload)
	return payload.User
}

func (client *testClient) continueAsGuest() {
	client.t.Helper()
	client.expect(http.MethodPost, "/api/auth/guest", nil, http.StatusOK)
}

func createTestUser(t *testing.T, database *gorm.DB, email string, password string, mustChangePassword bool) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Email:              strings.ToLower(email),
		PasswordHash:       string(hash),
		MustChangePassword: mustChangePassword,
		CreatedAt:          time.Now().UTC(),
	}
	if err := db.NewUserRepository(database).CreateWithProfile(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func extractResetToken(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, "https://easypeasy.test/reset-password?")
	if start < 0 {
		t.Fatalf("reset link not found in %q", body)
	}
	parsed, err := url.Parse(strings.Fields(body[start:])[0])
	if err != nil {
		t.Fatalf("parse reset link: %v", err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatal("reset link has no token")
	}
	return token
}
