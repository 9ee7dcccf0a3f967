package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/parolevive/backend/internal/config"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	return nil
}

func (f *fakeObjectStore) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	f.deleted = append(f.deleted, objectName)
	return nil
}

func (f *fakeObjectStore) PublicURL(objectName string) string {
	return "http://storage.test/media/" + objectName
}

func (f *fakeObjectStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeObjectStore) deletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

type fakeMessageSender struct {
	mu         sync.Mutex
	messages   []*messaging.Message
	subscribed []string
}

func (f *fakeMessageSender) Send(_ context.Context, message *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return "fake-message-id", nil
}

func (f *fakeMessageSender) SubscribeToTopic(_ context.Context, tokens []string, _ string) (*messaging.TopicManagementResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, tokens...)
	return &messaging.TopicManagementResponse{SuccessCount: len(tokens)}, nil
}

func (f *fakeMessageSender) sent() []*messaging.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*messaging.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailSender struct {
	mu     sync.Mutex
	emails []sentEmail
	fail   bool
}

func (f *fakeEmailSender) SendEmail(to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.emails = append(f.emails, sentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (f *fakeEmailSender) sentEmails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEmail, len(f.emails))
	copy(out, f.emails)
	return out
}

func (f *fakeEmailSender) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	store  *fakeObjectStore
	sender *fakeMessageSender
	mail   *fakeEmailSender
	push   *services.PushService

	pushOnce sync.Once
}

// flushPush stops the push queue worker after draining it, so tests can
// assert on delivered broadcasts.
func (e *testEnv) flushPush() {
	e.pushOnce.Do(e.push.Close)
}

type testEnvOptions struct {
	invitePolicy config.InviteEmailPolicy
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	return newTestEnv(t, testEnvOptions{})
}

func newTestEnv(t *testing.T, opts testEnvOptions) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Audio{},
		&models.Sermon{},
		&models.Event{},
		&models.Post{},
		&models.Donation{},
		&models.LiveSetting{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	store := newFakeObjectStore()
	sender := &fakeMessageSender{}
	mailSender := &fakeEmailSender{}

	pushService := services.NewPushService(sender, "all_users")
	mailService := services.NewMailService(mailSender, "http://localhost:3001")
	statsService := services.NewStatsService(db)

	invitePolicy := opts.invitePolicy
	if invitePolicy == "" {
		invitePolicy = config.InvitePolicyContinue
	}
	inviteCfg := config.InviteConfig{
		TokenTTL:    168 * time.Hour,
		EmailPolicy: invitePolicy,
	}

	authHandler := NewAuthHandler(db, pushService)
	usersHandler := NewUsersHandler(db, mailService, inviteCfg)
	audiosHandler := NewAudiosHandler(db, store, pushService)
	sermonsHandler := NewSermonsHandler(db, store, pushService)
	eventsHandler := NewEventsHandler(db, store, pushService)
	postsHandler := NewPostsHandler(db, store, pushService)
	donationsHandler := NewDonationsHandler(db)
	liveHandler := NewLiveHandler(db, pushService)
	statsHandler := NewStatsHandler(statsService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3001"))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/reset-password", authHandler.ResetPassword)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Put("/fcm-token", authMiddleware.RequireAuth, authHandler.UpdateFCMToken)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Post("/invite", usersHandler.Invite)
	userRoutes.Post("/:id/resend-invite", usersHandler.ResendInvite)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id/role", usersHandler.UpdateRole)
	userRoutes.Delete("/:id", usersHandler.Delete)

	audioRoutes := api.Group("/audios")
	audioRoutes.Get("/", audiosHandler.List)
	audioRoutes.Get("/:id", audiosHandler.Get)
	audioRoutes.Post("/:id/play", audiosHandler.IncrementPlays)
	audioRoutes.Post("/:id/download", audiosHandler.IncrementDownloads)
	audioRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, audiosHandler.Create)
	audioRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, audiosHandler.Update)
	audioRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, audiosHandler.Delete)

	sermonRoutes := api.Group("/sermons")
	sermonRoutes.Get("/", sermonsHandler.List)
	sermonRoutes.Get("/:id", sermonsHandler.Get)
	sermonRoutes.Post("/:id/download", sermonsHandler.IncrementDownloads)
	sermonRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, sermonsHandler.Create)
	sermonRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, sermonsHandler.Update)
	sermonRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, sermonsHandler.Delete)

	eventRoutes := api.Group("/events")
	eventRoutes.Get("/", eventsHandler.List)
	eventRoutes.Get("/:id", eventsHandler.Get)
	eventRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, eventsHandler.Create)
	eventRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, eventsHandler.Update)
	eventRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, eventsHandler.Delete)

	postRoutes := api.Group("/posts")
	postRoutes.Get("/", postsHandler.List)
	postRoutes.Get("/:id", postsHandler.Get)
	postRoutes.Post("/:id/like", postsHandler.IncrementLikes)
	postRoutes.Post("/:id/view", postsHandler.IncrementViews)
	postRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, postsHandler.Create)
	postRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, postsHandler.Update)
	postRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, postsHandler.Delete)

	donationRoutes := api.Group("/donations")
	donationRoutes.Post("/", authMiddleware.OptionalAuth, donationsHandler.Create)
	donationRoutes.Get("/mine", authMiddleware.RequireAuth, donationsHandler.Mine)
	donationRoutes.Get("/summary", authMiddleware.RequireAuth, middleware.AdminOnly, donationsHandler.Summary)
	donationRoutes.Get("/", authMiddleware.RequireAuth, middleware.AdminOnly, donationsHandler.List)
	donationRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.AdminOnly, donationsHandler.Delete)

	api.Get("/live", liveHandler.Get)
	api.Put("/live", authMiddleware.RequireAuth, middleware.AdminOnly, liveHandler.Update)

	api.Get("/admin/stats", authMiddleware.RequireAuth, middleware.AdminOnly, statsHandler.Overview)

	env := &testEnv{
		app:    app,
		db:     db,
		store:  store,
		sender: sender,
		mail:   mailSender,
		push:   pushService,
	}
	t.Cleanup(env.flushPush)

	return env
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test User",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

type formFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

func performMultipartRequest(t *testing.T, app *fiber.App, method, path string, fields map[string]string, files []formFile, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field %s: %v", key, err)
		}
	}

	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			`form-data; name="`+file.Field+`"; filename="`+file.Filename+`"`)
		header.Set("Content-Type", file.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed creating form file %s: %v", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			t.Fatalf("failed writing form file %s: %v", file.Field, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	requestHeaders["Content-Type"] = writer.FormDataContentType()

	return performRequest(t, app, method, path, &buf, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
