package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/utils"
	"github.com/openstay/reservstack/services/parser"
)

type stubScheduler struct {
	running    bool
	created    int
	triggerErr error
	sweepErr   error
}

func (s *stubScheduler) Start(ctx context.Context) error { return nil }
func (s *stubScheduler) Stop() error                     { return nil }
func (s *stubScheduler) Running() bool                   { return s.running }

func (s *stubScheduler) TriggerTenant(ctx context.Context, tenant string) (int, error) {
	return s.created, s.triggerErr
}

func (s *stubScheduler) TriggerAll(ctx context.Context) error { return s.sweepErr }

type stubSettingsRepository struct {
	settings *models.TenantMailSettings
	err      error
}

func (s *stubSettingsRepository) GetByTenant(ctx context.Context, tenant string) (*models.TenantMailSettings, error) {
	return s.settings, s.err
}

func (s *stubSettingsRepository) GetAll(ctx context.Context) ([]*models.TenantMailSettings, error) {
	return nil, nil
}

func tenantMiddleware(tenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithCustomContext(c.Request.Context(), &utils.CustomContext{Tenant: tenant})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func testEmailParser() *parser.ReservationEmailParser {
	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "debug"})
	appLogger.InitLogger()
	return parser.NewReservationEmailParser(appLogger)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", HealthCheck)

	w := perform(r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/status", Status(&stubScheduler{running: true}))

	w := perform(r, http.MethodGet, "/status", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["scheduler_running"])
}

func TestParseReservation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/parse", ParseReservation(testEmailParser()))

	payload := map[string]string{
		"text": "Recibiste una nueva reserva de Booking.com\n" +
			"Reserva: 6057955462\n" +
			"Titular: Nastassia Yankouskaya\n" +
			"Check in: 17/11/2025\n" +
			"Check out: 21/11/2025\n" +
			"Total: COP 186600\n",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	w := perform(r, http.MethodPost, "/parse", string(raw))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["parsed"])

	reservation, ok := body["reservation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "6057955462", reservation["ReservationCode"])
	assert.Equal(t, "Nastassia Yankouskaya", reservation["GuestName"])
}

func TestParseReservationRejectsMissingText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/parse", ParseReservation(testEmailParser()))

	w := perform(r, http.MethodPost, "/parse", `{"html": "<p>hi</p>"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseReservationUnparseable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/parse", ParseReservation(testEmailParser()))

	w := perform(r, http.MethodPost, "/parse", `{"text": "weekly newsletter"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["parsed"])
}

func TestTriggerTenantCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/email-check", tenantMiddleware("lafamilia"), TriggerTenantCheck(&stubScheduler{created: 2}))

	w := perform(r, http.MethodPost, "/email-check", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "lafamilia", body["tenant"])
	assert.Equal(t, float64(2), body["created"])
}

func TestTriggerTenantCheckMissingTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/email-check", TriggerTenantCheck(&stubScheduler{created: 2}))

	w := perform(r, http.MethodPost, "/email-check", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerTenantCheckFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/email-check", tenantMiddleware("lafamilia"),
		TriggerTenantCheck(&stubScheduler{triggerErr: errors.New("imap unreachable")}))

	w := perform(r, http.MethodPost, "/email-check", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTriggerAllCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/email-check", TriggerAllCheck(&stubScheduler{}))

	w := perform(r, http.MethodPost, "/email-check", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEmailStatusUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/email-status", tenantMiddleware("lafamilia"),
		EmailStatus(&stubScheduler{running: true}, &stubSettingsRepository{}))

	w := perform(r, http.MethodGet, "/email-status", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["configured"])
	assert.Equal(t, true, body["scheduler_running"])
}

func TestEmailStatusDoesNotLeakCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	settings := &models.TenantMailSettings{
		Tenant:       "lafamilia",
		Enabled:      true,
		ImapHost:     "imap.example.com",
		ImapUsername: "reservas@lafamiliahostel.com",
		ImapPassword: "hunter2",
	}
	r.GET("/email-status", tenantMiddleware("lafamilia"),
		EmailStatus(&stubScheduler{}, &stubSettingsRepository{settings: settings}))

	w := perform(r, http.MethodGet, "/email-status", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, "imap.example.com", body["host"])
	assert.Equal(t, float64(143), body["port"])

	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "reservas@lafamiliahostel.com")
}
