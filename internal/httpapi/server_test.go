package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"penzi/internal/model"
	"penzi/internal/repository"
	"penzi/internal/service"
	"penzi/internal/sms"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", "#", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.MatchRequest{},
		&model.Match{},
		&model.UserInterest{},
		&model.SmsMessage{},
	))

	users := repository.NewUserRepository(db)
	messages := repository.NewMessageRepository(db)
	matches := repository.NewMatchRepository(db)
	interests := repository.NewInterestRepository(db)
	sender := service.NewSender(messages, "22141")
	registration := service.NewRegistrationService(db, users, sender)
	matching := service.NewMatchService(db, users, matches, sender)
	interest := service.NewInterestService(db, users, interests, sender)
	engine := sms.New(users, messages, matches, interests, sender, registration, matching, interest)

	return NewServer(engine, messages, users).Router([]string{"*"})
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProcessIncomingActivation(t *testing.T) {
	handler := newTestHandler(t)

	body := strings.NewReader(`{"from_phone":"0712345678","message_body":"PENZI"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sms/process-incoming", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		MessageType string `json:"message_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "activation_success", resp.MessageType)
	assert.Contains(t, resp.Message, "Welcome to our dating service")
}

func TestProcessIncomingRejectsBadRequests(t *testing.T) {
	handler := newTestHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing phone", `{"message_body":"PENZI"}`},
		{"missing body", `{"from_phone":"0712345678"}`},
		{"blank fields", `{"from_phone":" ","message_body":" "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sms/process-incoming", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMessagesEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	// One inbound plus one outbound reply.
	body := strings.NewReader(`{"from_phone":"0712345678","message_body":"PENZI"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sms/process-incoming", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/messages?phone=0712345678", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/messages?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	body := strings.NewReader(`{"from_phone":"0712345678","message_body":"PENZI"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sms/process-incoming", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/conversation?phone=0712345678", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/conversation?phone=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/conversation", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	body := strings.NewReader(`{"from_phone":"0712345678","message_body":"PENZI"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sms/process-incoming", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Incoming   int `json:"incoming_messages"`
		Outgoing   int `json:"outgoing_messages"`
		Registered int `json:"registered_users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Incoming)
	assert.Equal(t, 1, resp.Outgoing)
	assert.Equal(t, 0, resp.Registered)
}
