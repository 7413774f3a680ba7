package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"homeswitch/config"
	"homeswitch/internal/domain/entity"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPushTokenUsecase struct {
	mock.Mock
}

func (m *mockPushTokenUsecase) RegisterPushToken(ctx context.Context, email string, input *usecase.PushTokenInput) (*entity.PushToken, error) {
	args := m.Called(ctx, email, input)
	token, _ := args.Get(0).(*entity.PushToken)

	return token, args.Error(1)
}

func (m *mockPushTokenUsecase) ActiveTokens(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error) {
	args := m.Called(ctx, userID)
	tokens, _ := args.Get(0).([]*entity.PushToken)

	return tokens, args.Error(1)
}

func (m *mockPushTokenUsecase) DeactivatePushToken(ctx context.Context, email string, tokenID uuid.UUID) error {
	return m.Called(ctx, email, tokenID).Error(0)
}

type mockPushNotifier struct {
	mock.Mock
}

func (m *mockPushNotifier) Send(ctx context.Context, tokens []string, msg *service.PushMessage) (*service.PushReport, error) {
	args := m.Called(ctx, tokens, msg)
	report, _ := args.Get(0).(*service.PushReport)

	return report, args.Error(1)
}

type mockTokenRepo struct {
	mock.Mock
}

func (m *mockTokenRepo) CreatePushToken(ctx context.Context, token *entity.PushToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepo) FindPushTokenByID(ctx context.Context, id uuid.UUID) (*entity.PushToken, error) {
	args := m.Called(ctx, id)
	token, _ := args.Get(0).(*entity.PushToken)

	return token, args.Error(1)
}

func (m *mockTokenRepo) FindPushTokensByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error) {
	args := m.Called(ctx, userID)
	tokens, _ := args.Get(0).([]*entity.PushToken)

	return tokens, args.Error(1)
}

func (m *mockTokenRepo) FindActivePushTokensByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PushToken, error) {
	args := m.Called(ctx, userID)
	tokens, _ := args.Get(0).([]*entity.PushToken)

	return tokens, args.Error(1)
}

func (m *mockTokenRepo) UpdateFCMToken(ctx context.Context, id uuid.UUID, fcmToken string) error {
	return m.Called(ctx, id, fcmToken).Error(0)
}

func (m *mockTokenRepo) DeletePushToken(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type pushFixture struct {
	handler   *PushHandler
	tokens    *mockPushTokenUsecase
	notifier  *mockPushNotifier
	tokenRepo *mockTokenRepo
}

func newPushFixture(t *testing.T) *pushFixture {
	t.Helper()

	f := &pushFixture{
		tokens:    &mockPushTokenUsecase{},
		notifier:  &mockPushNotifier{},
		tokenRepo: &mockTokenRepo{},
	}
	t.Cleanup(func() {
		f.tokens.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
		f.tokenRepo.AssertExpectations(t)
	})

	f.handler = NewPushHandler(PushHandlerParams{
		Config:        &config.Config{},
		Logger:        slog.New(slog.DiscardHandler),
		PushTokenSvc:  f.tokens,
		Notifier:      f.notifier,
		PushTokenRepo: f.tokenRepo,
	})

	return f
}

func (f *pushFixture) push(t *testing.T, body string) int {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, f.handler.HandlePush(e.NewContext(req, rec)))

	return rec.Code
}

func pushBody(t *testing.T, event *service.AlertEvent) string {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var msg PubSubMessage
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.MessageID = "m-1"
	msg.Message.Attributes = map[string]string{"request_id": "req-1"}

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return string(body)
}

func shortCircuitEvent(userID uuid.UUID) *service.AlertEvent {
	return &service.AlertEvent{
		AlertID:   uuid.NewString(),
		UserID:    userID.String(),
		DeviceID:  "C1-kitchen",
		AlertType: string(entity.AlertShortCircuit),
		Message:   "Kitchen tripped",
		CreatedAt: "2025-03-01T12:00:00Z",
	}
}

func TestPushHandler_DeliversAndPrunesRejectedTokens(t *testing.T) {
	f := newPushFixture(t)

	userID := uuid.New()
	phone := &entity.PushToken{ID: uuid.New(), UserID: userID, FCMToken: "phone"}
	tablet := &entity.PushToken{ID: uuid.New(), UserID: userID, FCMToken: "tablet"}
	f.tokens.On("ActiveTokens", mock.Anything, userID).Return([]*entity.PushToken{phone, tablet}, nil)

	f.notifier.On("Send", mock.Anything, []string{"phone", "tablet"}, mock.MatchedBy(func(msg *service.PushMessage) bool {
		return msg.Urgent &&
			msg.Title == entity.AlertShortCircuit.Title() &&
			msg.Body == "Kitchen tripped" &&
			msg.Data["device_id"] == "C1-kitchen"
	})).Return(&service.PushReport{Sent: 1, Failed: 1, Rejected: []string{"tablet"}}, nil)
	f.tokenRepo.On("DeletePushToken", mock.Anything, tablet.ID).Return(nil)

	assert.Equal(t, http.StatusOK, f.push(t, pushBody(t, shortCircuitEvent(userID))))
}

func TestPushHandler_NoInstallations(t *testing.T) {
	f := newPushFixture(t)

	userID := uuid.New()
	f.tokens.On("ActiveTokens", mock.Anything, userID).Return([]*entity.PushToken{}, nil)

	assert.Equal(t, http.StatusOK, f.push(t, pushBody(t, shortCircuitEvent(userID))))
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestPushHandler_RetriesTransientFailures(t *testing.T) {
	f := newPushFixture(t)

	userID := uuid.New()
	f.tokens.On("ActiveTokens", mock.Anything, userID).
		Return([]*entity.PushToken{{ID: uuid.New(), UserID: userID, FCMToken: "phone"}}, nil)
	f.notifier.On("Send", mock.Anything, []string{"phone"}, mock.Anything).
		Return(&service.PushReport{Failed: 1}, errors.New("fcm unavailable"))

	assert.Equal(t, http.StatusServiceUnavailable, f.push(t, pushBody(t, shortCircuitEvent(userID))))
}

func TestPushHandler_MalformedMessages(t *testing.T) {
	f := newPushFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.push(t, `{"message":{"data":"%%%"}}`))

	notJSON := base64.StdEncoding.EncodeToString([]byte("not json"))
	assert.Equal(t, http.StatusBadRequest, f.push(t, `{"message":{"data":"`+notJSON+`"}}`))

	event := shortCircuitEvent(uuid.New())
	event.UserID = "nobody"
	assert.Equal(t, http.StatusOK, f.push(t, pushBody(t, event)))
}

func TestAlertMessage(t *testing.T) {
	msg := alertMessage(&service.AlertEvent{AlertType: string(entity.AlertOffline), Message: "gone"})
	assert.Equal(t, entity.AlertOffline.Title(), msg.Title)
	assert.False(t, msg.Urgent)

	msg = alertMessage(&service.AlertEvent{AlertType: string(entity.AlertOverload), Title: "Custom"})
	assert.Equal(t, "Custom", msg.Title)
	assert.True(t, msg.Urgent)
}
