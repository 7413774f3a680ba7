package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"homeswitch/internal/delivery/api/validator"
	"homeswitch/internal/domain/entity"
	domainerrors "homeswitch/internal/domain/errors"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCommandUsecase struct {
	mock.Mock
}

func (m *mockCommandUsecase) Submit(ctx context.Context, deviceID, action string) (*entity.Command, error) {
	args := m.Called(ctx, deviceID, action)
	command, _ := args.Get(0).(*entity.Command)

	return command, args.Error(1)
}

func (m *mockCommandUsecase) Poll(ctx context.Context, controllerID string) ([]*entity.IssuedCommand, error) {
	args := m.Called(ctx, controllerID)
	commands, _ := args.Get(0).([]*entity.IssuedCommand)

	return commands, args.Error(1)
}

func (m *mockCommandUsecase) ReportOutcome(ctx context.Context, commandID uuid.UUID, success bool, errMsg string) (*entity.Command, error) {
	args := m.Called(ctx, commandID, success, errMsg)
	command, _ := args.Get(0).(*entity.Command)

	return command, args.Error(1)
}

func (m *mockCommandUsecase) CommandStatus(ctx context.Context, commandID uuid.UUID) (*usecase.CommandStatusOutput, error) {
	args := m.Called(ctx, commandID)
	output, _ := args.Get(0).(*usecase.CommandStatusOutput)

	return output, args.Error(1)
}

func (m *mockCommandUsecase) EmergencyShutdown(ctx context.Context, email string) ([]*usecase.ShutdownResult, error) {
	args := m.Called(ctx, email)
	results, _ := args.Get(0).([]*usecase.ShutdownResult)

	return results, args.Error(1)
}

type envelope struct {
	Data  map[string]any `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func newCommandTestServer(t *testing.T) (*echo.Echo, *mockCommandUsecase) {
	t.Helper()

	commandUC := &mockCommandUsecase{}
	t.Cleanup(func() { commandUC.AssertExpectations(t) })

	h := NewCommandHandler(CommandHandlerParams{CommandUC: commandUC, Logger: slog.New(slog.DiscardHandler)})

	e := echo.New()
	e.Validator = validator.New()
	e.POST("/devices/:deviceId/commands", h.SubmitCommand)
	e.POST("/commands/:commandId/result", h.ReportOutcome)
	e.GET("/commands/:commandId", h.CommandStatus)

	return e, commandUC
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return rec, out
}

func TestCommandHandler_SubmitCommand_Accepted(t *testing.T) {
	e, commandUC := newCommandTestServer(t)

	command := &entity.Command{ID: uuid.New(), Action: "on", Status: entity.CommandPending}
	commandUC.On("Submit", mock.Anything, "C1-kitchen", "on").Return(command, nil)

	rec, body := doJSON(t, e, http.MethodPost, "/devices/C1-kitchen/commands", `{"action":"on"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, command.ID.String(), body.Data["command_id"])
	assert.Equal(t, "pending", body.Data["status"])
}

func TestCommandHandler_SubmitCommand_Conflict(t *testing.T) {
	e, commandUC := newCommandTestServer(t)

	blocking := uuid.NewString()
	commandUC.On("Submit", mock.Anything, "C1-kitchen", "off").
		Return(nil, domainerrors.NewCommandConflictError(blocking, "executing", 12))

	rec, body := doJSON(t, e, http.MethodPost, "/devices/C1-kitchen/commands", `{"action":"off"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "COMMAND_IN_PROGRESS", body.Error.Code)

	details, ok := body.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, blocking, details["command_id"])
	assert.Equal(t, "executing", details["status"])
	assert.InDelta(t, 12, details["time_remaining"], 0)
}

func TestCommandHandler_SubmitCommand_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "not found", err: domainerrors.ErrDeviceNotFound, code: domainerrors.ErrDeviceNotFound.ErrorCode()},
		{name: "not connected", err: domainerrors.ErrDeviceNotConnected, code: domainerrors.ErrDeviceNotConnected.ErrorCode()},
		{name: "invalid input", err: domainerrors.ErrValidationFailed.WrapMessage("bad"), code: domainerrors.ErrValidationFailed.ErrorCode()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, commandUC := newCommandTestServer(t)
			commandUC.On("Submit", mock.Anything, "dev", "on").Return(nil, tt.err)

			rec, body := doJSON(t, e, http.MethodPost, "/devices/dev/commands", `{"action":"on"}`)
			var appErr domainerrors.AppError
			require.ErrorAs(t, tt.err, &appErr)
			assert.Equal(t, appErr.HTTPCode(), rec.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestCommandHandler_SubmitCommand_Validation(t *testing.T) {
	e, _ := newCommandTestServer(t)

	rec, body := doJSON(t, e, http.MethodPost, "/devices/C1-kitchen/commands", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, map[string]any{"action": "required"}, body.Error.Details)
}

func TestCommandHandler_ReportOutcome(t *testing.T) {
	e, commandUC := newCommandTestServer(t)

	id := uuid.New()
	executed := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
	commandUC.On("ReportOutcome", mock.Anything, id, false, "relay stuck").
		Return(&entity.Command{ID: id, Status: entity.CommandFailed, Error: "relay stuck", ExecutedAt: &executed}, nil)

	rec, body := doJSON(t, e, http.MethodPost, "/commands/"+id.String()+"/result", `{"success":false,"error":"relay stuck"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", body.Data["status"])

	rec, body = doJSON(t, e, http.MethodPost, "/commands/"+id.String()+"/result", `{"error":"no flag"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, map[string]any{"success": "required"}, body.Error.Details)

	rec, body = doJSON(t, e, http.MethodPost, "/commands/not-a-uuid/result", `{"success":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", body.Error.Code)
}

func TestCommandHandler_CommandStatus(t *testing.T) {
	e, commandUC := newCommandTestServer(t)

	id := uuid.New()
	commandUC.On("CommandStatus", mock.Anything, id).Return(&usecase.CommandStatusOutput{
		Command:       &entity.Command{ID: id, Action: "on", Status: entity.CommandExecuting},
		DeviceID:      "C1-kitchen",
		TimeRemaining: 17,
	}, nil)

	rec, body := doJSON(t, e, http.MethodGet, "/commands/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C1-kitchen", body.Data["device_id"])
	assert.Equal(t, "executing", body.Data["status"])
	assert.InDelta(t, 17, body.Data["time_remaining"], 0)
}
