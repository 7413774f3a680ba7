package impl

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"homeswitch/internal/domain/entity"
	"homeswitch/internal/domain/repository"
	"homeswitch/internal/domain/service"
	"homeswitch/internal/infra/persistence/postgres"
	"homeswitch/internal/infra/qrcode"
	"homeswitch/internal/testutil"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	userID    uuid.UUID
	eventType usecase.EventType
	data      any
}

// recordingFanout captures published events instead of delivering them.
type recordingFanout struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *recordingFanout) Publish(_ context.Context, userID uuid.UUID, eventType usecase.EventType, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, recordedEvent{userID: userID, eventType: eventType, data: data})
}

func (f *recordingFanout) Subscribe(context.Context, string) (service.Subscription, error) {
	return nil, errors.New("subscribe not supported by recording fan-out")
}

func (f *recordingFanout) ofType(eventType usecase.EventType) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedEvent
	for _, ev := range f.events {
		if ev.eventType == eventType {
			out = append(out, ev)
		}
	}

	return out
}

// toasts returns the alert_notification payloads of one kind.
func (f *recordingFanout) toasts(kind string) []*usecase.AlertNotificationData {
	var out []*usecase.AlertNotificationData
	for _, ev := range f.ofType(usecase.EventAlertNotification) {
		data, ok := ev.data.(*usecase.AlertNotificationData)
		if ok && data.AlertType == kind {
			out = append(out, data)
		}
	}

	return out
}

func (f *recordingFanout) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*service.AlertEvent
}

func (p *recordingPublisher) PublishAlertEvent(_ context.Context, event *service.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.alerts = append(p.alerts, event)

	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.alerts)
}

// harness wires the usecases over an in-memory database.
type harness struct {
	ctx       context.Context
	db        *gorm.DB
	clock     *testutil.FakeClock
	fanout    *recordingFanout
	publisher *recordingPublisher

	txManager      repository.TransactionManager
	userRepo       repository.UserRepository
	roomRepo       repository.RoomRepository
	controllerRepo repository.ControllerRepository
	deviceRepo     repository.DeviceRepository
	commandRepo    repository.CommandRepository
	alertRepo      repository.AlertRepository
	activityRepo   repository.ActivityLogRepository

	identity usecase.IdentityUsecase
	commands usecase.CommandUsecase
	reaper   usecase.ReaperUsecase
	status   usecase.StatusUsecase
	alerts   usecase.AlertUsecase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := slog.New(slog.DiscardHandler)

	h := &harness{
		ctx:            context.Background(),
		db:             db,
		clock:          testutil.NewFakeClock(),
		fanout:         &recordingFanout{},
		publisher:      &recordingPublisher{},
		txManager:      postgres.NewTransactionManager(db),
		userRepo:       postgres.NewUserRepository(db),
		roomRepo:       postgres.NewRoomRepository(db),
		controllerRepo: postgres.NewControllerRepository(db),
		deviceRepo:     postgres.NewDeviceRepository(db),
		commandRepo:    postgres.NewCommandRepository(db),
		alertRepo:      postgres.NewAlertRepository(db),
		activityRepo:   postgres.NewActivityLogRepository(db),
	}

	h.identity = NewIdentityService(IdentityServiceParams{
		TxManager:      h.txManager,
		UserRepo:       h.userRepo,
		RoomRepo:       h.roomRepo,
		ControllerRepo: h.controllerRepo,
		DeviceRepo:     h.deviceRepo,
		QRCodeService:  qrcode.NewQRCodeService(256, "M"),
		Clock:          h.clock,
		Logger:         logger,
	})
	h.reaper = NewReaperService(ReaperServiceParams{
		TxManager:      h.txManager,
		ControllerRepo: h.controllerRepo,
		Fanout:         h.fanout,
		Publisher:      h.publisher,
		Clock:          h.clock,
		Logger:         logger,
	})
	h.commands = NewCommandService(CommandServiceParams{
		TxManager:      h.txManager,
		UserRepo:       h.userRepo,
		ControllerRepo: h.controllerRepo,
		DeviceRepo:     h.deviceRepo,
		CommandRepo:    h.commandRepo,
		Reaper:         h.reaper,
		Fanout:         h.fanout,
		Clock:          h.clock,
		Logger:         logger,
	})
	h.status = NewStatusService(StatusServiceParams{
		TxManager:      h.txManager,
		ControllerRepo: h.controllerRepo,
		Fanout:         h.fanout,
		Publisher:      h.publisher,
		Clock:          h.clock,
		Logger:         logger,
	})
	h.alerts = NewAlertService(AlertServiceParams{
		TxManager:      h.txManager,
		UserRepo:       h.userRepo,
		ControllerRepo: h.controllerRepo,
		AlertRepo:      h.alertRepo,
		Fanout:         h.fanout,
		Publisher:      h.publisher,
		Clock:          h.clock,
		Logger:         logger,
	})

	return h
}

func (h *harness) onboard(t *testing.T, email string) *entity.User {
	t.Helper()

	user, err := h.identity.StartOnboarding(h.ctx, email, "Test User")
	require.NoError(t, err)

	return user
}

func (h *harness) register(t *testing.T, controllerID string, channels ...string) *usecase.RegisterControllerOutput {
	t.Helper()

	out, err := h.identity.RegisterController(h.ctx, &usecase.RegisterControllerInput{
		ControllerID: controllerID,
		Channels:     channels,
	})
	require.NoError(t, err)

	return out
}

func (h *harness) device(t *testing.T, deviceID string) *entity.Device {
	t.Helper()

	device, err := h.deviceRepo.FindByDeviceID(h.ctx, deviceID)
	require.NoError(t, err)

	return device
}

// pair binds the device to the user with its current pairing code.
func (h *harness) pair(t *testing.T, email, deviceID string) *entity.Device {
	t.Helper()

	paired, err := h.identity.ReconcilePairing(h.ctx, &usecase.PairDeviceInput{
		Email:       email,
		DeviceID:    deviceID,
		PairingCode: h.device(t, deviceID).PairingCode,
	})
	require.NoError(t, err)

	return paired
}

// pairedDevice registers controllerID with one channel and pairs its device to a new user.
func (h *harness) pairedDevice(t *testing.T, email, controllerID, channel string) (*entity.User, *entity.Device) {
	t.Helper()

	user := h.onboard(t, email)
	h.register(t, controllerID, channel)
	device := h.pair(t, email, entity.ChannelDeviceID(controllerID, channel))

	return user, device
}

func (h *harness) command(t *testing.T, id uuid.UUID) *entity.Command {
	t.Helper()

	command, err := h.commandRepo.FindByID(h.ctx, id)
	require.NoError(t, err)

	return command
}
