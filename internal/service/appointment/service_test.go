package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-portal/internal/backend"
	"github.com/jwalitptl/patient-portal/internal/event"
	"github.com/jwalitptl/patient-portal/internal/flash"
	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/session"
	apperrors "github.com/jwalitptl/patient-portal/pkg/errors"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

type fakeBackend struct {
	mu           sync.Mutex
	calls        int
	appointments []model.Appointment
	listErr      error
	results      map[model.AppointmentAction]*model.ActionResult
	actErr       error
	gates        map[model.AppointmentAction]chan struct{}
	started      chan model.AppointmentAction
	requests     []model.ActionRequest
	rescheduled  []model.RescheduleRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		appointments: []model.Appointment{
			{ID: "7", PatientName: "Jane Doe", DateTime: model.ParseTimestamp("2024-03-05 14:30:00"), Status: model.AppointmentStatusPending},
		},
		results: make(map[model.AppointmentAction]*model.ActionResult),
		gates:   make(map[model.AppointmentAction]chan struct{}),
	}
}

func (f *fakeBackend) ListAppointments(context.Context) (*backend.AppointmentList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &backend.AppointmentList{Success: true, Appointments: f.appointments}, nil
}

func (f *fakeBackend) UpcomingAppointments(_ context.Context, patientID string) (*backend.AppointmentList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &backend.AppointmentList{Success: true, Appointments: f.appointments}, nil
}

func (f *fakeBackend) Act(_ context.Context, action model.AppointmentAction, req model.ActionRequest) (*model.ActionResult, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	gate := f.gates[action]
	result, err := f.results[action], f.actErr
	f.mu.Unlock()

	if f.started != nil {
		f.started <- action
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &model.ActionResult{Success: true}
	}
	return result, nil
}

func (f *fakeBackend) Reschedule(_ context.Context, req model.RescheduleRequest) (*model.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.rescheduled = append(f.rescheduled, req)
	return &model.ActionResult{Success: true}, nil
}

func (f *fakeBackend) CachedAppointment(id string) (model.Appointment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.ID.String() == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type timerStub struct{ d time.Duration }

func (timerStub) Stop() bool { return true }

type fixture struct {
	backend *fakeBackend
	board   *flash.Board
	bus     *event.Bus
	events  <-chan event.Event
	timers  []time.Duration
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backend: newFakeBackend()}
	f.board = flash.NewBoard(flash.WithAfterFunc(func(d time.Duration, fn func()) flash.Timer {
		f.timers = append(f.timers, d)
		return timerStub{d: d}
	}))
	f.bus = event.NewBus(zerolog.Nop())
	events, cancel := f.bus.Subscribe(8)
	t.Cleanup(cancel)
	f.events = events
	f.svc = NewService(f.backend, f.board, f.bus, metrics.NewNop(), zerolog.Nop())
	return f
}

func adminSession() *session.Session {
	return &session.Session{ID: "sess-1", Token: "tok", Role: model.RoleAdmin, UserID: "3"}
}

func TestActWithoutIdentityMakesNoCall(t *testing.T) {
	for name, sess := range map[string]*session.Session{
		"nil session": nil,
		"no user id":  {ID: "sess-1", Token: "tok", Role: model.RoleAdmin},
		"no role":     {ID: "sess-1", Token: "tok", UserID: "3"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			for _, action := range model.StatusActions {
				_, err := f.svc.Act(context.Background(), sess, action, "7")
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.ErrMissingSession))
				assert.Equal(t, apperrors.MsgMissingSession, err.Error())
			}
			assert.Zero(t, f.backend.callCount())

			if sess != nil {
				messages := f.board.Messages(sess.ID)
				require.Len(t, messages, 1)
				assert.Equal(t, apperrors.MsgMissingSession, messages[0].Text)
				assert.Equal(t, flash.KindError, messages[0].Kind)
			}
		})
	}
}

func TestActSuccess(t *testing.T) {
	f := newFixture(t)
	sess := adminSession()

	outcome, err := f.svc.Act(context.Background(), sess, model.ActionConfirm, "7")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, model.AppointmentStatusConfirmed, outcome.Appointment.Status)
	assert.Equal(t, "Appointment confirmed successfully", outcome.Message)

	require.Len(t, f.backend.requests, 1)
	assert.Equal(t, model.ActionRequest{AppointmentID: "7", UserID: "3", Role: "admin"}, f.backend.requests[0])

	messages := f.board.Messages(sess.ID)
	require.Len(t, messages, 1)
	assert.Equal(t, flash.KindSuccess, messages[0].Kind)
	assert.Equal(t, []time.Duration{2000 * time.Millisecond}, f.timers)

	evt := <-f.events
	assert.Equal(t, "APPOINTMENT_CONFIRMED", evt.Type)
	assert.Equal(t, model.AppointmentStatusConfirmed, evt.Data.(model.Appointment).Status)
}

func TestActServerMessages(t *testing.T) {
	f := newFixture(t)
	sess := adminSession()
	f.backend.results[model.ActionComplete] = &model.ActionResult{Success: true, Message: "Marked complete"}
	f.backend.results[model.ActionReject] = &model.ActionResult{Success: false}
	f.backend.results[model.ActionCancel] = &model.ActionResult{Success: false, Message: "Too late to cancel"}

	outcome, err := f.svc.Act(context.Background(), sess, model.ActionComplete, "7")
	require.NoError(t, err)
	assert.Equal(t, "Marked complete", outcome.Message)

	_, err = f.svc.Act(context.Background(), sess, model.ActionReject, "7")
	assert.True(t, apperrors.Is(err, apperrors.ErrApplication))
	assert.Equal(t, "Failed to reject appointment", err.Error())

	_, err = f.svc.Act(context.Background(), sess, model.ActionCancel, "7")
	assert.Equal(t, "Too late to cancel", err.Error())

	messages := f.board.Messages(sess.ID)
	require.Len(t, messages, 2)
	assert.Equal(t, "Marked complete", messages[0].Text)
	assert.Equal(t, "Too late to cancel", messages[1].Text)

	assert.Len(t, f.events, 1, "failures do not broadcast")
}

func TestActNetworkError(t *testing.T) {
	f := newFixture(t)
	sess := adminSession()
	f.backend.actErr = errors.New("connection refused")

	_, err := f.svc.Act(context.Background(), sess, model.ActionCancel, "7")
	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))
	assert.Equal(t, 1, f.backend.callCount(), "one action, no retry")

	messages := f.board.Messages(sess.ID)
	require.Len(t, messages, 1)
	assert.Equal(t, apperrors.MsgNetwork, messages[0].Text)
	assert.Empty(t, f.events)
}

func TestActUncachedAppointment(t *testing.T) {
	f := newFixture(t)
	f.backend.listErr = errors.New("list endpoint down")

	outcome, err := f.svc.Act(context.Background(), adminSession(), model.ActionConfirm, "99")
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.callCount())
	require.Len(t, f.backend.requests, 1)
	assert.Equal(t, "99", f.backend.requests[0].AppointmentID)

	assert.Equal(t, model.Appointment{ID: "99", Status: model.AppointmentStatusConfirmed}, outcome.Appointment)
	evt := <-f.events
	assert.Equal(t, "99", evt.Data.(model.Appointment).ID.String())
}

func TestActUsesCachedRow(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.svc.Act(context.Background(), adminSession(), model.ActionComplete, "7")
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.callCount())
	assert.Equal(t, "Jane Doe", outcome.Appointment.PatientName)
	assert.Equal(t, model.AppointmentStatusCompleted, outcome.Appointment.Status)
}

func TestLaterIssuedOutcomeWins(t *testing.T) {
	f := newFixture(t)
	sess := adminSession()
	f.backend.gates[model.ActionConfirm] = make(chan struct{})
	f.backend.started = make(chan model.AppointmentAction, 2)

	slow := make(chan *Outcome, 1)
	go func() {
		outcome, err := f.svc.Act(context.Background(), sess, model.ActionConfirm, "7")
		assert.NoError(t, err)
		slow <- outcome
	}()
	require.Equal(t, model.ActionConfirm, <-f.backend.started)

	fast, err := f.svc.Act(context.Background(), sess, model.ActionCancel, "7")
	require.NoError(t, err)
	<-f.backend.started
	assert.True(t, fast.Applied)

	close(f.backend.gates[model.ActionConfirm])
	late := <-slow
	assert.False(t, late.Applied)

	evt := <-f.events
	assert.Equal(t, "APPOINTMENT_CANCELLED", evt.Type)
	assert.Empty(t, f.events)
}

func TestBackendVersionDecides(t *testing.T) {
	ledger := NewVersionLedger(time.Minute)
	first, second := ledger.Issue(), ledger.Issue()

	assert.True(t, ledger.Apply("7", Stamp{Version: 5, Seq: first}))
	assert.False(t, ledger.Apply("7", Stamp{Version: 4, Seq: second}), "older backend version loses despite later issue")
	assert.True(t, ledger.Apply("7", Stamp{Version: 6, Seq: first}))
	assert.True(t, ledger.Apply("8", Stamp{Seq: first}))
	assert.False(t, ledger.Apply("8", Stamp{Seq: first}))

	st, ok := ledger.Current("7")
	require.True(t, ok)
	assert.Equal(t, int64(6), st.Version)
}

func TestLedgerForgetsOldStamps(t *testing.T) {
	ledger := NewVersionLedger(20 * time.Millisecond)
	first := ledger.Issue()
	require.True(t, ledger.Apply("7", Stamp{Version: 9, Seq: first}))
	assert.Equal(t, 1, ledger.Len())

	assert.Eventually(t, func() bool {
		return ledger.Len() == 0
	}, time.Second, 5*time.Millisecond)
	_, ok := ledger.Current("7")
	assert.False(t, ok)
	assert.True(t, ledger.Apply("7", Stamp{Version: 1, Seq: ledger.Issue()}))
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	sess := adminSession()

	_, err := f.svc.Reschedule(context.Background(), sess, "7", "next tuesday")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	outcome, err := f.svc.Reschedule(context.Background(), sess, "7", "2024-04-01T10:00")
	require.NoError(t, err)
	assert.Equal(t, "Appointment rescheduled successfully", outcome.Message)
	require.Len(t, f.backend.rescheduled, 1)
	assert.Equal(t, "2024-04-01 10:00:00", f.backend.rescheduled[0].DateTime)
	assert.Equal(t, EventRescheduled, (<-f.events).Type)

	_, err = f.svc.Reschedule(context.Background(), &session.Session{ID: "x"}, "7", "2024-04-01T10:00")
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingSession))
}

func TestViewDetailsAndCopyID(t *testing.T) {
	f := newFixture(t)

	details, err := f.svc.ViewDetails(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Mar 05, 2024", details.Date)
	assert.Equal(t, "02:30 PM", details.Time)
	assert.Equal(t, "Pending", details.Status)

	id, err := f.svc.CopyID(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", id)
}

func TestListErrors(t *testing.T) {
	f := newFixture(t)
	f.backend.listErr = errors.New("timeout")

	_, err := f.svc.List(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))

	_, err = f.svc.Upcoming(context.Background(), &session.Session{})
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingSession))
}
