package appointment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-portal/internal/backend"
	"github.com/jwalitptl/patient-portal/internal/event"
	"github.com/jwalitptl/patient-portal/internal/flash"
	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/session"
	apperrors "github.com/jwalitptl/patient-portal/pkg/errors"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

const (
	EventRescheduled = "APPOINTMENT_RESCHEDULED"

	msgListFailed       = "Failed to fetch appointments"
	msgRescheduled      = "Appointment rescheduled successfully"
	msgRescheduleFailed = "Failed to reschedule appointment"
)

// Backend is the part of the backend client the workflow uses.
type Backend interface {
	ListAppointments(ctx context.Context) (*backend.AppointmentList, error)
	UpcomingAppointments(ctx context.Context, patientID string) (*backend.AppointmentList, error)
	Act(ctx context.Context, action model.AppointmentAction, req model.ActionRequest) (*model.ActionResult, error)
	Reschedule(ctx context.Context, req model.RescheduleRequest) (*model.ActionResult, error)
	CachedAppointment(id string) (model.Appointment, bool)
}

type Flasher interface {
	Success(sessionID, text string) flash.Message
	Error(sessionID, text string) flash.Message
}

type Publisher interface {
	Publish(ctx context.Context, evt event.Event)
}

// Outcome is the result of a successful status-changing action.
type Outcome struct {
	Appointment model.Appointment `json:"appointment"`
	Message     string            `json:"message"`
	// Applied is false when a newer outcome for the same appointment was
	// already applied; the event is then not broadcast.
	Applied bool `json:"applied"`
}

type Service struct {
	backend Backend
	flash   Flasher
	events  Publisher
	ledger  *VersionLedger
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(b Backend, f Flasher, events Publisher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		backend: b,
		flash:   f,
		events:  events,
		ledger:  NewVersionLedger(DefaultLedgerTTL),
		metrics: m,
		logger:  logger.With().Str("service", "appointment").Logger(),
	}
}

// Ledger exposes the version ledger, for inspection.
func (s *Service) Ledger() *VersionLedger {
	return s.ledger
}

func successMessage(a model.AppointmentAction) string {
	return fmt.Sprintf("Appointment %s successfully", a.TargetStatus())
}

func failureMessage(a model.AppointmentAction) string {
	return fmt.Sprintf("Failed to %s appointment", a)
}

func (s *Service) flashError(sess *session.Session, text string) {
	if sess != nil && sess.ID != "" {
		s.flash.Error(sess.ID, text)
	}
}

func (s *Service) flashSuccess(sess *session.Session, text string) {
	if sess != nil && sess.ID != "" {
		s.flash.Success(sess.ID, text)
	}
}

// List returns every appointment for the admin table.
func (s *Service) List(ctx context.Context) ([]model.Appointment, error) {
	list, err := s.backend.ListAppointments(ctx)
	return s.unwrapList(list, err)
}

// Upcoming returns the session patient's upcoming appointments.
func (s *Service) Upcoming(ctx context.Context, sess *session.Session) ([]model.Appointment, error) {
	if sess == nil {
		return nil, apperrors.MissingSession()
	}
	patientID := sess.PatientID
	if patientID == "" {
		patientID = sess.UserID
	}
	if patientID == "" {
		return nil, apperrors.MissingSession()
	}
	list, err := s.backend.UpcomingAppointments(ctx, patientID)
	return s.unwrapList(list, err)
}

func (s *Service) unwrapList(list *backend.AppointmentList, err error) ([]model.Appointment, error) {
	if err != nil {
		return nil, apperrors.Network(err)
	}
	if !list.Success {
		msg := list.Message
		if msg == "" {
			msg = msgListFailed
		}
		return nil, apperrors.Application(msg)
	}
	return list.Appointments, nil
}

// Find returns one appointment from the list.
func (s *Service) Find(ctx context.Context, id string) (model.Appointment, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	for _, a := range rows {
		if a.ID.String() == id {
			return a, nil
		}
	}
	return model.Appointment{}, apperrors.NotFound("appointment", nil)
}

// CopyID returns the id to place on the clipboard.
func (s *Service) CopyID(ctx context.Context, id string) (string, error) {
	a, err := s.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return a.ID.String(), nil
}

// ViewDetails returns the read-only summary of an appointment.
func (s *Service) ViewDetails(ctx context.Context, id string) (*Details, error) {
	a, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewDetails(a), nil
}

// known returns the cached row for id, or a bare record carrying only the id
// when the list has not been fetched.
func (s *Service) known(id string) model.Appointment {
	if a, ok := s.backend.CachedAppointment(id); ok {
		return a
	}
	return model.Appointment{ID: model.FlexString(id)}
}

// Act runs a status-changing action for the session's user. It sends
// exactly one backend request and never retries. Every outcome is also posted
// to the session's flash board.
func (s *Service) Act(ctx context.Context, sess *session.Session, action model.AppointmentAction, id string) (*Outcome, error) {
	userID, role, ok := sess.Identity()
	if !ok {
		s.metrics.AppointmentActions.WithLabelValues(string(action), "missing_session").Inc()
		s.flashError(sess, apperrors.MsgMissingSession)
		return nil, apperrors.MissingSession()
	}

	target := s.known(id)

	seq := s.ledger.Issue()
	result, err := s.backend.Act(ctx, action, model.ActionRequest{
		AppointmentID: id,
		UserID:        userID,
		Role:          string(role),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Str("appointment_id", id).Msg("Appointment action failed")
		s.metrics.AppointmentActions.WithLabelValues(string(action), "network_error").Inc()
		s.flashError(sess, apperrors.MsgNetwork)
		return nil, apperrors.Network(err)
	}

	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = failureMessage(action)
		}
		s.metrics.AppointmentActions.WithLabelValues(string(action), "rejected").Inc()
		s.flashError(sess, msg)
		return nil, apperrors.Application(msg)
	}

	updated := target
	updated.Status = action.TargetStatus()
	if result.Version > 0 {
		updated.Version = result.Version
	}

	msg := result.Message
	if msg == "" {
		msg = successMessage(action)
	}
	s.metrics.AppointmentActions.WithLabelValues(string(action), "success").Inc()
	s.flashSuccess(sess, msg)

	applied := s.apply(ctx, updated, Stamp{Version: result.Version, Seq: seq}, action.EventType())
	return &Outcome{Appointment: updated, Message: msg, Applied: applied}, nil
}

// RescheduleTarget returns the appointment handed to the reschedule dialog.
func (s *Service) RescheduleTarget(ctx context.Context, id string) (model.Appointment, error) {
	return s.Find(ctx, id)
}

// Reschedule forwards a new date and time for an appointment.
func (s *Service) Reschedule(ctx context.Context, sess *session.Session, id, newDateTime string) (*Outcome, error) {
	userID, role, ok := sess.Identity()
	if !ok {
		s.metrics.AppointmentActions.WithLabelValues("reschedule", "missing_session").Inc()
		s.flashError(sess, apperrors.MsgMissingSession)
		return nil, apperrors.MissingSession()
	}

	when := model.ParseTimestamp(newDateTime)
	if !when.Valid() {
		return nil, apperrors.BadRequest("invalid date and time", nil)
	}

	target := s.known(id)

	seq := s.ledger.Issue()
	result, err := s.backend.Reschedule(ctx, model.RescheduleRequest{
		ActionRequest: model.ActionRequest{AppointmentID: id, UserID: userID, Role: string(role)},
		DateTime:      when.Format(model.SQLDateTime),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", id).Msg("Reschedule failed")
		s.metrics.AppointmentActions.WithLabelValues("reschedule", "network_error").Inc()
		s.flashError(sess, apperrors.MsgNetwork)
		return nil, apperrors.Network(err)
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = msgRescheduleFailed
		}
		s.metrics.AppointmentActions.WithLabelValues("reschedule", "rejected").Inc()
		s.flashError(sess, msg)
		return nil, apperrors.Application(msg)
	}

	updated := target
	updated.DateTime = when
	if result.Version > 0 {
		updated.Version = result.Version
	}
	msg := result.Message
	if msg == "" {
		msg = msgRescheduled
	}
	s.metrics.AppointmentActions.WithLabelValues("reschedule", "success").Inc()
	s.flashSuccess(sess, msg)

	applied := s.apply(ctx, updated, Stamp{Version: result.Version, Seq: seq}, EventRescheduled)
	return &Outcome{Appointment: updated, Message: msg, Applied: applied}, nil
}

func (s *Service) apply(ctx context.Context, updated model.Appointment, st Stamp, eventType string) bool {
	id := updated.ID.String()
	if !s.ledger.Apply(id, st) {
		s.metrics.StaleOutcomes.Inc()
		s.logger.Debug().Str("appointment_id", id).Int64("version", st.Version).Uint64("seq", st.Seq).Msg("Discarding stale appointment outcome")
		return false
	}
	if s.events != nil {
		s.events.Publish(ctx, event.Event{Type: eventType, Data: updated})
	}
	return true
}
