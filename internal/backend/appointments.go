package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jwalitptl/patient-portal/internal/model"
)

const (
	listCacheKey     = "appointments:all"
	upcomingCacheKey = "appointments:upcoming:"
)

// AppointmentList is the backend list envelope after ingestion.
type AppointmentList struct {
	Success      bool
	Message      string
	Appointments []model.Appointment
}

type listEnvelope struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message,omitempty"`
	Appointments []json.RawMessage `json:"appointments"`
}

// ListAppointments fetches every appointment visible to staff.
func (c *Client) ListAppointments(ctx context.Context) (*AppointmentList, error) {
	return c.cachedList(ctx, listCacheKey, func(env *listEnvelope) error {
		return c.get(ctx, "list_appointments", c.endpoints.ListAppointments, nil, env)
	})
}

// UpcomingAppointments fetches a patient's upcoming appointments.
func (c *Client) UpcomingAppointments(ctx context.Context, patientID string) (*AppointmentList, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	query := url.Values{"patient_id": []string{patientID}}
	return c.cachedList(ctx, upcomingCacheKey+patientID, func(env *listEnvelope) error {
		return c.get(ctx, "upcoming_appointments", c.endpoints.UpcomingAppointments, query, env)
	})
}

// CachedAppointment looks an appointment up in the cached staff list. It
// never calls the backend.
func (c *Client) CachedAppointment(id string) (model.Appointment, bool) {
	if c.lists == nil {
		return model.Appointment{}, false
	}
	v, ok := c.lists.Get(listCacheKey)
	if !ok {
		return model.Appointment{}, false
	}
	for _, a := range v.(*AppointmentList).Appointments {
		if a.ID.String() == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func (c *Client) cachedList(ctx context.Context, key string, fetch func(*listEnvelope) error) (*AppointmentList, error) {
	if c.lists != nil {
		if v, ok := c.lists.Get(key); ok {
			return v.(*AppointmentList), nil
		}
	}

	var env listEnvelope
	if err := fetch(&env); err != nil {
		return nil, err
	}

	list := &AppointmentList{
		Success:      env.Success,
		Message:      env.Message,
		Appointments: c.ingest(ctx, env.Appointments),
	}
	if c.lists != nil && list.Success {
		c.lists.SetDefault(key, list)
	}
	return list, nil
}

// ingest decodes and validates each record on its own, dropping the ones that
// cannot be shown.
func (c *Client) ingest(ctx context.Context, raw []json.RawMessage) []model.Appointment {
	appointments := make([]model.Appointment, 0, len(raw))
	for i, r := range raw {
		var a model.Appointment
		if err := json.Unmarshal(r, &a); err != nil {
			c.logger.Warn().Err(err).Int("index", i).Msg("Dropping undecodable appointment record")
			continue
		}
		if err := c.validate.StructCtx(ctx, &a); err != nil {
			c.logger.Warn().Err(err).Int("index", i).Str("appointment_id", a.ID.String()).Msg("Dropping invalid appointment record")
			continue
		}
		if !a.DateTime.Valid() {
			c.logger.Debug().Str("appointment_id", a.ID.String()).Str("raw", a.DateTime.Raw).Msg("Appointment has unparseable datetime")
		}
		appointments = append(appointments, a)
	}
	return appointments
}

func (c *Client) actionEndpoint(action model.AppointmentAction) (string, error) {
	switch action {
	case model.ActionConfirm:
		return c.endpoints.Confirm, nil
	case model.ActionCancel:
		return c.endpoints.Cancel, nil
	case model.ActionReject:
		return c.endpoints.Reject, nil
	case model.ActionComplete:
		return c.endpoints.Complete, nil
	}
	return "", fmt.Errorf("unknown appointment action: %q", action)
}

// Act posts a status-changing action. Cached lists are dropped after any
// successful action.
func (c *Client) Act(ctx context.Context, action model.AppointmentAction, req model.ActionRequest) (*model.ActionResult, error) {
	path, err := c.actionEndpoint(action)
	if err != nil {
		return nil, err
	}

	var result model.ActionResult
	if err := c.post(ctx, string(action), path, req, &result); err != nil {
		return nil, err
	}
	if result.Success {
		c.InvalidateLists()
	}
	return &result, nil
}

// Reschedule posts a new datetime for an appointment.
func (c *Client) Reschedule(ctx context.Context, req model.RescheduleRequest) (*model.ActionResult, error) {
	var result model.ActionResult
	if err := c.post(ctx, "reschedule", c.endpoints.Reschedule, req, &result); err != nil {
		return nil, err
	}
	if result.Success {
		c.InvalidateLists()
	}
	return &result, nil
}
