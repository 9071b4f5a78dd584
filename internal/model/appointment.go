package model

import (
	"fmt"
	"strings"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// AppointmentStatuses lists the closed status set in display order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusRejected,
	AppointmentStatusCancelled,
	AppointmentStatusCompleted,
}

// ParseAppointmentStatus accepts only members of the closed status set.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid appointment status: %q", s)
	}
	return status, nil
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusRejected,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Label is the capitalized display form, e.g. "Confirmed".
func (s AppointmentStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// StatusColor is the background color of a status badge.
type StatusColor string

const (
	ColorPending   StatusColor = "#FEF3C7"
	ColorConfirmed StatusColor = "#D1FAE5"
	ColorRejected  StatusColor = "#FEE2E2"
	ColorCancelled StatusColor = "#FFEDD5"
	ColorCompleted StatusColor = "#DBEAFE"
	ColorNeutral   StatusColor = "#F3F4F6"
)

func (s AppointmentStatus) Color() StatusColor {
	switch s {
	case AppointmentStatusPending:
		return ColorPending
	case AppointmentStatusConfirmed:
		return ColorConfirmed
	case AppointmentStatusRejected:
		return ColorRejected
	case AppointmentStatusCancelled:
		return ColorCancelled
	case AppointmentStatusCompleted:
		return ColorCompleted
	default:
		return ColorNeutral
	}
}

type Appointment struct {
	ID                   FlexString        `json:"appointment_id" validate:"required"`
	DateTime             Timestamp         `json:"appointment_datetime"`
	ReasonForVisit       string            `json:"reason_for_visit"`
	ContactEmail         string            `json:"contact_email"`
	PatientID            FlexString        `json:"patient_id"`
	PatientName          string            `json:"patient_name"`
	PatientContact       string            `json:"patient_contact"`
	DoctorName           string            `json:"doctor_name"`
	DoctorSpecialization string            `json:"doctor_specialization"`
	Status               AppointmentStatus `json:"status" validate:"required"`
	Version              int64             `json:"version,omitempty"`
}

// AppointmentAction names a status-changing action.
type AppointmentAction string

const (
	ActionConfirm  AppointmentAction = "confirm"
	ActionCancel   AppointmentAction = "cancel"
	ActionReject   AppointmentAction = "reject"
	ActionComplete AppointmentAction = "complete"
)

// StatusActions lists the status-changing actions.
var StatusActions = []AppointmentAction{ActionConfirm, ActionCancel, ActionReject, ActionComplete}

// TargetStatus is the status an appointment takes after a successful action.
func (a AppointmentAction) TargetStatus() AppointmentStatus {
	switch a {
	case ActionConfirm:
		return AppointmentStatusConfirmed
	case ActionCancel:
		return AppointmentStatusCancelled
	case ActionReject:
		return AppointmentStatusRejected
	case ActionComplete:
		return AppointmentStatusCompleted
	}
	return ""
}

// EventType is the broadcast type announced after a successful action.
func (a AppointmentAction) EventType() string {
	switch a {
	case ActionConfirm:
		return "APPOINTMENT_CONFIRMED"
	case ActionCancel:
		return "APPOINTMENT_CANCELLED"
	case ActionReject:
		return "APPOINTMENT_REJECTED"
	case ActionComplete:
		return "APPOINTMENT_COMPLETED"
	}
	return ""
}

// ActionRequest is the body posted to the backend action endpoints.
type ActionRequest struct {
	AppointmentID string `json:"appointmentId"`
	UserID        string `json:"userId"`
	Role          string `json:"role"`
}

// RescheduleRequest is posted to the backend reschedule endpoint.
type RescheduleRequest struct {
	ActionRequest
	DateTime string `json:"newDateTime"`
}

// ActionResult is the backend reply to an action.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Version int64  `json:"version,omitempty"`
}
