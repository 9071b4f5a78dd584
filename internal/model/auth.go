package model

import "encoding/json"

// Credentials is the login form. Patients may sign in with a hospital number
// instead of an email address.
type Credentials struct {
	Email          string `json:"email" binding:"required_without=HospitalNumber,omitempty,email"`
	HospitalNumber string `json:"hospital_number"`
	Password       string `json:"password" binding:"required"`
}

// LoginResult is the backend reply to a login attempt.
type LoginResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token"`
	Role    Role            `json:"role"`
	User    json.RawMessage `json:"user,omitempty"`
}

// LoginUser is the subset of the profile blob the portal keeps as identity.
type LoginUser struct {
	ID             FlexString `json:"id"`
	UserID         FlexString `json:"user_id"`
	PatientID      FlexString `json:"patient_id"`
	Role           Role       `json:"role"`
	Email          string     `json:"email"`
	HospitalNumber string     `json:"hospital_number"`
}

// Identifier returns the user id, falling back to the patient id.
func (u LoginUser) Identifier() string {
	switch {
	case u.UserID != "":
		return u.UserID.String()
	case u.ID != "":
		return u.ID.String()
	}
	return u.PatientID.String()
}
