package backend

import (
	"context"
	"fmt"

	"github.com/jwalitptl/patient-portal/internal/model"
)

// Login forwards credentials to the patient or admin login endpoint. The
// backend alone decides whether they are valid.
func (c *Client) Login(ctx context.Context, portal model.Role, creds model.Credentials) (*model.LoginResult, error) {
	endpoint, path := "patient_login", c.endpoints.PatientLogin
	if portal.IsAdmin() {
		endpoint, path = "admin_login", c.endpoints.AdminLogin
	} else if !portal.IsPatient() {
		return nil, fmt.Errorf("unknown portal role: %q", portal)
	}

	var result model.LoginResult
	if err := c.post(ctx, endpoint, path, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
