package model

type Role string

const (
	RolePatient        Role = "patient"
	RoleAdmin          Role = "admin"
	RoleReceptionist   Role = "receptionist"
	RolePharmacist     Role = "pharmacist"
	RoleBillingOfficer Role = "billing_officer"
	RoleDoctor         Role = "doctor"
)

// AdminRoles may use the admin portal.
var AdminRoles = []Role{RoleAdmin, RoleReceptionist, RolePharmacist, RoleBillingOfficer, RoleDoctor}

func (r Role) IsPatient() bool {
	return r == RolePatient
}

func (r Role) IsAdmin() bool {
	for _, a := range AdminRoles {
		if r == a {
			return true
		}
	}
	return false
}

func (r Role) Valid() bool {
	return r.IsPatient() || r.IsAdmin()
}
