package model

// Identity is the verified principal behind one connection: who the staff
// member is, what role they act in, and which department they work for.
// Identity never changes for the lifetime of the connection.
type Identity struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// Well-known roles. The set is open: routing only ever matches on RoleAdmin.
const (
	RoleAdmin         = "admin"
	RoleDoctor        = "doctor"
	RoleNurse         = "nurse"
	RolePharmacist    = "pharmacist"
	RoleLabTechnician = "lab_technician"
)

// Well-known departments referenced by the routing policy.
const (
	DepartmentEmergency  = "emergency"
	DepartmentNursing    = "nursing"
	DepartmentPharmacy   = "pharmacy"
	DepartmentLaboratory = "laboratory"
)
