package model

// Role is a user's access level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

// RoleInfo pairs a role with the name shown in the user form.
type RoleInfo struct {
	Code Role   `json:"code"`
	Name string `json:"name"`
}

// Roles lists every assignable role.
var Roles = []RoleInfo{
	{Code: RoleAdmin, Name: "ผู้ดูแลระบบ"},
	{Code: RoleSeller, Name: "ผู้ขาย"},
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSeller
}
