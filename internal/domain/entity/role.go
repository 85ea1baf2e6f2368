package entity

// Role is the actor role carried by every intent
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleSCManager        Role = "sc_manager"
	RoleServiceAdvisor   Role = "service_advisor"
	RoleServiceEngineer  Role = "service_engineer"
	RoleCallCenter       Role = "call_center"
	RoleInventoryManager Role = "inventory_manager"
)

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSCManager, RoleServiceAdvisor, RoleServiceEngineer, RoleCallCenter, RoleInventoryManager:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor identifies who is performing an action
type Actor struct {
	UserID          string `json:"user_id"`
	Role            Role   `json:"role"`
	ServiceCenterID string `json:"service_center_id"`
}
