// internal/models/roles.go

package models

// UserRole представляет роль пользователя внутри организации
type UserRole string

const (
	RoleDriver            UserRole = "driver"
	RoleMechanic          UserRole = "mechanic"
	RoleDispatcher        UserRole = "dispatcher"
	RoleComplianceOfficer UserRole = "compliance_officer"
	RoleManager           UserRole = "manager"
	RoleAdmin             UserRole = "admin"
)

// RoleAll — сентинельная роль получателя "все пользователи".
// Живёт только на границе хранилища (recipient_role), никогда как роль
// реального пользователя.
const RoleAll = "all"

func (r UserRole) IsValid() bool {
	switch r {
	case RoleDriver, RoleMechanic, RoleDispatcher, RoleComplianceOfficer,
		RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsHigherOrEqual проверяет, что текущая роль выше или равна целевой
func (r UserRole) IsHigherOrEqual(target UserRole) bool {
	hierarchy := map[UserRole]int{
		RoleDriver:            0,
		RoleMechanic:          0,
		RoleDispatcher:        1,
		RoleComplianceOfficer: 2,
		RoleManager:           3,
		RoleAdmin:             4,
	}

	currentLevel, ok1 := hierarchy[r]
	targetLevel, ok2 := hierarchy[target]
	if !ok1 || !ok2 {
		return false
	}

	return currentLevel >= targetLevel
}

func (r UserRole) String() string {
	return string(r)
}

func AllRoles() []UserRole {
	return []UserRole{
		RoleDriver,
		RoleMechanic,
		RoleDispatcher,
		RoleComplianceOfficer,
		RoleManager,
		RoleAdmin,
	}
}

func RoleFromString(role string) (UserRole, bool) {
	r := UserRole(role)
	if r.IsValid() {
		return r, true
	}
	return "", false
}
