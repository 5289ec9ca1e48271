package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the single authorization role held by a user.
type Role uint8

const (
	RoleAdministrator Role = 1
	RoleEmployee      Role = 2
)

// RoleRecord is the seeded lookup table backing Role.
type RoleRecord struct {
	ID   Role   `gorm:"primarykey;autoIncrement:false" json:"id"`
	Name string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
}

func (RoleRecord) TableName() string {
	return "roles"
}

// AllRoles returns every role in id order.
func AllRoles() []Role {
	return []Role{RoleAdministrator, RoleEmployee}
}

func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "Administrator"
	case RoleEmployee:
		return "Employee"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleEmployee
}

// ParseRole accepts a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "administrator", "admin":
		return RoleAdministrator, nil
	case "employee":
		return RoleEmployee, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var id uint8
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("invalid role: %s", data)
		}
		*r = Role(id)
		return nil
	}
	parsed, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
