package entity

import "time"

// Role is the single authorization role carried by a user.
type Role string

const (
	RoleStore     Role = "store"
	RolePurchaser Role = "purchaser"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStore, RolePurchaser, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated actor. Authorization is by role only; there is
// no per-object ACL beyond ownership checks in the services.
type User struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	Username       string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"size:100;not null"`
	Role           Role      `json:"role" gorm:"size:20;not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
