package entity

import (
	"time"
)

// User is the identity-provider owned account as seen by this service.
// Read only: credentials never reach this side.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}
