package models

import "time"

// Roles assignable to a user.
const (
	RoleDealer     = "dealer"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// User is a dealer or support administrator, created on first login
// from the Telegram identity and never deleted in-app.
type User struct {
	ID           string    `db:"id" json:"id"`
	TelegramID   string    `db:"telegram_id" json:"telegram_id"`
	Name         string    `db:"name" json:"name"`
	PhotoURL     *string   `db:"photo_url" json:"photo_url,omitempty"`
	Role         string    `db:"role" json:"role"`
	City         *string   `db:"city" json:"city,omitempty"`
	DealerCenter *string   `db:"dealer_center" json:"dealer_center,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user may act on any request.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperadmin
}

// DealerCenterRow is a dealer-center lookup entry keyed by city.
type DealerCenterRow struct {
	ID   int    `db:"id" json:"id"`
	City string `db:"city" json:"city"`
	Name string `db:"name" json:"name"`
}
