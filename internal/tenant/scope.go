// Package tenant centralizes the per-owner row visibility rule so that
// every data-access path applies the same policy instead of repeating
// inline owner conditionals.
package tenant

import (
	"inmocrm/internal/auth"

	"gorm.io/gorm"
)

// Scope restricts a query to rows owned by the caller. Staff sees all.
func Scope(id auth.Identity) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id.Staff {
			return db
		}
		return db.Where("owner_id = ?", id.UserID)
	}
}
