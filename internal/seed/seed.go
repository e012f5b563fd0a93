// Package seed bootstraps the minimum data a fresh deployment needs.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	"github.com/smallbiznis/paybook/internal/auth/password"
	"gorm.io/gorm"
)

// EnsureSuperAdmin creates the platform super-admin account when no user
// with the given email exists. An existing account is promoted if it does
// not already carry the super-admin role.
func EnsureSuperAdmin(db *gorm.DB, email, plaintext string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plaintext == "" {
		return errors.New("seed admin credentials are required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			if user.SystemRole == authdomain.SystemRoleSuperAdmin {
				return nil
			}
			return tx.WithContext(ctx).Model(&user).
				Update("system_role", authdomain.SystemRoleSuperAdmin).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(plaintext)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			DisplayName:  "Administrator",
			PasswordHash: &hashed,
			SystemRole:   authdomain.SystemRoleSuperAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
