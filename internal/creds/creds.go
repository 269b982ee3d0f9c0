// Package creds stores each user's portal login and cached rider identity.
// Portal passwords are sealed at rest; they leave the database only to log
// into the campus portal.
package creds

import (
	"context"
	"time"

	"github.com/example/marchkov/internal/crypto"
	"github.com/example/marchkov/internal/db"
	"github.com/example/marchkov/internal/portal"
)

// Credentials is the decrypted form handed to callers.
type Credentials struct {
	UserID         int64
	PortalUsername string
	PortalPassword string
	Profile        portal.Profile
	UpdatedAt      time.Time
}

type Repo struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewRepo(d *db.DB, aead *crypto.AEAD) *Repo {
	return &Repo{db: d, aead: aead}
}

// Save upserts the portal login for a user, sealing the password.
func (r *Repo) Save(ctx context.Context, userID int64, portalUsername, portalPassword string) error {
	enc, err := r.aead.EncryptToString(portalPassword)
	if err != nil {
		return err
	}
	return r.db.Exec(ctx, `
		INSERT INTO portal_credentials (user_id, portal_username, portal_password_enc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET portal_username=$2, portal_password_enc=$3, updated_at=now()
	`, userID, portalUsername, enc)
}

// Get returns the decrypted credentials. db.ErrNotFound when the user never
// saved any.
func (r *Repo) Get(ctx context.Context, userID int64) (Credentials, error) {
	var (
		c   Credentials
		enc string
	)
	err := r.db.QueryRow(ctx, `
		SELECT user_id, portal_username, portal_password_enc, rider_name, rider_department, updated_at
		FROM portal_credentials WHERE user_id=$1
	`, userID).Scan(&c.UserID, &c.PortalUsername, &enc, &c.Profile.Name, &c.Profile.Department, &c.UpdatedAt)
	if err != nil {
		return Credentials{}, db.WrapNotFound(err)
	}
	if enc != "" {
		c.PortalPassword, err = r.aead.DecryptString(enc)
		if err != nil {
			return Credentials{}, err
		}
	}
	return c, nil
}

// SaveProfile caches the rider identity learned from a reservation.
func (r *Repo) SaveProfile(ctx context.Context, userID int64, p portal.Profile) error {
	return r.db.Exec(ctx, `
		UPDATE portal_credentials
		SET rider_name=$2, rider_department=$3, updated_at=now()
		WHERE user_id=$1
	`, userID, p.Name, p.Department)
}
