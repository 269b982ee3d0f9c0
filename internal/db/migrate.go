package db

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_bcrypt TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS portal_credentials (
	user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	portal_username TEXT NOT NULL DEFAULT '',
	portal_password_enc TEXT NOT NULL DEFAULT '',
	rider_name TEXT NOT NULL DEFAULT '',
	rider_department TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ride_history (
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	app_id BIGINT NOT NULL,
	appointment_data_id BIGINT NOT NULL DEFAULT 0,
	resource_id BIGINT NOT NULL DEFAULT 0,
	resource_name TEXT NOT NULL DEFAULT '',
	period_text TEXT NOT NULL DEFAULT '',
	creator_name TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	status_name TEXT NOT NULL DEFAULT '',
	appointment_time TEXT NOT NULL DEFAULT '',
	sign_time TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, app_id)
);

CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_ride_history_user ON ride_history(user_id);
`

// Migrate applies the schema. Every statement is idempotent, so it is safe to
// run on each startup.
func Migrate(ctx context.Context, d *DB) error {
	return d.Exec(ctx, schemaSQL)
}
