// Package users mirrors signed-in identities into Postgres so profiles
// outlive the authentication provider's session.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasklane/tasklane-backend/internal/auth/domain"
)

var ErrNotFound = errors.New("user not found")

// Schema is applied by Migrate. It is safe to run on every start.
const Schema = `
create table if not exists users (
  id uuid primary key default gen_random_uuid(),
  firebase_uid text not null unique,
  email text,
  display_name text,
  photo_url text,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now(),
  last_sign_in_at timestamptz
);
`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type Profile struct {
	ID           string     `json:"id"`
	FirebaseUID  string     `json:"firebase_uid"`
	Email        *string    `json:"email,omitempty"`
	DisplayName  *string    `json:"display_name,omitempty"`
	PhotoURL     *string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}

func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// EnsureUser upserts u and stamps the sign-in time. Empty profile fields
// never overwrite stored ones.
func (r *Repo) EnsureUser(ctx context.Context, u *domain.User) (string, error) {
	if u == nil || u.ID == "" {
		return "", fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into users (firebase_uid, email, display_name, photo_url, updated_at, last_sign_in_at)
values ($1, nullif($2,''), nullif($3,''), nullif($4,''), now(), now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  photo_url = coalesce(excluded.photo_url, users.photo_url),
  updated_at = now(),
  last_sign_in_at = now()
returning id::text;
`
	var id string
	err := r.db.QueryRow(ctx, q,
		u.ID,
		domain.Value(u.Email),
		domain.Value(u.DisplayName),
		domain.Value(u.AvatarURL),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("ensure user: %w", err)
	}
	return id, nil
}

func (r *Repo) GetByFirebaseUID(ctx context.Context, uid string) (*Profile, error) {
	const q = `
select id::text, firebase_uid, email, display_name, photo_url, created_at, last_sign_in_at
from users
where firebase_uid = $1;
`
	var p Profile
	err := r.db.QueryRow(ctx, q, uid).Scan(
		&p.ID, &p.FirebaseUID, &p.Email, &p.DisplayName, &p.PhotoURL, &p.CreatedAt, &p.LastSignInAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &p, nil
}
