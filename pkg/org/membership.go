package org

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, display_name, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts a new portal operator user.
func (s *Repo) CreateUser(ctx context.Context, email, displayName string, passwordHash *string) (User, error) {
	query := `INSERT INTO users (email, display_name, password_hash) VALUES ($1, $2, $3) RETURNING ` + userColumns
	u, err := scanUser(s.dbtx.QueryRow(ctx, query, email, displayName, passwordHash))
	if err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email.
func (s *Repo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.dbtx.QueryRow(ctx, query, email))
	if err != nil {
		return User{}, fmt.Errorf("fetching user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by id.
func (s *Repo) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.dbtx.QueryRow(ctx, query, id))
	if err != nil {
		return User{}, fmt.Errorf("fetching user: %w", err)
	}
	return u, nil
}

// CreateMembership grants a user a role within an organization, optionally
// scoped to a single store.
func (s *Repo) CreateMembership(ctx context.Context, userID, orgID uuid.UUID, storeID *uuid.UUID, role string) (Membership, error) {
	query := `INSERT INTO memberships (user_id, org_id, store_id, role) VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, org_id, store_id, role, created_at`
	var m Membership
	err := s.dbtx.QueryRow(ctx, query, userID, orgID, storeID, role).
		Scan(&m.ID, &m.UserID, &m.OrgID, &m.StoreID, &m.Role, &m.CreatedAt)
	if err != nil {
		return Membership{}, fmt.Errorf("inserting membership: %w", err)
	}
	return m, nil
}

// ListMembershipsByUser returns every membership a user holds.
func (s *Repo) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	query := `SELECT id, user_id, org_id, store_id, role, created_at FROM memberships WHERE user_id = $1`
	rows, err := s.dbtx.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &m.StoreID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
