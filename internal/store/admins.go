package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoAdminSession is returned for unknown or revoked admin session IDs.
var ErrNoAdminSession = errors.New("no valid admin session")

type adminDoc struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

type adminSessionDoc struct {
	ID      string `json:"id"`
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
}

// AdminSession identifies the admin behind a session cookie.
type AdminSession struct {
	AdminID string
	Email   string
}

// Admins stores admin accounts and their login sessions as JSON documents.
type Admins struct {
	db *sql.DB
}

// Seed creates the first admin account when none exists. Later calls are
// no-ops even if email differs.
func (s *Admins) Seed(ctx context.Context, email, password string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	admin := adminDoc{
		ID:           newID(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
	}
	data, err := json.Marshal(admin)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admins (id, email, data) VALUES (?, ?, jsonb(?))`,
		admin.ID, admin.Email, string(data),
	)
	return err
}

// Authenticate checks credentials and returns the matching admin. Unknown emails and
// wrong passwords both return ErrNotFound.
func (s *Admins) Authenticate(ctx context.Context, email, password string) (AdminSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM admins WHERE email = ?`, normalizeEmail(email),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return AdminSession{}, ErrNotFound
	}
	if err != nil {
		return AdminSession{}, err
	}
	var a adminDoc
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return AdminSession{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return AdminSession{}, ErrNotFound
	}
	return AdminSession{AdminID: a.ID, Email: a.Email}, nil
}

func (s *Admins) CreateSession(ctx context.Context, admin AdminSession) (string, error) {
	sessionID := newID()
	data, err := json.Marshal(adminSessionDoc{
		ID:      sessionID,
		AdminID: admin.AdminID,
		Email:   admin.Email,
	})
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO admin_sessions (id, data) VALUES (?, jsonb(?))`,
		sessionID, string(data),
	)
	return sessionID, err
}

func (s *Admins) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE id = ?`, sessionID,
	)
	return err
}

func (s *Admins) FromSession(ctx context.Context, sessionID string) (AdminSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM admin_sessions WHERE id = ?`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return AdminSession{}, ErrNoAdminSession
	}
	if err != nil {
		return AdminSession{}, err
	}
	var as adminSessionDoc
	if err := json.Unmarshal([]byte(data), &as); err != nil {
		return AdminSession{}, err
	}
	return AdminSession{AdminID: as.AdminID, Email: as.Email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
