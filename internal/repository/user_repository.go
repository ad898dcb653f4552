package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/utils"
)

// User mirrors the 'users' table.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FullName     string
	StudentID    *string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// ErrStudentIDExists is returned when registering with a student ID that
// another account already claimed.
var ErrStudentIDExists = errors.New("student id already exists")

// Create inserts user and returns its ID. studentID may be empty; when
// set it must be unique across users because gate check-in resolves
// tickets by it.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName, studentID, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var sid interface{}
	if s := strings.TrimSpace(studentID); s != "" {
		sid = s
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, student_id, role) VALUES (?,?,?,?,?)",
		email, hash, strings.TrimSpace(fullName), sid, role)
	if err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "1062") {
			if strings.Contains(low, "student_id") {
				return 0, ErrStudentIDExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userColumns = `id, email, password_hash, full_name, student_id, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	var sid sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &sid,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sid.Valid {
		v := sid.String
		u.StudentID = &v
	}
	return &u, nil
}

// GetByEmail returns a user by email or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID returns a user by primary key. Missing or deactivated users
// are reported as ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// GetByStudentID resolves the unique account carrying a student ID, for
// the student-ID check-in path.
func (r *UserRepo) GetByStudentID(ctx context.Context, studentID string) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE student_id=? LIMIT 1", strings.TrimSpace(studentID)))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Exists reports whether an active user with the given ID exists. The
// transfer protocol uses it to validate recipients before creating a
// pending request.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE id=? AND is_active=1 LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IDsByRole returns the IDs of all active users with the given role.
// Used to fan notifications out to an audience, so only IDs are loaded.
func (r *UserRepo) IDsByRole(ctx context.Context, role string) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id FROM users WHERE role=? AND is_active=1", role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddDeviceToken registers an opaque push token for a user. Duplicate
// registrations are ignored.
func (r *UserRepo) AddDeviceToken(ctx context.Context, userID uint64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO device_tokens (user_id, token) VALUES (?,?)", userID, token)
	return err
}

// DeviceTokens returns the push tokens registered for a user. An empty
// slice means the user has no reachable devices and notification sends
// should be skipped.
func (r *UserRepo) DeviceTokens(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT token FROM device_tokens WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tokens := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, rows.Err()
}
