package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"seatwatch/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

type userRow struct {
	ID            string `db:"id"`
	Email         string `db:"email"`
	FullName      string `db:"full_name"`
	Notifications bool   `db:"email_notifications_enabled"`
	CreatedAt     string `db:"created_at"`
}

func (r userRow) toDomain() (*domain.User, error) {
	created, err := parseTS(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:                        r.ID,
		Email:                     r.Email,
		FullName:                  r.FullName,
		EmailNotificationsEnabled: r.Notifications,
		CreatedAt:                 created,
	}, nil
}

const userCols = `id, email, full_name, email_notifications_enabled, created_at`

func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO users(id, email, full_name, email_notifications_enabled, created_at)
		VALUES(?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.FullName, boolInt(u.EmailNotificationsEnabled), formatTS(u.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	return err
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := r.DB.GetContext(ctx, &row, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := r.DB.GetContext(ctx, &row, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER(?)`), email); err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *UserRepo) SetNotifications(ctx context.Context, id string, enabled bool) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE users SET email_notifications_enabled = ? WHERE id = ?`), boolInt(enabled), id)
	return err
}
