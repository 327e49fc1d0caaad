package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"seatwatch/internal/domain"
)

type AlertRepo struct{ db *sqlx.DB }

func NewAlertRepo(db *sqlx.DB) *AlertRepo { return &AlertRepo{db: db} }

type alertRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	SectionID int64  `db:"section_id"`
	Interval  int    `db:"notification_interval_minutes"`
	IsActive  bool   `db:"is_active"`
	LastSent  string `db:"last_notification_sent"`
	Count     int    `db:"notification_count"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

const alertCols = `a.id, a.user_id, a.section_id, a.notification_interval_minutes, a.is_active,
    COALESCE(a.last_notification_sent,'') AS last_notification_sent, a.notification_count,
    a.created_at, COALESCE(a.updated_at,'') AS updated_at`

func (r alertRow) toDomain() (domain.Alert, error) {
	a := domain.Alert{
		ID:                          r.ID,
		UserID:                      r.UserID,
		SectionID:                   r.SectionID,
		NotificationIntervalMinutes: r.Interval,
		IsActive:                    r.IsActive,
		NotificationCount:           r.Count,
	}
	var err error
	if a.LastNotificationSentAt, err = parseTSPtr(r.LastSent); err != nil {
		return domain.Alert{}, err
	}
	if a.CreatedAt, err = parseTS(r.CreatedAt); err != nil {
		return domain.Alert{}, err
	}
	if a.UpdatedAt, err = parseTSPtr(r.UpdatedAt); err != nil {
		return domain.Alert{}, err
	}
	return a, nil
}

// Create inserts a, mapping a lost race on the (user, section) pair to
// domain.ErrAlertExists.
func (r *AlertRepo) Create(ctx context.Context, a domain.Alert) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO alerts(id, user_id, section_id, notification_interval_minutes, is_active, notification_count, created_at)
		VALUES(?, ?, ?, ?, ?, 0, ?)`),
		a.ID, a.UserID, a.SectionID, a.NotificationIntervalMinutes, boolInt(a.IsActive), formatTS(a.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrAlertExists
	}
	return err
}

// Exists reports whether the (user, section) pair is already subscribed.
func (r *AlertRepo) Exists(ctx context.Context, userID string, sectionID int64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM alerts WHERE user_id = ? AND section_id = ?`), userID, sectionID)
	return n > 0, err
}

func (r *AlertRepo) Get(ctx context.Context, id string) (domain.Alert, error) {
	var row alertRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+alertCols+` FROM alerts a WHERE a.id = ?`), id); err != nil {
		return domain.Alert{}, err
	}
	return row.toDomain()
}

// List filters by user when userID is set and by is_active when activeOnly.
func (r *AlertRepo) List(ctx context.Context, userID string, activeOnly bool) ([]domain.Alert, error) {
	where := `1 = 1`
	args := []any{}
	if userID != "" {
		where += ` AND a.user_id = ?`
		args = append(args, userID)
	}
	if activeOnly {
		where += ` AND a.is_active = 1`
	}
	var rows []alertRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+alertCols+` FROM alerts a
		WHERE `+where+`
		ORDER BY a.created_at, a.id`), args...); err != nil {
		return nil, err
	}
	out := make([]domain.Alert, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Update changes only the user-editable settings.
func (r *AlertRepo) Update(ctx context.Context, id string, u domain.AlertUpdate, at time.Time) error {
	set := `updated_at = ?`
	args := []any{formatTS(at)}
	if u.NotificationIntervalMinutes != nil {
		set += `, notification_interval_minutes = ?`
		args = append(args, *u.NotificationIntervalMinutes)
	}
	if u.IsActive != nil {
		set += `, is_active = ?`
		args = append(args, boolInt(*u.IsActive))
	}
	args = append(args, id)
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE alerts SET `+set+` WHERE id = ?`), args...)
	return err
}

func (r *AlertRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM alerts WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type candidateRow struct {
	alertRow
	UserEmail     string     `db:"user_email"`
	Notifications bool       `db:"user_notifications"`
	Section       sectionRow `db:"section"`
}

// Candidates is the flattened projection of every active alert joined with
// its recipient and the section's current seat state.
func (r *AlertRepo) Candidates(ctx context.Context) ([]domain.AlertCandidate, error) {
	var rows []candidateRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+alertCols+`,
		       u.email AS user_email, u.email_notifications_enabled AS user_notifications,
		       `+sectionColumns("s", "section")+`
		FROM alerts a
		JOIN users u    ON u.id = a.user_id
		JOIN sections s ON s.section_id = a.section_id
		WHERE a.is_active = 1
		ORDER BY a.id`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AlertCandidate, 0, len(rows))
	for _, row := range rows {
		a, err := row.alertRow.toDomain()
		if err != nil {
			return nil, err
		}
		s, err := row.Section.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AlertCandidate{
			Alert:                a,
			UserEmail:            row.UserEmail,
			NotificationsEnabled: row.Notifications,
			Section:              s,
		})
	}
	return out, nil
}

// MarkNotified moves the given alerts to "notified at" in one transaction.
// The timestamp guard keeps last_notification_sent monotonic, so a replayed
// or out-of-order write can neither rewind it nor bump the count twice.
func (r *AlertRepo) MarkNotified(ctx context.Context, ids []string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ts := formatTS(at)
	query, args, err := sqlx.In(`
		UPDATE alerts
		SET last_notification_sent = ?, notification_count = notification_count + 1, updated_at = ?
		WHERE id IN (?) AND (last_notification_sent IS NULL OR last_notification_sent < ?)`,
		ts, ts, ids, ts)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}
