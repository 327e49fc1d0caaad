package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"seatwatch/internal/domain"
)

type SectionRepo struct{ db *sqlx.DB }

func NewSectionRepo(db *sqlx.DB) *SectionRepo { return &SectionRepo{db: db} }

type sectionRow struct {
	SectionID         int64          `db:"section_id"`
	CourseID          int64          `db:"course_id"`
	SectionName       string         `db:"section_name"`
	CourseCode        string         `db:"course_code"`
	Credit            int            `db:"course_credit"`
	SectionType       string         `db:"section_type"`
	Capacity          int            `db:"capacity"`
	ConsumedSeats     int            `db:"consumed_seat"`
	AvailableSeats    int            `db:"available_seats"`
	RoomName          string         `db:"room_name"`
	RoomNumber        string         `db:"room_number"`
	Faculties         string         `db:"faculties"`
	DegreeLevel       string         `db:"academic_degree"`
	SemesterSessionID int64          `db:"semester_session_id"`
	Schedule          types.JSONText `db:"schedule_data"`
	LastFetchedAt     string         `db:"last_fetched_at"`
}

var sectionCols = sectionColumns("", "")

// sectionColumns lists the section projection. alias qualifies the table in
// joins; prefix names the columns for a nested sqlx struct ("section.room_name").
func sectionColumns(alias, prefix string) string {
	a := ""
	if alias != "" {
		a = alias + "."
	}
	as := func(name string) string {
		if prefix == "" {
			return name
		}
		return `"` + prefix + "." + name + `"`
	}
	plain := func(col string) string { return a + col + " AS " + as(col) }
	orEmpty := func(col, def string) string {
		return "COALESCE(" + a + col + ",'" + def + "') AS " + as(col)
	}
	return strings.Join([]string{
		plain("section_id"), plain("course_id"), plain("section_name"), plain("course_code"),
		plain("course_credit"), plain("section_type"), plain("capacity"), plain("consumed_seat"),
		plain("available_seats"), orEmpty("room_name", ""), orEmpty("room_number", ""),
		orEmpty("faculties", ""), plain("academic_degree"), plain("semester_session_id"),
		orEmpty("schedule_data", "{}"), orEmpty("last_fetched_at", ""),
	}, ", ")
}

func (r sectionRow) toDomain() (domain.Section, error) {
	s := domain.Section{
		SectionID:         r.SectionID,
		CourseID:          r.CourseID,
		SectionName:       r.SectionName,
		CourseCode:        r.CourseCode,
		Credit:            r.Credit,
		SectionType:       domain.SectionType(r.SectionType),
		Capacity:          r.Capacity,
		ConsumedSeats:     r.ConsumedSeats,
		AvailableSeats:    r.AvailableSeats,
		RoomName:          r.RoomName,
		RoomNumber:        r.RoomNumber,
		Faculties:         r.Faculties,
		DegreeLevel:       r.DegreeLevel,
		SemesterSessionID: r.SemesterSessionID,
	}
	if len(r.Schedule) > 0 {
		if err := r.Schedule.Unmarshal(&s.Schedule); err != nil {
			return domain.Section{}, fmt.Errorf("section %d schedule: %w", r.SectionID, err)
		}
	}
	t, err := parseTS(r.LastFetchedAt)
	if err != nil {
		return domain.Section{}, err
	}
	s.LastFetchedAt = t
	return s, nil
}

func toDomainList(rows []sectionRow) ([]domain.Section, error) {
	out := make([]domain.Section, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SectionRepo) Get(ctx context.Context, sectionID int64) (domain.Section, error) {
	var row sectionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+sectionCols+` FROM sections WHERE section_id = ?`), sectionID)
	if err != nil {
		return domain.Section{}, err
	}
	return row.toDomain()
}

// ParentCandidates returns the stored non-lab sections with exactly this
// course code, lowest section id first.
func (r *SectionRepo) ParentCandidates(ctx context.Context, courseCode string) ([]domain.Section, error) {
	var rows []sectionRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+sectionCols+`
		FROM sections
		WHERE course_code = ? AND section_type != 'LAB'
		ORDER BY section_id`), courseCode)
	if err != nil {
		return nil, err
	}
	return toDomainList(rows)
}

// SectionFilter mirrors the catalog list query options.
type SectionFilter struct {
	CourseCode    string // case-insensitive substring
	SectionType   string
	AvailableOnly *bool
	Skip, Limit   int
}

func (r *SectionRepo) List(ctx context.Context, f SectionFilter) ([]domain.Section, error) {
	where := `section_type != 'LAB'`
	args := []any{}
	if f.CourseCode != "" {
		where += ` AND LOWER(course_code) LIKE ?`
		args = append(args, "%"+strings.ToLower(f.CourseCode)+"%")
	}
	if f.SectionType != "" {
		where += ` AND section_type = ?`
		args = append(args, f.SectionType)
	}
	if f.AvailableOnly != nil {
		if *f.AvailableOnly {
			where += ` AND available_seats > 0`
		} else {
			where += ` AND available_seats <= 0`
		}
	}
	q := `SELECT ` + sectionCols + ` FROM sections WHERE ` + where + `
		ORDER BY course_code, section_name, section_id
		LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip)

	var rows []sectionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return toDomainList(rows)
}

func (r *SectionRepo) ByCode(ctx context.Context, code string) ([]domain.Section, error) {
	var rows []sectionRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+sectionCols+`
		FROM sections
		WHERE LOWER(course_code) = LOWER(?)
		ORDER BY section_name, section_id`), code)
	if err != nil {
		return nil, err
	}
	return toDomainList(rows)
}

// Counts returns total and available (seats > 0) section counts.
func (r *SectionRepo) Counts(ctx context.Context) (total, available int, err error) {
	var c struct {
		Total     int `db:"total"`
		Available int `db:"available"`
	}
	err = r.db.GetContext(ctx, &c, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN available_seats > 0 THEN 1 ELSE 0 END), 0) AS available
		FROM sections`)
	return c.Total, c.Available, err
}

// LastFetched is the most recent sync timestamp across the catalog, nil
// when nothing has been synced yet.
func (r *SectionRepo) LastFetched(ctx context.Context) (*time.Time, error) {
	var s sql.NullString
	if err := r.db.GetContext(ctx, &s, `SELECT MAX(last_fetched_at) FROM sections`); err != nil {
		return nil, err
	}
	if !s.Valid {
		return nil, nil
	}
	return parseTSPtr(s.String)
}

// CatalogBatch is one atomic unit of catalog writes. Isolate runs fn so that
// a failure inside it is undone without aborting the rest of the batch.
type CatalogBatch interface {
	Get(ctx context.Context, sectionID int64) (domain.Section, bool, error)
	Insert(ctx context.Context, s domain.Section) error
	Update(ctx context.Context, s domain.Section) error
	Isolate(ctx context.Context, fn func() error) error
	Commit() error
	Rollback() error
}

func (r *SectionRepo) BeginBatch(ctx context.Context) (CatalogBatch, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sectionTx{tx: tx}, nil
}

type sectionTx struct{ tx *sqlx.Tx }

func (t *sectionTx) Get(ctx context.Context, sectionID int64) (domain.Section, bool, error) {
	var row sectionRow
	err := t.tx.GetContext(ctx, &row, t.tx.Rebind(`SELECT `+sectionCols+` FROM sections WHERE section_id = ?`), sectionID)
	if err == sql.ErrNoRows {
		return domain.Section{}, false, nil
	}
	if err != nil {
		return domain.Section{}, false, err
	}
	s, err := row.toDomain()
	return s, err == nil, err
}

func scheduleJSON(s domain.Schedule) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

func (t *sectionTx) Insert(ctx context.Context, s domain.Section) error {
	sched, err := scheduleJSON(s.Schedule)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, t.tx.Rebind(`
	  INSERT INTO sections
	    (section_id, course_id, section_name, course_code, course_credit, section_type,
	     capacity, consumed_seat, available_seats, room_name, room_number, faculties,
	     academic_degree, semester_session_id, schedule_data, last_fetched_at, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), s.SectionID, s.CourseID, s.SectionName, s.CourseCode, s.Credit, string(s.SectionType),
		s.Capacity, s.ConsumedSeats, s.AvailableSeats, s.RoomName, s.RoomNumber, s.Faculties,
		s.DegreeLevel, s.SemesterSessionID, sched, formatTS(s.LastFetchedAt), formatTS(s.LastFetchedAt))
	return err
}

// Update overwrites every mutable column; section_id is the key and is
// never rewritten.
func (t *sectionTx) Update(ctx context.Context, s domain.Section) error {
	sched, err := scheduleJSON(s.Schedule)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
	  UPDATE sections SET
	    course_id = ?, section_name = ?, course_code = ?, course_credit = ?, section_type = ?,
	    capacity = ?, consumed_seat = ?, available_seats = ?, room_name = ?, room_number = ?,
	    faculties = ?, academic_degree = ?, semester_session_id = ?, schedule_data = ?,
	    last_fetched_at = ?, updated_at = ?
	  WHERE section_id = ?
	`), s.CourseID, s.SectionName, s.CourseCode, s.Credit, string(s.SectionType),
		s.Capacity, s.ConsumedSeats, s.AvailableSeats, s.RoomName, s.RoomNumber,
		s.Faculties, s.DegreeLevel, s.SemesterSessionID, sched,
		formatTS(s.LastFetchedAt), formatTS(s.LastFetchedAt), s.SectionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("section %d vanished during update", s.SectionID)
	}
	return nil
}

func (t *sectionTx) Isolate(ctx context.Context, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, `SAVEPOINT catalog_record`); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if _, rerr := t.tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT catalog_record`); rerr != nil {
			return fmt.Errorf("%w (savepoint rollback: %v)", err, rerr)
		}
		_, _ = t.tx.ExecContext(ctx, `RELEASE SAVEPOINT catalog_record`)
		return err
	}
	_, err := t.tx.ExecContext(ctx, `RELEASE SAVEPOINT catalog_record`)
	return err
}

func (t *sectionTx) Commit() error   { return t.tx.Commit() }
func (t *sectionTx) Rollback() error { return t.tx.Rollback() }
