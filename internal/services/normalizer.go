package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"seatwatch/internal/domain"
)

const (
	defaultCredit      = 3
	defaultDegreeLevel = "UNDERGRADUATE"
)

// NormalizeRecord turns one raw feed record into a Section. It is a pure
// transform: sectionId, courseCode, sectionType and capacity must be present,
// everything else falls back to a default. Field aliases cover the renames
// seen across feed versions.
func NormalizeRecord(raw domain.RawRecord, fetchedAt time.Time) (domain.Section, error) {
	var s domain.Section

	id, err := requiredInt(raw, "sectionId", "section_id")
	if err != nil {
		return s, err
	}
	code, ok := lookup(raw, "courseCode", "course_code")
	if !ok || strings.TrimSpace(asString(code)) == "" {
		return s, malformed("courseCode", "missing")
	}
	typ, ok := lookup(raw, "sectionType", "section_type")
	if !ok {
		return s, malformed("sectionType", "missing")
	}
	capacity, err := requiredInt(raw, "capacity")
	if err != nil {
		return s, err
	}

	s.SectionID = id
	s.CourseCode = strings.TrimSpace(asString(code))
	s.SectionType = domain.ParseSectionType(strings.ToUpper(strings.TrimSpace(asString(typ))))
	s.Capacity = int(capacity)

	if s.CourseID, err = optionalInt(raw, 0, "courseId", "course_id"); err != nil {
		return s, err
	}
	credit, err := optionalInt(raw, defaultCredit, "courseCredit", "credit")
	if err != nil {
		return s, err
	}
	s.Credit = int(credit)
	consumed, err := optionalInt(raw, 0, "consumedSeat", "consumedSeats")
	if err != nil {
		return s, err
	}
	s.ConsumedSeats = int(consumed)

	// An explicit feed value wins over the derived one; both are clamped.
	available := int64(s.Capacity - s.ConsumedSeats)
	if v, ok := lookup(raw, "realTimeSeatCount", "availableSeats", "availableSeat"); ok {
		n, ok := asInt(v)
		if !ok {
			return s, malformed("realTimeSeatCount", "not a number")
		}
		available = n
	}
	s.AvailableSeats = domain.ClampSeats(int(available))

	if s.SemesterSessionID, err = optionalInt(raw, 0, "semesterSessionId", "semester_session_id"); err != nil {
		return s, err
	}
	s.SectionName = optionalString(raw, "", "sectionName", "section_name")
	s.RoomName = optionalString(raw, "", "roomName", "room")
	s.RoomNumber = optionalString(raw, "", "roomNumber")
	s.Faculties = optionalString(raw, "", "faculties", "faculty")
	s.DegreeLevel = optionalString(raw, defaultDegreeLevel, "academicDegree", "degreeLevel")

	if v, ok := lookup(raw, "sectionSchedule", "schedule"); ok {
		sched, err := decodeSchedule(v)
		if err != nil {
			return s, malformed("sectionSchedule", err.Error())
		}
		s.Schedule = sched
	}
	s.LastFetchedAt = fetchedAt.UTC()
	return s, nil
}

func malformed(field, why string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrMalformedRecord, field, why)
}

// lookup returns the first key present with a non-null value.
func lookup(raw domain.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func requiredInt(raw domain.RawRecord, keys ...string) (int64, error) {
	v, ok := lookup(raw, keys...)
	if !ok {
		return 0, malformed(keys[0], "missing")
	}
	n, ok := asInt(v)
	if !ok {
		return 0, malformed(keys[0], "not a number")
	}
	return n, nil
}

func optionalInt(raw domain.RawRecord, def int64, keys ...string) (int64, error) {
	v, ok := lookup(raw, keys...)
	if !ok {
		return def, nil
	}
	n, ok := asInt(v)
	if !ok {
		return 0, malformed(keys[0], "not a number")
	}
	return n, nil
}

func optionalString(raw domain.RawRecord, def string, keys ...string) string {
	v, ok := lookup(raw, keys...)
	if !ok {
		return def
	}
	if s := strings.TrimSpace(asString(v)); s != "" {
		return s
	}
	return def
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int, int64:
		return fmt.Sprint(s)
	}
	return ""
}

// decodeSchedule reshapes the loosely-typed schedule object into a Schedule,
// dropping null meeting entries.
func decodeSchedule(v any) (domain.Schedule, error) {
	var sched domain.Schedule
	b, err := json.Marshal(v)
	if err != nil {
		return sched, err
	}
	if err := json.Unmarshal(b, &sched); err != nil {
		return sched, err
	}
	sched.ClassSchedules = compactMeetings(sched.ClassSchedules)
	if sched.LabSection != nil {
		sched.LabSection.LabSchedules.ClassSchedules = compactMeetings(sched.LabSection.LabSchedules.ClassSchedules)
	}
	return sched, nil
}

func compactMeetings(in []domain.ClassSchedule) []domain.ClassSchedule {
	out := in[:0]
	for _, m := range in {
		if m != (domain.ClassSchedule{}) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
