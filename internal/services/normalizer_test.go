package services_test

import (
	"encoding/json"
	"errors"
	"testing"

	"seatwatch/internal/domain"
	"seatwatch/internal/services"
)

func TestNormalizeRecord_RequiredFields(t *testing.T) {
	for _, missing := range []string{"sectionId", "courseCode", "sectionType", "capacity"} {
		r := rec(1, "CSE110", "LECTURE", 40, 10)
		delete(r, missing)
		if _, err := services.NormalizeRecord(r, t0); !errors.Is(err, domain.ErrMalformedRecord) {
			t.Fatalf("without %s: want ErrMalformedRecord, got %v", missing, err)
		}
	}

	r := rec(1, "CSE110", "LECTURE", 40, 10)
	r["capacity"] = "forty"
	if _, err := services.NormalizeRecord(r, t0); !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("non-numeric capacity: want ErrMalformedRecord, got %v", err)
	}
}

func TestNormalizeRecord_Defaults(t *testing.T) {
	s, err := services.NormalizeRecord(domain.RawRecord{
		"sectionId":   float64(7),
		"courseCode":  " MAT120 ",
		"sectionType": "SEMINAR",
		"capacity":    float64(30),
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if s.SectionID != 7 || s.CourseCode != "MAT120" {
		t.Fatalf("identity not normalized: %+v", s)
	}
	if s.Credit != 3 || s.DegreeLevel != "UNDERGRADUATE" || s.ConsumedSeats != 0 {
		t.Fatalf("defaults not applied: credit=%d degree=%q consumed=%d", s.Credit, s.DegreeLevel, s.ConsumedSeats)
	}
	if s.SectionType != domain.SectionOther {
		t.Fatalf("unknown type should map to OTHER, got %s", s.SectionType)
	}
	if s.AvailableSeats != 30 {
		t.Fatalf("want 30 available, got %d", s.AvailableSeats)
	}
	if !s.LastFetchedAt.Equal(t0) {
		t.Fatalf("lastFetchedAt = %v", s.LastFetchedAt)
	}
}

func TestNormalizeRecord_AvailableSeats(t *testing.T) {
	cases := []struct {
		name string
		r    domain.RawRecord
		want int
	}{
		{"derived", rec(1, "CSE110", "LECTURE", 40, 35), 5},
		{"derived clamps", rec(1, "CSE110", "LECTURE", 40, 45), 0},
		{"explicit wins", rec(1, "CSE110", "LECTURE", 40, 35, "availableSeats", float64(12)), 12},
		{"explicit clamps", rec(1, "CSE110", "LECTURE", 40, 35, "availableSeats", float64(-3)), 0},
		{"legacy alias", rec(1, "CSE110", "LECTURE", 40, 35, "availableSeat", json.Number("2")), 2},
		{"live count on a full section", rec(1, "CSE110", "LECTURE", 40, 40, "realTimeSeatCount", float64(3)), 3},
		{"live count clamps", rec(1, "CSE110", "LECTURE", 40, 0, "realTimeSeatCount", json.Number("-1")), 0},
		{"live count wins over alias", rec(1, "CSE110", "LECTURE", 40, 35, "realTimeSeatCount", float64(7), "availableSeats", float64(1)), 7},
	}
	for _, tc := range cases {
		s, err := services.NormalizeRecord(tc.r, t0)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if s.AvailableSeats != tc.want {
			t.Fatalf("%s: want %d available, got %d", tc.name, tc.want, s.AvailableSeats)
		}
	}
}

func TestNormalizeRecord_NumberShapes(t *testing.T) {
	s, err := services.NormalizeRecord(domain.RawRecord{
		"section_id":    json.Number("123456789012"),
		"course_code":   "CSE220",
		"section_type":  "lecture",
		"capacity":      "35",
		"consumedSeats": json.Number("5"),
		"courseCredit":  json.Number("4"),
		"faculty":       "ABC",
		"room":          "UB1001",
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if s.SectionID != 123456789012 || s.Capacity != 35 || s.ConsumedSeats != 5 || s.Credit != 4 {
		t.Fatalf("numbers not parsed: %+v", s)
	}
	if s.SectionType != domain.SectionLecture {
		t.Fatalf("type should be case-insensitive, got %s", s.SectionType)
	}
	if s.Faculties != "ABC" || s.RoomName != "UB1001" {
		t.Fatalf("aliases not honoured: %+v", s)
	}
}

func TestNormalizeRecord_Schedule(t *testing.T) {
	r := rec(1, "CSE110", "LECTURE", 40, 10, "sectionSchedule", map[string]any{
		"classSchedules": []any{
			map[string]any{"day": "SUNDAY", "startTime": "08:00", "endTime": "09:20"},
			nil,
		},
		"finalExamDate": "2025-05-20",
	})
	s, err := services.NormalizeRecord(r, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Schedule.ClassSchedules) != 1 || s.Schedule.ClassSchedules[0].Day != "SUNDAY" {
		t.Fatalf("meetings = %+v", s.Schedule.ClassSchedules)
	}
	if s.Schedule.FinalExamDate != "2025-05-20" {
		t.Fatalf("final exam date = %q", s.Schedule.FinalExamDate)
	}

	r["sectionSchedule"] = "not an object"
	if _, err := services.NormalizeRecord(r, t0); !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("bad schedule: want ErrMalformedRecord, got %v", err)
	}
}
