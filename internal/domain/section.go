package domain

import "time"

type SectionType string

const (
	SectionLecture SectionType = "LECTURE"
	SectionLab     SectionType = "LAB"
	SectionOther   SectionType = "OTHER"
)

// ParseSectionType maps feed values onto the known types; anything
// unrecognised becomes OTHER.
func ParseSectionType(s string) SectionType {
	switch SectionType(s) {
	case SectionLecture, SectionLab:
		return SectionType(s)
	}
	return SectionOther
}

// Section is one offered instance of a course. SectionID is the
// reconciliation key and never changes once stored.
type Section struct {
	SectionID         int64       `json:"section_id"`
	CourseID          int64       `json:"course_id"`
	SectionName       string      `json:"section_name"`
	CourseCode        string      `json:"course_code"`
	Credit            int         `json:"course_credit"`
	SectionType       SectionType `json:"section_type"`
	Capacity          int         `json:"capacity"`
	ConsumedSeats     int         `json:"consumed_seat"`
	AvailableSeats    int         `json:"available_seats"`
	RoomName          string      `json:"room_name,omitempty"`
	RoomNumber        string      `json:"room_number,omitempty"`
	Faculties         string      `json:"faculties,omitempty"`
	DegreeLevel       string      `json:"academic_degree"`
	SemesterSessionID int64       `json:"semester_session_id"`
	Schedule          Schedule    `json:"schedule_data"`
	LastFetchedAt     time.Time   `json:"last_fetched_at"`
}

func (s Section) IsLab() bool    { return s.SectionType == SectionLab }
func (s Section) HasSeats() bool { return s.AvailableSeats > 0 }

// ClampSeats never lets a seat count go below zero.
func ClampSeats(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

type ClassSchedule struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Schedule is the structured meeting/exam payload of a section. Lab data
// only ever appears here, embedded in its parent.
type Schedule struct {
	ClassSchedules     []ClassSchedule `json:"classSchedules"`
	ClassStartDate     string          `json:"classStartDate,omitempty"`
	ClassEndDate       string          `json:"classEndDate,omitempty"`
	MidExamDate        string          `json:"midExamDate,omitempty"`
	MidExamStartTime   string          `json:"midExamStartTime,omitempty"`
	MidExamEndTime     string          `json:"midExamEndTime,omitempty"`
	FinalExamDate      string          `json:"finalExamDate,omitempty"`
	FinalExamStartTime string          `json:"finalExamStartTime,omitempty"`
	FinalExamEndTime   string          `json:"finalExamEndTime,omitempty"`
	FinalExamDetail    string          `json:"finalExamDetail,omitempty"`
	LabSection         *LabSection     `json:"labSection,omitempty"`
}

type LabSection struct {
	LabSectionID  int64        `json:"labSectionId"`
	LabCourseCode string       `json:"labCourseCode"`
	LabFaculties  string       `json:"labFaculties"`
	LabName       string       `json:"labName"`
	LabRoomName   string       `json:"labRoomName"`
	LabSchedules  LabSchedules `json:"labSchedules"`
}

type LabSchedules struct {
	ClassSchedules []ClassSchedule `json:"classSchedules"`
}

// SyncOutcome is the caller-visible result of one reconciliation pass.
type SyncOutcome struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type SyncStatus struct {
	TotalCourses int        `json:"total_courses"`
	LastSync     *time.Time `json:"last_sync"`
	SyncEnabled  bool       `json:"sync_enabled"`
}

type CatalogStats struct {
	TotalCourses     int     `json:"total_courses"`
	AvailableCourses int     `json:"available_courses"`
	FullCourses      int     `json:"full_courses"`
	AvailabilityRate float64 `json:"availability_rate"`
}

// RawRecord is one loosely-typed record from the upstream feed.
type RawRecord map[string]any
