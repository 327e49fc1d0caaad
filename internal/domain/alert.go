package domain

import "time"

const (
	DefaultIntervalMinutes = 30
	MinIntervalMinutes     = 1
	MaxIntervalMinutes     = 1440
)

// Alert is a user's subscription to one section. (UserID, SectionID) is unique.
type Alert struct {
	ID                          string     `json:"id"`
	UserID                      string     `json:"user_id"`
	SectionID                   int64      `json:"section_id"`
	NotificationIntervalMinutes int        `json:"notification_interval_minutes"`
	IsActive                    bool       `json:"is_active"`
	LastNotificationSentAt      *time.Time `json:"last_notification_sent"`
	NotificationCount           int        `json:"notification_count"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   *time.Time `json:"updated_at,omitempty"`
}

// CooldownElapsed reports whether at least the alert's interval has passed
// since the last notification. A never-notified alert is always elapsed.
func (a Alert) CooldownElapsed(now time.Time) bool {
	if a.LastNotificationSentAt == nil {
		return true
	}
	interval := time.Duration(a.NotificationIntervalMinutes) * time.Minute
	return now.Sub(*a.LastNotificationSentAt) >= interval
}

// AlertCandidate is the flattened alert + recipient + current section
// projection read by the eligibility pass.
type AlertCandidate struct {
	Alert
	UserEmail            string
	NotificationsEnabled bool
	Section              Section
}

// AlertView decorates an alert for API responses.
type AlertView struct {
	Alert
	User           *User    `json:"user,omitempty"`
	Course         *Section `json:"course,omitempty"`
	ShouldNotify   bool     `json:"should_notify"`
	CourseHasSeats bool     `json:"course_has_seats"`
}

type AlertUpdate struct {
	NotificationIntervalMinutes *int
	IsActive                    *bool
}

// SeatAlert is the structured payload handed to an email sender. Rendering
// it into markup is the sender's job.
type SeatAlert struct {
	AlertID        string   `json:"-"`
	Recipient      string   `json:"user_email"`
	CourseCode     string   `json:"course_code"`
	SectionName    string   `json:"section_name"`
	AvailableSeats int      `json:"available_seats"`
	Capacity       int      `json:"capacity"`
	RoomName       string   `json:"room_name,omitempty"`
	Faculties      string   `json:"faculties,omitempty"`
	Schedule       Schedule `json:"schedule_data"`
}

// DispatchResult is the caller-visible result of one notify pass.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
