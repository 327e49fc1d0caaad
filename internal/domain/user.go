package domain

import "time"

type User struct {
	ID                        string    `json:"id"`
	Email                     string    `json:"email"`
	FullName                  string    `json:"full_name"`
	EmailNotificationsEnabled bool      `json:"email_notifications_enabled"`
	CreatedAt                 time.Time `json:"created_at"`
}
