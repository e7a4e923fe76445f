// Package model defines the core domain types for meeting registration.
package model

import (
	"strings"
	"time"
)

// Role is the capability class of an authenticated principal.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleManager     Role = "manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleParticipant || r == RoleManager
}

// PaymentPending is the only payment status this service ever writes.
const PaymentPending = "pending"

// MaxEntries is the upper bound on event entries per registration.
const MaxEntries = 5

// Principal is the verified identity attached to a request.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// CanRegister reports whether the principal may commit registrations.
func (p *Principal) CanRegister() bool {
	return p != nil && p.Role == RoleParticipant
}

// Profile is a row of the profile store keyed by identity subject.
type Profile struct {
	ID        string
	Email     string
	FirstName string
	Surname   string
	Role      Role
}

// Principal converts the profile into a request principal.
func (p Profile) Principal() *Principal {
	return &Principal{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: strings.TrimSpace(p.FirstName + " " + p.Surname),
		Role:        p.Role,
	}
}

// Meeting is a competition a participant can enter.
type Meeting struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Description string    `json:"description,omitempty"`
	ClosingAt   time.Time `json:"closingAt"`
	IsOpen      bool      `json:"isOpen"`
}

// AcceptsEntries returns true while the meeting is flagged open and has not
// passed its closing time.
func (m *Meeting) AcceptsEntries(now time.Time) bool {
	return m.IsOpen && !now.After(m.ClosingAt)
}

// Event is a catalog entry such as "100m" or "Long Jump".
type Event struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// AgeGroup is a catalog age band.
type AgeGroup struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	MinAge *int   `json:"minAge,omitempty"`
	MaxAge *int   `json:"maxAge,omitempty"`
}

// EventEntryDraft is one staged, uncommitted event entry.
type EventEntryDraft struct {
	EventID      string `json:"eventId"`
	AgeGroupID   string `json:"ageGroupId"`
	PersonalBest string `json:"personalBest,omitempty"`
	PBVenue      string `json:"pbVenue,omitempty"`
	PBDate       string `json:"pbDate,omitempty"`
}

// EventEntry is a committed entry owned by a Registration.
type EventEntry struct {
	ID           string `json:"id"`
	EventID      string `json:"eventId"`
	AgeGroupID   string `json:"ageGroupId"`
	PersonalBest string `json:"personalBest,omitempty"`
	PBVenue      string `json:"pbVenue,omitempty"`
	PBDate       string `json:"pbDate,omitempty"`
	Cost         int64  `json:"cost"`
}

// Registration is the durable record of a committed entry-set.
type Registration struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	MeetingID     string       `json:"meetingId"`
	Events        []EventEntry `json:"events"`
	TotalCost     int64        `json:"totalCost"`
	PaymentStatus string       `json:"paymentStatus"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// SubmitRegistrationRequest is the payload for committing a registration.
type SubmitRegistrationRequest struct {
	MeetingID string            `json:"meetingId"`
	Events    []EventEntryDraft `json:"events"`
}

// SessionResponse is the body of the session endpoint.
type SessionResponse struct {
	User  *Principal `json:"user"`
	Error string     `json:"error,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}
