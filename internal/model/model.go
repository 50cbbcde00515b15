// Package model defines the core domain types for the activity board.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Activity is one entry of the activities listing, keyed by its name.
type Activity struct {
	Name            string        `json:"-"`
	Description     string        `json:"description"`
	Schedule        string        `json:"schedule"`
	MaxParticipants int           `json:"max_participants"`
	Participants    []Participant `json:"participants"`
}

// SpotsLeft returns the remaining capacity. It goes negative when the roster
// exceeds max_participants.
func (a *Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Participant is either a bare identifier (usually an email) or a
// {name, email} record.
type Participant struct {
	Raw   string `json:"-"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts a JSON string, a {name, email} object or null.
func (p *Participant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = Participant{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Participant{Raw: s}
		return nil
	case len(data) > 0 && data[0] == '{':
		var rec struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		*p = Participant{Name: rec.Name, Email: rec.Email}
		return nil
	default:
		return fmt.Errorf("participant: unsupported JSON value %s", data)
	}
}

// MarshalJSON writes the participant back in the shape it was received in.
func (p Participant) MarshalJSON() ([]byte, error) {
	if p.IsRecord() {
		return json.Marshal(struct {
			Name  string `json:"name,omitempty"`
			Email string `json:"email,omitempty"`
		}{p.Name, p.Email})
	}
	return json.Marshal(p.Raw)
}

// IsRecord reports whether the participant was given as a {name, email} record.
func (p Participant) IsRecord() bool {
	return p.Name != "" || p.Email != ""
}

// DisplayName is the record name, falling back to its email, or the raw string.
func (p Participant) DisplayName() string {
	if p.IsRecord() {
		if p.Name != "" {
			return p.Name
		}
		return p.Email
	}
	return p.Raw
}

// RemoveKey is the identifier sent when removing the participant. An empty
// key means the participant cannot be removed.
func (p Participant) RemoveKey() string {
	if p.IsRecord() {
		return p.Email
	}
	return p.Raw
}

// MessageResponse is the body of a successful mutating request.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignupForm is the user input for a signup action.
type SignupForm struct {
	Email    string `json:"email" validate:"required"`
	Activity string `json:"activity" validate:"required"`
}
