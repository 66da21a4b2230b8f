package model

import (
	"errors"
	"strings"
	"time"
)

// Item is a lost or found report.
type Item struct {
	ID                 int64      `json:"id" mapstructure:"id"`
	UserID             int64      `json:"user_id" mapstructure:"user_id"`
	Title              string     `json:"title" mapstructure:"title"`
	Description        string     `json:"description" mapstructure:"description"`
	Type               string     `json:"type" mapstructure:"type"`
	Location           string     `json:"location" mapstructure:"location"`
	Status             string     `json:"status" mapstructure:"status"`
	ContactInfo        string     `json:"contact_info,omitempty" mapstructure:"contact_info"`
	ImageURL           string     `json:"image_url,omitempty" mapstructure:"image_url"`
	CreatedAt          time.Time  `json:"created_at" mapstructure:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" mapstructure:"updated_at"`
	VerificationStatus string     `json:"verification_status" mapstructure:"verification_status"`
	VerificationNotes  string     `json:"verification_notes,omitempty" mapstructure:"verification_notes"`
	VerifiedBy         *int64     `json:"verified_by,omitempty" mapstructure:"verified_by"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty" mapstructure:"verified_at"`
	Verifier           *User      `json:"verifier,omitempty" mapstructure:"verifier"`
	User               User       `json:"user" mapstructure:"user"`
}

// Item types.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Item statuses.
const (
	ItemStatusPending  = "pending"
	ItemStatusClaimed  = "claimed"
	ItemStatusResolved = "resolved"
)

// Verification statuses.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// ItemTypes lists the valid item types in display order.
var ItemTypes = []string{ItemTypeLost, ItemTypeFound}

// ItemStatuses lists the valid resolution statuses in display order.
var ItemStatuses = []string{ItemStatusPending, ItemStatusClaimed, ItemStatusResolved}

// OwnedBy reports whether u created the item.
func (i *Item) OwnedBy(u *User) bool {
	if i == nil || u == nil {
		return false
	}
	if i.User.ID != 0 {
		return i.User.ID == u.ID
	}
	return i.UserID == u.ID
}

// CanModify reports whether u may see edit and delete controls for the item.
// The backend enforces the same rule; this only drives rendering.
func (i *Item) CanModify(u *User) bool {
	return i.OwnedBy(u) || u.IsAdmin()
}

// Verification is an admin decision on a pending item.
type Verification struct {
	Status string `json:"verification_status"`
	Notes  string `json:"verification_notes,omitempty"`
}

// Validate checks that the decision is verified or rejected.
func (v Verification) Validate() error {
	if v.Status != VerificationVerified && v.Status != VerificationRejected {
		return errors.New("verification status must be verified or rejected")
	}
	return nil
}

// FieldErrors maps form field names to a human readable problem.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, k := range []string{"title", "type", "location", "description", "status"} {
		if msg, ok := fe[k]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// ItemFields is the editable part of an item as submitted by the item form.
type ItemFields struct {
	Title       string
	Description string
	Type        string
	Location    string
	Status      string
	ContactInfo string
}

// Validate trims the fields in place and reports missing or unknown values.
// Status is optional (create forms do not send it).
func (f *ItemFields) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Location = strings.TrimSpace(f.Location)
	f.ContactInfo = strings.TrimSpace(f.ContactInfo)

	errs := FieldErrors{}
	if f.Title == "" {
		errs["title"] = "Title is required."
	}
	if f.Type != ItemTypeLost && f.Type != ItemTypeFound {
		errs["type"] = "Type must be lost or found."
	}
	if f.Location == "" {
		errs["location"] = "Location is required."
	}
	if f.Description == "" {
		errs["description"] = "Description is required."
	}
	if f.Status != "" && f.Status != ItemStatusPending && f.Status != ItemStatusClaimed && f.Status != ItemStatusResolved {
		errs["status"] = "Unknown status."
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
