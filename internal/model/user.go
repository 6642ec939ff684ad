// Package model defines the data structures used throughout the application.
package model

import "strings"

// UserType is the marketplace role of an account.
//
// It is fixed when the backend creates the account and drives which pages
// the UI offers (posting projects vs. submitting bids).
type UserType string

const (
	UserTypeHomeowner  UserType = "homeowner"
	UserTypeContractor UserType = "contractor"
)

// Valid reports whether t is one of the known roles.
func (t UserType) Valid() bool {
	return t == UserTypeHomeowner || t == UserTypeContractor
}

// User is the canonical account record issued by the backend API.
//
// This process never creates or edits users on its own. It receives a User
// from the backend after a federated sign-in and caches a snapshot of it in
// durable local storage under the "user" key.
//
// WHY POINTERS FOR PhotoURL AND FirebaseUID?
// Both are nullable on the backend. A nil pointer marshals to JSON null,
// which round-trips exactly; an empty string would not.
type User struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	UserType    UserType `json:"userType"`
	IsVerified  bool     `json:"isVerified"`
	PhotoURL    *string  `json:"photoURL"`
	FirebaseUID *string  `json:"firebaseUid"`
}

// Clone returns a deep copy of u. Pointer fields are duplicated so the copy
// shares no memory with the original. Clone of a nil *User is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PhotoURL = cloneString(u.PhotoURL)
	c.FirebaseUID = cloneString(u.FirebaseUID)
	return &c
}

// DisplayName returns "First Last", falling back to the username when both
// name parts are blank.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a small helper for building nullable fields in literals.
func StringPtr(s string) *string {
	return &s
}
