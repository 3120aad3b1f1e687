package models

import "time"

// User is a member of the internal system who may own leads
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName is the full name, or the identifier when the name is blank
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.ID
}

// UpsertUserRequest creates or updates a user
type UpsertUserRequest struct {
	ID       string `json:"id" validate:"required,max=140"`
	FullName string `json:"full_name" validate:"max=140"`
	Enabled  *bool  `json:"enabled"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a plain success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// SyncSummary is returned by bulk owner operations
type SyncSummary struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
	Total   int    `json:"total"`
}

// OwnerSyncResult is returned by a single-lead owner sync
type OwnerSyncResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	NewOwner     string `json:"new_owner,omitempty"`
	NewOwnerName string `json:"new_owner_name,omitempty"`
}
