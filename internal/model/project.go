package model

import "time"

// Project is a generated site owned by a user.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectFile is a single file of a project. Path is unique within a project.
type ProjectFile struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File type tags.
const (
	FileTypeHTML       = "html"
	FileTypeCSS        = "css"
	FileTypeJavaScript = "javascript"
	FileTypeJSON       = "json"
	FileTypeOther      = "other"
)
