package model

import "time"

// StoredFile represents a file held by the taxonomy store.
// Subcategory is empty for files saved at the category level.
type StoredFile struct {
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Path        string    `json:"-"`
	Bytes       int64     `json:"bytes"`
	Size        string    `json:"size"`
	Modified    time.Time `json:"modified"`
}

// Scope renders the location of a file as "Category" or "Category/Subcategory".
func (f StoredFile) Scope() string {
	if f.Subcategory == "" {
		return f.Category
	}
	return f.Category + "/" + f.Subcategory
}

// FileStats aggregates download counters for a single file name.
type FileStats struct {
	Name        string `json:"name"`
	Total       int    `json:"total"`
	UniqueUsers int    `json:"unique_users"`
}

// UserStats aggregates download counters for a single user.
type UserStats struct {
	UserID  string         `json:"user_id"`
	Total   int            `json:"total"`
	Files   int            `json:"files"`
	PerFile map[string]int `json:"per_file"`
}
