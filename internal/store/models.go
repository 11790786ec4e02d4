package store

import (
	"encoding/json"
	"time"
)

// Settings are the display options of a public page.
type Settings struct {
	Boxed    bool
	Numbered bool
	Theme    int
}

type User struct {
	ID          string
	Handle      string
	DisplayName string
	AvatarURL   string
	Settings    Settings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Question struct {
	ID        string
	UserID    string
	Index     int
	Text      string
	Answer    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Page is everything the public renderer needs for one handle.
type Page struct {
	Handle      string
	DisplayName string
	AvatarURL   string
	Settings    Settings
	Questions   []PageQuestion
}

type PageQuestion struct {
	Text   string
	Answer json.RawMessage
}
