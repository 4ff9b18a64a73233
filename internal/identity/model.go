package identity

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// User is a stored account record. PasswordHash is persisted but never
// rendered to clients; use Public for any outbound representation.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UnmarshalJSON decodes a stored record, tolerating createdAt values written
// by older clients. An unreadable timestamp decodes as the zero time instead
// of failing the record.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"createdAt"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.CreatedAt = decodeCreatedAt(aux.CreatedAt)
	return nil
}

func decodeCreatedAt(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, _ := parseCreatedAt(s)
		return t
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

// createdAtLayouts are tried in order. Date-only and zone-less forms are read as UTC.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseCreatedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// PublicUser is a User with the password hash stripped.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns the sanitized form of u.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required,max=72"`
}

// ImportRecord is a loosely typed user record accepted by Import. Any field
// may be missing.
type ImportRecord struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
}

// ImportResult reports how many incoming records were added or skipped.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Stats aggregates dashboard figures.
type Stats struct {
	ActiveUsers int       `json:"activeUsers"`
	Signups7d   int       `json:"signups7d"`
	ServerTime  time.Time `json:"serverTime"`
}

// fold returns the case-folded form used for identity comparisons.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func sameIdentity(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return fold(a) == fold(b)
}

func publicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
