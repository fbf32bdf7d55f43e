package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a remote record identifier. The API emits integers today but the
// console treats identifiers as opaque, so both JSON numbers and strings decode.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON keeps numeric identifiers numeric on the way out.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form the API
// produces for naive UTC datetimes.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("decoding timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// StatusError is a non-2xx answer from the remote API. Message is the
// human-readable text extracted from the error body, empty if none was found.
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: remote returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: remote returned status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// TokenPair is the login/refresh response. Refresh answers carry no
// refresh_token and no user.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type"` // "bearer"
	User         *Account `json:"user,omitempty"`
}

// Profile is the cached signed-in user kept under the "user" store key.
// AccessToken mirrors the flat key for readers of the older storage shape.
type Profile struct {
	Subject     string    `json:"sub"`
	Email       string    `json:"email,omitempty"`
	Username    string    `json:"username,omitempty"`
	FullName    string    `json:"full_name,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
	AccessToken string    `json:"access_token"`
}

type SignupCommand struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Position string `json:"position" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type Account struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Position  string    `json:"position"`
	CreatedAt Timestamp `json:"created_at"`
}

type ActivityAction string

const (
	ActionLogin      ActivityAction = "login"
	ActionLogout     ActivityAction = "logout"
	ActionUpload     ActivityAction = "upload"
	ActionPredict    ActivityAction = "predict"
	ActionDelete     ActivityAction = "delete"
	ActionNotesSave  ActivityAction = "notes_save"
	ActionNotesClear ActivityAction = "notes_clear"
)

type ActivityOutcome string

const (
	OutcomeSuccess ActivityOutcome = "success"
	OutcomeFailure ActivityOutcome = "failure"
)

// ActivityLog is the local journal of what this workstation did against the
// remote API. It never stores PHI beyond identifiers.
type ActivityLog struct {
	ID         string    `gorm:"column:id;type:varchar(36);primaryKey"`
	OccurredAt time.Time `gorm:"column:occurred_at;autoCreateTime;index"`

	Action       ActivityAction  `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string          `gorm:"column:resource_type;type:varchar(30);not null"`
	ResourceID   string          `gorm:"column:resource_id;type:varchar(50);index"`
	Outcome      ActivityOutcome `gorm:"column:outcome;type:varchar(10);not null"`
	Detail       string          `gorm:"column:detail;type:text"`
	RequestID    string          `gorm:"column:request_id;type:varchar(50)"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
