package contracts

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Prayer types accepted by the prayers API.
const (
	PrayerPetition     = "petition"
	PrayerThanksgiving = "thanksgiving"
	PrayerLament       = "lament"
	PrayerIntercession = "intercession"
)

// PrayerTypes lists the prayer types in display order.
var PrayerTypes = []string{PrayerPetition, PrayerThanksgiving, PrayerLament, PrayerIntercession}

func IsPrayerType(t string) bool {
	for _, known := range PrayerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Prayer is one wall entry as returned by GET /api/prayers.
type Prayer struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
	AmenCount int       `json:"amen_count"`
}

// PrayerStats is the aggregate returned by GET /api/prayer-stats.
type PrayerStats struct {
	TotalPrayers int            `json:"total_prayers"`
	TotalAmens   int            `json:"total_amens"`
	ByType       map[string]int `json:"by_type"`
}

// PrayerSubmission is the body of POST /api/pray.
type PrayerSubmission struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Author  string `json:"author,omitempty"`
	Country string `json:"country,omitempty"`
	HP      string `json:"hp"`
}

// AmenResult is the body returned by POST /api/amen/{id}.
type AmenResult struct {
	AmenCount int `json:"amen_count"`
}

// PetitionInfo is the body returned by GET /api/{petitionId}/info.
type PetitionInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SignatureCount is the body returned by GET /api/{petitionId}/count.
type SignatureCount struct {
	Count int64 `json:"count"`
}

// Signature is the body of POST /api/{petitionId}/sign. Every field is sent,
// empty or not.
type Signature struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country"`
	Message string `json:"message"`
	HP      string `json:"hp"`
}

// NewPetition is the body of the admin POST /api/petitions.
type NewPetition struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	LinkID      string `json:"link_id"`
}

// CreatedPetition is the admin create response.
type CreatedPetition struct {
	ID PetitionID `json:"id"`
}

// PetitionID accepts either a JSON string or number.
type PetitionID string

func (id *PetitionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PetitionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*id = PetitionID(n.String())
	return nil
}

// timestampLayouts are tried in order when decoding a Timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp decodes the upstream's created_at leniently. A value none of the
// known layouts accept is kept in Raw instead of failing the whole payload.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// At wraps t as a parsed Timestamp.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}
		}
	}
	return Timestamp{Raw: s}
}

// Valid reports whether the value was parsed into Time.
func (ts Timestamp) Valid() bool { return !ts.Time.IsZero() }

// Format renders Time with layout, or Raw when the value never parsed.
func (ts Timestamp) Format(layout string) string {
	if ts.Valid() {
		return ts.Time.Format(layout)
	}
	return ts.Raw
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = ParseTimestamp(s)
		return nil
	}
	*ts = Timestamp{Raw: string(data)}
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case ts.Valid():
		return json.Marshal(ts.Time.Format(time.RFC3339Nano))
	case ts.Raw != "":
		return json.Marshal(ts.Raw)
	default:
		return []byte("null"), nil
	}
}
