package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Journal is a user-authored entry. The backend may name the identifier
// either "id" or "_id"; both are folded into ID when decoding, so nothing
// past ingestion needs to know which one was sent.
type Journal struct {
	ID      string
	Title   string
	Content string
	Date    time.Time
}

// JournalInput is the request body for creating or updating an entry.
type JournalInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Input returns the writable fields of j.
func (j Journal) Input() JournalInput {
	return JournalInput{Title: j.Title, Content: j.Content}
}

// Matches reports whether query occurs in the title or content, ignoring case.
// The empty query matches everything.
func (j Journal) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(j.Title), q) ||
		strings.Contains(strings.ToLower(j.Content), q)
}

type journalWire struct {
	ID      json.RawMessage `json:"id"`
	MongoID json.RawMessage `json:"_id"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Date    json.RawMessage `json:"date"`
}

// UnmarshalJSON decodes a journal, normalizing the identifier and date forms.
func (j *Journal) UnmarshalJSON(data []byte) error {
	var w journalWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := decodeID(w.ID)
	if err != nil {
		return fmt.Errorf("journal id: %w", err)
	}
	if id == "" {
		if id, err = decodeID(w.MongoID); err != nil {
			return fmt.Errorf("journal _id: %w", err)
		}
	}

	date, err := decodeDate(w.Date)
	if err != nil {
		return fmt.Errorf("journal date: %w", err)
	}

	*j = Journal{ID: id, Title: w.Title, Content: w.Content, Date: date}
	return nil
}

// MarshalJSON always writes the canonical "id" field.
func (j Journal) MarshalJSON() ([]byte, error) {
	out := struct {
		ID      string     `json:"id,omitempty"`
		Title   string     `json:"title"`
		Content string     `json:"content"`
		Date    *time.Time `json:"date,omitempty"`
	}{ID: j.ID, Title: j.Title, Content: j.Content}
	if !j.Date.IsZero() {
		d := j.Date
		out.Date = &d
	}
	return json.Marshal(out)
}

// decodeID accepts a JSON string, a number, or an {"$oid": "..."} object.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{':
		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(raw, &oid); err != nil {
			return "", err
		}
		return oid.OID, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// dateLayouts are tried in order for string dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// decodeDate accepts a date string, epoch milliseconds, or a
// [year, month, day, hour, minute, second, nanos] array.
func decodeDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	case '[':
		var parts []int
		if err := json.Unmarshal(raw, &parts); err != nil {
			return time.Time{}, err
		}
		if len(parts) < 3 {
			return time.Time{}, fmt.Errorf("date array too short: %v", parts)
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.UTC), nil
	default:
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized date %s", raw)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}
