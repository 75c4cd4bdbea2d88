package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Timestamp accepts the shapes the backend has used for created_at: an RFC 3339 string, unix seconds,
// or a {"_seconds": n} object. Anything else decodes to the zero time.
type Timestamp struct {
	time.Time
}

type secondsObject struct {
	Seconds        *int64 `json:"_seconds"`
	SecondsNoScore *int64 `json:"seconds"`
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	t.Time = time.Time{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err //nolint:wrapcheck // json decoder adds context
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			t.Time = parsed
		}
	case '{':
		var obj secondsObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err //nolint:wrapcheck // json decoder adds context
		}
		switch {
		case obj.Seconds != nil:
			t.Time = time.Unix(*obj.Seconds, 0).UTC()
		case obj.SecondsNoScore != nil:
			t.Time = time.Unix(*obj.SecondsNoScore, 0).UTC()
		}
	default:
		if secs, err := strconv.ParseFloat(string(data), 64); err == nil {
			t.Time = time.Unix(int64(secs), 0).UTC()
		}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339)) //nolint:wrapcheck // plain string encoding
}
