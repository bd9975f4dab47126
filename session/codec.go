package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRecordCorrupt is returned when a stored session value cannot be decoded.
var ErrRecordCorrupt = errors.New("session record corrupt")

const maxRecordSize = 1024

// Encode serializes a record into the JSON value stored in the session hash.
func Encode(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if len(data) > maxRecordSize {
		return nil, errors.New("session record too large")
	}
	return data, nil
}

// Decode parses a stored session value. Unknown fields are ignored so records
// written by newer writers still decode.
func Decode(data []byte) (Record, error) {
	var rec Record
	if len(data) == 0 {
		return rec, ErrRecordCorrupt
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	return rec, nil
}
