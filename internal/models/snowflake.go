// Package models defines the typed records exchanged with the relational store.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Snowflake is a 64-bit platform identifier for guilds, users, roles and channels.
// Postgres has no unsigned BIGINT, so the value is stored bit-for-bit as int64.
type Snowflake uint64

// ParseSnowflake parses the decimal string form used by the platform API
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

// ParseSnowflakes parses a list of platform ids; any bad id fails the whole list
func ParseSnowflakes(ids []string) ([]Snowflake, error) {
	out := make([]Snowflake, 0, len(ids))
	for _, id := range ids {
		sf, err := ParseSnowflake(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, nil
}

// String returns the decimal form
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Value implements driver.Valuer
func (s Snowflake) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan implements sql.Scanner
func (s *Snowflake) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*s = Snowflake(uint64(v))
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("failed to scan snowflake: %w", err)
		}
		*s = Snowflake(uint64(n))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to scan snowflake: %w", err)
		}
		*s = Snowflake(uint64(n))
	case nil:
		return fmt.Errorf("failed to scan snowflake: NULL value")
	default:
		return fmt.Errorf("failed to scan snowflake: unsupported type %T", src)
	}
	return nil
}

// MarshalJSON encodes the id as a string, like the platform API does
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both the string and the numeric form
func (s *Snowflake) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		v, err := ParseSnowflake(str)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid snowflake json %s: %w", string(b), err)
	}
	*s = Snowflake(n)
	return nil
}

// NullSnowflake is a Snowflake that may be NULL
type NullSnowflake struct {
	Snowflake Snowflake
	Valid     bool
}

// NewNullSnowflake returns a valid NullSnowflake
func NewNullSnowflake(s Snowflake) NullSnowflake {
	return NullSnowflake{Snowflake: s, Valid: true}
}

// Value implements driver.Valuer
func (n NullSnowflake) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Snowflake.Value()
}

// Scan implements sql.Scanner
func (n *NullSnowflake) Scan(src interface{}) error {
	if src == nil {
		n.Snowflake, n.Valid = 0, false
		return nil
	}
	n.Valid = true
	return n.Snowflake.Scan(src)
}

// MarshalJSON encodes NULL as json null
func (n NullSnowflake) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.Snowflake.MarshalJSON()
}

// UnmarshalJSON decodes json null as an invalid value
func (n *NullSnowflake) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		n.Snowflake, n.Valid = 0, false
		return nil
	}
	if err := n.Snowflake.UnmarshalJSON(b); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
