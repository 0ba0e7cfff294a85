package models

import (
	"github.com/goccy/go-json"
)

// SafeURLString is a string that is encoded to JSON without HTML escaping,
// so URLs keep their literal '&', '<' and '>' characters.
//
// The setting of the outermost encoder wins over a marshaler's own output,
// so documents holding a SafeURLString must be encoded with EncodeJSON.
type SafeURLString string

func (s SafeURLString) MarshalJSON() ([]byte, error) {
	return EncodeJSON(string(s))
}

func (s *SafeURLString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = SafeURLString(str)
	return nil
}

// EncodeJSON marshals v with HTML escaping disabled.
func EncodeJSON(v any) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// URLPtr is StringPtr for SafeURLString.
func URLPtr(s string) *SafeURLString {
	if s == "" {
		return nil
	}
	u := SafeURLString(s)
	return &u
}
