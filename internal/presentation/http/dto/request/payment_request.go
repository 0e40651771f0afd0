package request

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PaymentNotificationRequest is the body of a processor webhook call
type PaymentNotificationRequest struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		ID FlexibleID `json:"id"`
	} `json:"data"`
}

// FlexibleID accepts an identifier sent either as a JSON string or number
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}
