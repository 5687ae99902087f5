package payment

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

const (
	// DefaultCurrency applies when the request names none.
	DefaultCurrency = "usd"
	// DefaultBookingID is recorded in metadata when the request carries none.
	DefaultBookingID = "unknown"
)

// Request is the caller-supplied payload of a createPaymentIntent invocation.
// Fields are kept raw: Amount so that non-numeric values can be told apart
// from missing ones, Currency so that only an absent value is defaulted, and
// BookingID because it is opaque and accepted in any JSON shape.
type Request struct {
	Amount    json.RawMessage `json:"amount,omitempty"`
	Currency  json.RawMessage `json:"currency,omitempty"`
	BookingID json.RawMessage `json:"bookingId,omitempty"`
}

// Result is the success half of an invocation result.
type Result struct {
	ClientSecret string `json:"clientSecret"`
}

// MajorAmount returns the amount in major units when it is a finite JSON
// number strictly greater than zero.
func (r Request) MajorAmount() (float64, bool) {
	raw := bytes.TrimSpace(r.Amount)
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// currency defaults only when the field is absent or null. Any other value,
// including an empty string, is forwarded for the processor to judge.
func (r Request) currency() string {
	if v, ok := decodeRaw(r.Currency); ok {
		return scalarText(v, r.Currency)
	}
	return DefaultCurrency
}

// bookingID defaults for absent and falsy values (null, "", 0, false).
func (r Request) bookingID() string {
	v, ok := decodeRaw(r.BookingID)
	if !ok {
		return DefaultBookingID
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return DefaultBookingID
		}
	case float64:
		if t == 0 {
			return DefaultBookingID
		}
	case bool:
		if !t {
			return DefaultBookingID
		}
	}
	return scalarText(v, r.BookingID)
}

// decodeRaw reports false for absent or null values.
func decodeRaw(raw json.RawMessage) (any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// scalarText renders a decoded JSON value as a flat metadata string. Objects
// and arrays keep their compact JSON text.
func scalarText(v any, raw json.RawMessage) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(bytes.TrimSpace(raw))
		}
		return buf.String()
	}
}

// MinorUnits converts a major-unit amount into minor units assuming a
// two-decimal currency. Positive amounts below half a minor unit round to 0.
// ok is false when the result does not fit an int64.
func MinorUnits(amount float64) (int64, bool) {
	minor := math.Round(amount * 100)
	if math.IsNaN(minor) || minor >= math.MaxInt64 || minor <= math.MinInt64 {
		return 0, false
	}
	return int64(minor), true
}
