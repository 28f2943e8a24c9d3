package ingestion

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The vendor feed is loose about scalar types: identifiers arrive as
// strings or numbers, prices as numbers or numeric strings, flags as
// booleans, numbers or "Y"/"N". The Flex types normalize those at the
// JSON boundary so the rest of the pipeline sees one shape.

// FlexString decodes a JSON string or number into a string
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexFloat decodes a JSON number or numeric string into a float64.
// Non-numeric strings decode as absent (Valid=false) rather than erroring,
// matching the feed's habit of sending "" for missing prices.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f.Value, f.Valid = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value, f.Valid = v, true
	return nil
}

// Ptr returns the value as a *float64, nil when absent
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// FlexInt decodes a JSON number or numeric string into an int
type FlexInt struct {
	Value int
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var ff FlexFloat
	if err := ff.UnmarshalJSON(data); err != nil {
		return err
	}
	if ff.Valid {
		f.Value, f.Valid = int(ff.Value), true
	}
	return nil
}

// FlexBool decodes a JSON bool, number (0/1) or Y/N/true/false string
type FlexBool struct {
	Value bool
	Valid bool
}

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		f.Value, f.Valid = b, true
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "y", "yes", "true", "1":
			f.Value, f.Valid = true, true
		case "n", "no", "false", "0", "":
			f.Value, f.Valid = false, s != ""
		}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		f.Value, f.Valid = n != 0, true
	}
	return nil
}
