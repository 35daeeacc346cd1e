package models

import (
	"encoding/json"
	"fmt"
)

// Value is one recorded completion value for a habit on a day: either a
// boolean mark or a numeric amount. On the wire it is a bare JSON scalar
// (true, false, or a number), matching the persisted backend layout.
//
// Absence ("no record") is represented by the entry not existing at all,
// never by a zero Value.
type Value struct {
	Numeric bool
	Amount  float64
	Done    bool
}

// BoolValue returns a boolean completion mark.
func BoolValue(done bool) Value {
	return Value{Done: done}
}

// NumberValue returns a numeric completion amount.
func NumberValue(amount float64) Value {
	return Value{Numeric: true, Amount: amount}
}

// MarshalJSON emits the bare scalar form.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return json.Marshal(v.Amount)
	}
	return json.Marshal(v.Done)
}

// UnmarshalJSON accepts a JSON boolean or number.
func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Value{Done: b}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Value{Numeric: true, Amount: n}
		return nil
	}
	return fmt.Errorf("progress value must be a boolean or a number, got %s", data)
}

// DayMap holds the recorded values for a single day, keyed by habit id.
type DayMap map[int64]Value

// ProgressMap mirrors the persisted layout
// users/{userId}/progress/{dateString}/{habitId}.
type ProgressMap map[string]DayMap

// Clone returns a deep copy of the progress map.
func (m ProgressMap) Clone() ProgressMap {
	out := make(ProgressMap, len(m))
	for date, day := range m {
		dm := make(DayMap, len(day))
		for id, v := range day {
			dm[id] = v
		}
		out[date] = dm
	}
	return out
}
