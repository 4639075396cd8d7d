package stats

import (
	"encoding/json"
	"math"
)

// Value is a float64 whose NaN state survives JSON as null
type Value float64

// Null is the undefined value
func Null() Value { return Value(math.NaN()) }

func (v Value) IsNull() bool { return math.IsNaN(float64(v)) }

func (v Value) Float() float64 { return float64(v) }

// MarshalJSON writes NaN and infinities as null
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON reads null as NaN
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Null()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Value(f)
	return nil
}
