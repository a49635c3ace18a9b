package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float is a float64 that always serializes with a fractional part
// (70 → 70.0), matching the wire format existing clients parse.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}
	b := strconv.AppendFloat(nil, v, 'f', -1, 64)
	if !bytes.ContainsRune(b, '.') {
		b = append(b, '.', '0')
	}
	return b, nil
}

// FloatPtr converts a nullable column value; nil stays nil (JSON null).
func FloatPtr(v *float64) *Float {
	if v == nil {
		return nil
	}
	f := Float(*v)
	return &f
}

type Station struct {
	ID        int    `json:"id" db:"id"`
	Station   string `json:"station" db:"station"`
	Name      string `json:"name" db:"name"`
	Latitude  Float  `json:"latitude" db:"latitude"`
	Longitude Float  `json:"longitude" db:"longitude"`
	Elevation Float  `json:"elevation" db:"elevation"`
}

// DatePoint is one (date, value) measurement row. Value is nil for NULL.
type DatePoint struct {
	Date  string
	Value *float64
}

// TemperatureStats holds MIN/MAX/AVG of tobs; all nil when no row matched.
type TemperatureStats struct {
	Min *float64
	Max *float64
	Avg *float64
}

// Triple is the [min, max, avg] array shape of the stats routes.
func (s TemperatureStats) Triple() [3]*Float {
	return [3]*Float{FloatPtr(s.Min), FloatPtr(s.Max), FloatPtr(s.Avg)}
}

// DateSeries is a date-keyed JSON object that keeps insertion order.
type DateSeries struct {
	keys   []string
	values map[string]*Float
}

// CollapseByDate folds rows into a DateSeries. A date keeps the position of
// its first row and the value of its last row, so duplicate dates (several
// stations on the same day) are last-write-wins.
func CollapseByDate(points []DatePoint) DateSeries {
	s := DateSeries{values: make(map[string]*Float, len(points))}
	for _, p := range points {
		if _, seen := s.values[p.Date]; !seen {
			s.keys = append(s.keys, p.Date)
		}
		s.values[p.Date] = FloatPtr(p.Value)
	}
	return s
}

func (s DateSeries) Len() int { return len(s.keys) }

func (s DateSeries) Keys() []string { return append([]string(nil), s.keys...) }

// Get returns the value for date and whether the date is present.
func (s DateSeries) Get(date string) (*Float, bool) {
	v, ok := s.values[date]
	return v, ok
}

func (s DateSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
