package ndfd

import (
	"errors"
	"fmt"
)

// Variable identifies one of the NDFD rainfall products the pipeline handles.
type Variable int

const (
	// QPF is the quantitative precipitation forecast: rainfall accumulated
	// over 6-hour subperiods, in kg/m².
	QPF Variable = iota
	// PoP12 is the probability of at least 0.254 kg/m² (0.01 in) of rain
	// falling within a 12-hour subperiod, in percent.
	PoP12
)

// ErrUnknownVariable rejects variable identifiers outside qpf/pop12. Unlike a
// missing forecast run, this is a caller mistake and surfaces as an error.
var ErrUnknownVariable = errors.New("ndfd: unknown variable")

// ParseVariable maps a config string to a Variable.
func ParseVariable(s string) (Variable, error) {
	switch s {
	case "qpf":
		return QPF, nil
	case "pop12":
		return PoP12, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariable, s)
}

func (v Variable) String() string {
	switch v {
	case QPF:
		return "qpf"
	case PoP12:
		return "pop12"
	}
	return fmt.Sprintf("Variable(%d)", int(v))
}

// CanonicalName is the exact field name a usable SCO NDFD run declares for
// this variable. Some publications pad the name with extra metadata; a padded
// name means the variable is unavailable for that run, not that parsing failed.
func (v Variable) CanonicalName() string {
	switch v {
	case QPF:
		return "Total_precipitation_surface_6_Hour_Accumulation"
	case PoP12:
		return "Total_precipitation_surface_12_Hour_Accumulation_probability_above_0p254"
	}
	return ""
}

// ColumnName is the value column header used in exported tables.
func (v Variable) ColumnName() string {
	switch v {
	case QPF:
		return "qpf_value_kgperm2"
	case PoP12:
		return "pop12_value_perc"
	}
	return ""
}

// ExpectedSubperiods lists every hour offset a usable forecast run must expose
// for this variable: twelve 6-hour steps for QPF, six 12-hour steps for PoP12,
// both spanning the 72-hour lookahead. A run publishing anything less is
// treated as unusable rather than salvaged.
func (v Variable) ExpectedSubperiods() []float64 {
	switch v {
	case QPF:
		return []float64{6, 12, 18, 24, 30, 36, 42, 48, 54, 60, 66, 72}
	case PoP12:
		return []float64{12, 24, 36, 48, 60, 72}
	}
	return nil
}

// Reduce combines one cell's accumulator with the next subperiod value.
// Accumulated rainfall totals across 6-hour increments, while exceedance
// probability takes the window peak: probabilities do not add across
// sub-windows.
func (v Variable) Reduce(acc, val float64) float64 {
	if v == QPF {
		return acc + val
	}
	if val > acc {
		return val
	}
	return acc
}

// Window is one accumulation window together with the subperiod index
// positions that compose it. Positions are trusted to be in increasing hour
// order as published by the upstream feed; values are not re-validated.
type Window struct {
	Label   string // "24", "48" or "72"
	Indices []int
	Hours   []float64 // nominal subperiod hour values, for log messages
}

// Windows partitions the expected subperiod list into the three accumulation
// windows: hours 1-24, 25-48, and 49-72.
func (v Variable) Windows() []Window {
	hours := v.ExpectedSubperiods()
	per := len(hours) / 3
	labels := []string{"24", "48", "72"}

	windows := make([]Window, 0, 3)
	for i, label := range labels {
		indices := make([]int, 0, per)
		for j := i * per; j < (i+1)*per; j++ {
			indices = append(indices, j)
		}
		windows = append(windows, Window{
			Label:   label,
			Indices: indices,
			Hours:   hours[i*per : (i+1)*per],
		})
	}
	return windows
}
