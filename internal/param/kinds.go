package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NewBool creates a flag parameter with Y/N text form.
func NewBool(name string, value bool, description string) *Param[bool] {
	return New(name, "", value, false, description, ParseBool, FormatBool)
}

// ParseBool accepts Y/N, T/F and 1/0 in any case, as tempo parameter files do.
func ParseBool(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "T", "1":
		return true, nil
	case "N", "F", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: want Y or N", ErrParse)
}

// FormatBool writes Y for true and N for false.
func FormatBool(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

// NewFloat creates a real-valued parameter.
func NewFloat(name, units string, value float64, fittable bool, description string) *Param[float64] {
	return New(name, units, value, fittable, description, ParseFloat, FormatFloat)
}

// ParseFloat parses a decimal number. Fortran-style exponents ("1.5D-3")
// are accepted.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite value %q", ErrParse, s)
	}
	return v, nil
}

// FormatFloat writes the shortest text that parses back to v exactly.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// NewString creates a free-text parameter.
func NewString(name, value, description string) *Param[string] {
	return New(name, "", value, false, description,
		func(s string) (string, error) { return strings.TrimSpace(s), nil },
		func(v string) string { return v },
	)
}

// NewMJD creates an epoch parameter expressed as a Modified Julian Date.
func NewMJD(name string, value float64, description string) *Param[float64] {
	return New(name, "d", value, false, description, ParseFloat, FormatFloat)
}

// NewHourAngle creates an angle parameter written as hh:mm:ss.s and held in
// radians, e.g. right ascension.
func NewHourAngle(name string, value float64, fittable bool, description string) *Param[float64] {
	return New(name, "rad", value, fittable, description,
		func(s string) (float64, error) {
			h, err := parseSexagesimal(s)
			if err != nil {
				return 0, err
			}
			return h * math.Pi / 12, nil
		},
		func(v float64) string { return formatSexagesimal(v*12/math.Pi, false) },
	)
}

// NewDegAngle creates an angle parameter written as ±dd:mm:ss.s and held in
// radians, e.g. declination.
func NewDegAngle(name string, value float64, fittable bool, description string) *Param[float64] {
	return New(name, "rad", value, fittable, description,
		func(s string) (float64, error) {
			d, err := parseSexagesimal(s)
			if err != nil {
				return 0, err
			}
			return d * math.Pi / 180, nil
		},
		func(v float64) string { return formatSexagesimal(v*180/math.Pi, true) },
	)
}

// parseSexagesimal parses "a:b:c" (b and c optional) into a + b/60 + c/3600.
// The sign applies to the whole value, so "-00:30:00" is -0.5.
func parseSexagesimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty angle", ErrParse)
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("%w: too many fields in angle", ErrParse)
	}
	var total float64
	scale := 1.0
	for i, f := range fields {
		if strings.HasPrefix(f, "+") || strings.HasPrefix(f, "-") {
			return 0, fmt.Errorf("%w: angle field %d has a sign: %s", ErrParse, i, f)
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: angle field %d: %v", ErrParse, i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: angle field %d is not finite: %s", ErrParse, i, f)
		}
		if v < 0 || (i > 0 && v >= 60) {
			return 0, fmt.Errorf("%w: angle field %d out of range: %s", ErrParse, i, f)
		}
		total += v / scale
		scale *= 60
	}
	if neg {
		total = -total
	}
	return total, nil
}

func formatSexagesimal(v float64, signed bool) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	} else if signed {
		sign = "+"
	}
	// Round to the printed precision first so 59.9999999999 carries.
	totalSec := math.Round(v*3600*1e10) / 1e10
	a := math.Floor(totalSec / 3600)
	b := math.Floor((totalSec - a*3600) / 60)
	c := math.Max(totalSec-a*3600-b*60, 0)
	return fmt.Sprintf("%s%02d:%02d:%013.10f", sign, int(a), int(b), c)
}
