package schedule

import "strings"

// afternoonStartHour is the fixed boundary between the two shifts.
const afternoonStartHour = 14

// ShiftFlags records which daily shifts an availability spec covers. Derived
// from the free-text spec at the boundary, never stored.
type ShiftFlags struct {
	Morning   bool `json:"morning"`
	Afternoon bool `json:"afternoon"`
}

// Any reports whether at least one shift is covered.
func (f ShiftFlags) Any() bool {
	return f.Morning || f.Afternoon
}

// Label renders the short display label the reports use.
func (f ShiftFlags) Label() string {
	switch {
	case f.Morning && f.Afternoon:
		return "Mattina / Pomeriggio"
	case f.Morning:
		return "Mattina"
	case f.Afternoon:
		return "Pomeriggio"
	}
	return ""
}

// ParseShifts parses a legacy free-text shift spec such as "9-12 / 15-18".
// Slots are separated by "/"; the integer hour before the first "-" decides
// the shift. Unparseable slots contribute nothing.
func ParseShifts(spec string) ShiftFlags {
	var flags ShiftFlags
	for _, slot := range strings.Split(spec, "/") {
		head, _, _ := strings.Cut(strings.TrimSpace(slot), "-")
		hour, ok := leadingInt(strings.TrimSpace(head))
		if !ok {
			continue
		}
		if hour < afternoonStartHour {
			flags.Morning = true
		} else {
			flags.Afternoon = true
		}
	}
	return flags
}

// leadingInt reads the integer prefix of s, mirroring how the legacy records
// were parsed: "9.30" yields 9, "abc" yields nothing.
func leadingInt(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n := 0
	for _, c := range s[:i] {
		n = n*10 + int(c-'0')
	}
	return n, true
}
