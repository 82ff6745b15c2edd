package model

// Severity is a risk level word that AI reports use to classify findings.
// The scoring package counts these words in report text.
type Severity int

const (
	// SeverityLow marks minor findings.
	SeverityLow Severity = iota

	// SeverityMedium marks findings that warrant attention.
	SeverityMedium

	// SeverityHigh marks serious findings.
	SeverityHigh

	// SeverityCritical marks findings that need immediate action.
	SeverityCritical
)

// AllSeverities lists the levels from most to least severe.
var AllSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// String returns the lower-case word for the severity, as used in JSON
// keys and dashboard filters.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a lower-case word back to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	for _, sev := range AllSeverities {
		if sev.String() == s {
			return sev, true
		}
	}
	return SeverityLow, false
}

// SeverityCounts holds how often each severity word appears in a report.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Get returns the count for one severity.
func (c SeverityCounts) Get(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	default:
		return 0
	}
}

// Total returns the sum of all counts.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}
