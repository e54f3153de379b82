package domain

import "bytes"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityWarning:  3,
	SeverityHigh:     4,
	SeverityCritical: 5,
}

// Rank orders severities for presentation. Unknown values rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// Blob is an opaque JSON payload passed through to the backend untouched.
type Blob []byte

func (b Blob) IsEmpty() bool {
	return len(bytes.TrimSpace(b)) == 0 || bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func (b Blob) Clone() Blob {
	if b == nil {
		return nil
	}
	return append(Blob(nil), b...)
}

// Issue is a detected inefficiency in the target cluster.
type Issue struct {
	ID               string
	Category         string
	Severity         Severity
	Description      string
	AffectedResource string
	DetectedAt       string
	Metrics          Blob
	// Extra carries backend fields the gateway does not model, as a JSON object.
	Extra Blob
}

func (i Issue) Clone() Issue {
	i.Metrics = i.Metrics.Clone()
	i.Extra = i.Extra.Clone()
	return i
}

func (i Issue) Equal(other Issue) bool {
	return i.ID == other.ID &&
		i.Category == other.Category &&
		i.Severity == other.Severity &&
		i.Description == other.Description &&
		i.AffectedResource == other.AffectedResource &&
		i.DetectedAt == other.DetectedAt &&
		bytes.Equal(bytes.TrimSpace(i.Metrics), bytes.TrimSpace(other.Metrics)) &&
		bytes.Equal(bytes.TrimSpace(i.Extra), bytes.TrimSpace(other.Extra))
}
