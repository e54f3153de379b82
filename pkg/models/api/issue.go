package api

import "encoding/json"

type Issue struct {
	IssueID          string          `json:"issue_id"`
	Category         string          `json:"category"`
	Severity         string          `json:"severity"`
	Description      string          `json:"description"`
	AffectedResource string          `json:"affected_resource"`
	DetectedAt       string          `json:"detected_at,omitempty"`
	Metrics          json.RawMessage `json:"metrics,omitempty"`
	// Extra holds members the backend sent that have no field above. They are written
	// back unchanged.
	Extra json.RawMessage `json:"-"`
}

type issueFields Issue

var issueKeys = keySet(
	"issue_id", "category", "severity", "description", "affected_resource", "detected_at", "metrics",
)

func (i *Issue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var fields issueFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, issueKeys)
	if err != nil {
		return err
	}
	*i = Issue(fields)
	i.Extra = extra
	return nil
}

func (i Issue) MarshalJSON() ([]byte, error) {
	encoded, err := json.Marshal(issueFields(i))
	if err != nil {
		return nil, err
	}
	return mergeExtra(encoded, i.Extra)
}
