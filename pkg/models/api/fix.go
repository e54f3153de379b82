package api

import "encoding/json"

type FixProposal struct {
	IssueID         string          `json:"issue_id"`
	Explanation     string          `json:"explanation"`
	OriginalCode    json.RawMessage `json:"original_code,omitempty"`
	FixedCode       json.RawMessage `json:"fixed_code,omitempty"`
	EstimatedImpact string          `json:"estimated_impact,omitempty"`
	GeneratedAt     uint64          `json:"generated_at,omitempty"`
	Extra           json.RawMessage `json:"-"`
}

type proposalFields FixProposal

var proposalKeys = keySet(
	"issue_id", "explanation", "original_code", "fixed_code", "estimated_impact", "generated_at",
)

func (p *FixProposal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var fields proposalFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, proposalKeys)
	if err != nil {
		return err
	}
	*p = FixProposal(fields)
	p.Extra = extra
	return nil
}

func (p FixProposal) MarshalJSON() ([]byte, error) {
	encoded, err := json.Marshal(proposalFields(p))
	if err != nil {
		return nil, err
	}
	return mergeExtra(encoded, p.Extra)
}

type ApplyResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type BenchmarkResult struct {
	LatencyBeforeMs       float64 `json:"latency_before_ms"`
	LatencyAfterMs        float64 `json:"latency_after_ms"`
	CPUBefore             float64 `json:"cpu_before"`
	CPUAfter              float64 `json:"cpu_after"`
	ImprovementPercentage float64 `json:"improvement_percentage"`
	IsSafe                bool    `json:"is_safe"`
}
