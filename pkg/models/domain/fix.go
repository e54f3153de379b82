package domain

type FixProposal struct {
	IssueID         string
	Explanation     string
	OriginalCode    Blob
	FixedCode       Blob
	EstimatedImpact string
	// GeneratedAt is the lifecycle version at which the proposal became ready.
	GeneratedAt uint64
	Extra       Blob
}

func (p FixProposal) Clone() FixProposal {
	p.OriginalCode = p.OriginalCode.Clone()
	p.FixedCode = p.FixedCode.Clone()
	p.Extra = p.Extra.Clone()
	return p
}

type ApplyStatus string

const (
	ApplyStatusSuccess ApplyStatus = "success"
	ApplyStatusError   ApplyStatus = "error"
)

type ApplyResult struct {
	Status  ApplyStatus
	Message string
}

func (r ApplyResult) Succeeded() bool {
	return r.Status == ApplyStatusSuccess
}

type BenchmarkResult struct {
	LatencyBeforeMs       float64
	LatencyAfterMs        float64
	CPUBefore             float64
	CPUAfter              float64
	ImprovementPercentage float64
	IsSafe                bool
}
