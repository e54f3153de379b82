package adapters

import (
	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/models/domain"
)

func MapAPIProposalToDomain(p api.FixProposal) domain.FixProposal {
	return domain.FixProposal{
		IssueID:         p.IssueID,
		Explanation:     p.Explanation,
		OriginalCode:    domain.Blob(p.OriginalCode).Clone(),
		FixedCode:       domain.Blob(p.FixedCode).Clone(),
		EstimatedImpact: p.EstimatedImpact,
		GeneratedAt:     p.GeneratedAt,
		Extra:           domain.Blob(p.Extra).Clone(),
	}
}

func MapDomainProposalToAPI(p domain.FixProposal) api.FixProposal {
	return api.FixProposal{
		IssueID:         p.IssueID,
		Explanation:     p.Explanation,
		OriginalCode:    rawMessage(p.OriginalCode),
		FixedCode:       rawMessage(p.FixedCode),
		EstimatedImpact: p.EstimatedImpact,
		GeneratedAt:     p.GeneratedAt,
		Extra:           rawMessage(p.Extra),
	}
}

func MapAPIApplyResultToDomain(r api.ApplyResult) domain.ApplyResult {
	return domain.ApplyResult{
		Status:  domain.ApplyStatus(r.Status),
		Message: r.Message,
	}
}

func MapDomainApplyResultToAPI(r domain.ApplyResult) api.ApplyResult {
	return api.ApplyResult{
		Status:  string(r.Status),
		Message: r.Message,
	}
}

func MapAPIBenchmarkToDomain(b api.BenchmarkResult) domain.BenchmarkResult {
	return domain.BenchmarkResult{
		LatencyBeforeMs:       b.LatencyBeforeMs,
		LatencyAfterMs:        b.LatencyAfterMs,
		CPUBefore:             b.CPUBefore,
		CPUAfter:              b.CPUAfter,
		ImprovementPercentage: b.ImprovementPercentage,
		IsSafe:                b.IsSafe,
	}
}

func MapDomainBenchmarkToAPI(b domain.BenchmarkResult) api.BenchmarkResult {
	return api.BenchmarkResult{
		LatencyBeforeMs:       b.LatencyBeforeMs,
		LatencyAfterMs:        b.LatencyAfterMs,
		CPUBefore:             b.CPUBefore,
		CPUAfter:              b.CPUAfter,
		ImprovementPercentage: b.ImprovementPercentage,
		IsSafe:                b.IsSafe,
	}
}
