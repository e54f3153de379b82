package adapters

import (
	"encoding/json"

	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/models/domain"
)

func MapAPIIssueToDomain(i api.Issue) domain.Issue {
	return domain.Issue{
		ID:               i.IssueID,
		Category:         i.Category,
		Severity:         domain.Severity(i.Severity),
		Description:      i.Description,
		AffectedResource: i.AffectedResource,
		DetectedAt:       i.DetectedAt,
		Metrics:          domain.Blob(i.Metrics).Clone(),
		Extra:            domain.Blob(i.Extra).Clone(),
	}
}

func MapDomainIssueToAPI(i domain.Issue) api.Issue {
	return api.Issue{
		IssueID:          i.ID,
		Category:         i.Category,
		Severity:         string(i.Severity),
		Description:      i.Description,
		AffectedResource: i.AffectedResource,
		DetectedAt:       i.DetectedAt,
		Metrics:          rawMessage(i.Metrics),
		Extra:            rawMessage(i.Extra),
	}
}

func MapDomainIssuesToAPI(issues []domain.Issue) []api.Issue {
	response := make([]api.Issue, 0, len(issues))
	for _, issue := range issues {
		response = append(response, MapDomainIssueToAPI(issue))
	}
	return response
}

func rawMessage(b domain.Blob) json.RawMessage {
	if b.IsEmpty() {
		return nil
	}
	return json.RawMessage(b.Clone())
}
