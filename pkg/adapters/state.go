package adapters

import (
	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/models/domain"
)

func MapDomainIssueStatusToAPI(s domain.IssueStatus) api.IssueState {
	state := api.IssueState{
		IssueID: s.IssueID,
		State:   s.State.String(),
		Version: s.Version,
	}
	if s.Proposal != nil {
		p := MapDomainProposalToAPI(*s.Proposal)
		state.Proposal = &p
	}
	return state
}
