package api

type IssueState struct {
	IssueID  string       `json:"issue_id"`
	State    string       `json:"state"`
	Version  uint64       `json:"version"`
	Proposal *FixProposal `json:"proposal,omitempty"`
}

type CancelRequest struct {
	IssueID string `json:"issue_id"`
}

// ErrorResponse is the only error shape the gateway ever returns.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
