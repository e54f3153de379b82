package domain

type LifecycleState int

const (
	StateDiscovered LifecycleState = iota
	StateProposalRequested
	StateProposalReady
	StateApplying
	StateApplied
	StateFailed
)

var stateNames = [...]string{
	StateDiscovered:        "Discovered",
	StateProposalRequested: "ProposalRequested",
	StateProposalReady:     "ProposalReady",
	StateApplying:          "Applying",
	StateApplied:           "Applied",
	StateFailed:            "Failed",
}

func (s LifecycleState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// IsActive reports whether a remote call is in flight for the issue.
func (s LifecycleState) IsActive() bool {
	return s == StateProposalRequested || s == StateApplying
}

func (s LifecycleState) IsTerminal() bool {
	return s == StateApplied || s == StateFailed
}

// IssueStatus is a point-in-time view of an issue's lifecycle entry.
type IssueStatus struct {
	IssueID  string
	State    LifecycleState
	Version  uint64
	Proposal *FixProposal
}
