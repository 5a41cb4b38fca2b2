package domain

import "time"

type ProposalStatus string

const (
	StatusAwaitingReview ProposalStatus = "awaitingReview"
	StatusScheduled      ProposalStatus = "scheduledForReview"
	StatusActiveReview   ProposalStatus = "activeReview"
	StatusReturned       ProposalStatus = "returnedForRevision"
	StatusWithdrawn      ProposalStatus = "withdrawn"
	StatusDeferred       ProposalStatus = "deferred"
	StatusAccepted       ProposalStatus = "accepted"
	StatusImplemented    ProposalStatus = "implemented"
	StatusRejected       ProposalStatus = "rejected"
)

// Person is someone who authored or review-managed proposals.
type Person struct {
	Username string
	Name     string
	GitHub   *GitHubUser
	Authored []Proposal
	Managed  []Proposal
}

type Proposal struct {
	ID             string
	Title          string
	Status         ProposalStatus
	Summary        string
	Authors        []string
	ReviewManagers []string
	CreatedAt      time.Time
}

// GitHubUser is the identity record fetched from GitHub for a person.
type GitHubUser struct {
	Login     string
	Name      string
	AvatarURL string
	HTMLURL   string
	Bio       string
	FetchedAt time.Time
}

func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusAwaitingReview, StatusScheduled, StatusActiveReview, StatusReturned,
		StatusWithdrawn, StatusDeferred, StatusAccepted, StatusImplemented, StatusRejected:
		return true
	}
	return false
}
