package httptransport

import (
	"errors"
	"fmt"
	"regexp"

	"EvolutionProfiles/internal/domain"
)

var proposalIDPattern = regexp.MustCompile(`^SE-\d{4}$`)

type personRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (r personRequest) validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

func (r personRequest) toDomain() domain.Person {
	return domain.Person{
		Username: r.Username,
		Name:     r.Name,
	}
}

type createProposalRequest struct {
	ID             string   `json:"proposal_id"`
	Title          string   `json:"title"`
	Status         string   `json:"status"`
	Summary        string   `json:"summary"`
	Authors        []string `json:"authors"`
	ReviewManagers []string `json:"review_managers"`
}

func (r createProposalRequest) validate() error {
	if r.ID == "" {
		return errors.New("proposal_id is required")
	}
	if !proposalIDPattern.MatchString(r.ID) {
		return fmt.Errorf("proposal_id %q must look like SE-0001", r.ID)
	}
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.Status != "" && !domain.ProposalStatus(r.Status).Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	for i, author := range r.Authors {
		if author == "" {
			return fmt.Errorf("authors[%d] is empty", i)
		}
	}
	for i, manager := range r.ReviewManagers {
		if manager == "" {
			return fmt.Errorf("review_managers[%d] is empty", i)
		}
	}
	return nil
}

func (r createProposalRequest) toDomain() domain.Proposal {
	return domain.Proposal{
		ID:             r.ID,
		Title:          r.Title,
		Status:         domain.ProposalStatus(r.Status),
		Summary:        r.Summary,
		Authors:        append([]string(nil), r.Authors...),
		ReviewManagers: append([]string(nil), r.ReviewManagers...),
	}
}
