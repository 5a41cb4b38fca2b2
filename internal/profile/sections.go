// Package profile holds the view-independent logic behind a person's profile
// screen: grouping their proposals into sections and merging in the GitHub
// identity fetched after the screen opens.
package profile

import "EvolutionProfiles/internal/domain"

const (
	AuthorTitle        = "Author"
	ReviewManagerTitle = "Review Manager"
)

type Section struct {
	Title     string
	Proposals []domain.Proposal
}

// BuildSections groups a person's proposals by role. Author comes before
// Review Manager and a role with no proposals is left out.
func BuildSections(p *domain.Person) []Section {
	if p == nil {
		return nil
	}

	var sections []Section
	if len(p.Authored) > 0 {
		sections = append(sections, Section{
			Title:     AuthorTitle,
			Proposals: append([]domain.Proposal(nil), p.Authored...),
		})
	}
	if len(p.Managed) > 0 {
		sections = append(sections, Section{
			Title:     ReviewManagerTitle,
			Proposals: append([]domain.Proposal(nil), p.Managed...),
		})
	}
	return sections
}
