package storage

import (
	"context"

	"EvolutionProfiles/internal/domain"
)

type Repository interface {
	UpsertPerson(ctx context.Context, person domain.Person) (domain.Person, error)
	GetPerson(ctx context.Context, username string) (domain.Person, error)
	SaveGitHubUser(ctx context.Context, username string, user domain.GitHubUser) error

	CreateProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error)
	GetProposal(ctx context.Context, id string) (domain.Proposal, error)

	Health(ctx context.Context) error
}
