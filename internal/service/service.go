package service

import (
	"context"
	"time"

	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/profile"
	"EvolutionProfiles/internal/storage"

	"github.com/rs/zerolog"
)

type Service interface {
	AddPerson(ctx context.Context, person domain.Person) (domain.Person, error)
	GetPerson(ctx context.Context, username string) (domain.Person, error)

	AddProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error)
	GetProposal(ctx context.Context, id string) (domain.Proposal, error)

	OpenProfile(ctx context.Context, username string) (*profile.Screen, <-chan struct{}, error)
	SelectProposal(ctx context.Context, username string, section, row int) (domain.Proposal, error)

	Health(ctx context.Context) error
}

const persistTimeout = 5 * time.Second

type ProfileService struct {
	repo     storage.Repository
	enricher *profile.Enricher
	logger   zerolog.Logger
	now      func() time.Time
}

func New(repo storage.Repository, enricher *profile.Enricher, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		repo:     repo,
		enricher: enricher,
		logger:   logger.With().Str("component", "service").Logger(),
		now:      time.Now,
	}
}

func (s *ProfileService) AddPerson(ctx context.Context, person domain.Person) (domain.Person, error) {
	return s.repo.UpsertPerson(ctx, person)
}

func (s *ProfileService) GetPerson(ctx context.Context, username string) (domain.Person, error) {
	return s.repo.GetPerson(ctx, username)
}

func (s *ProfileService) AddProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error) {
	proposal.Authors = uniqueUsernames(proposal.Authors)
	proposal.ReviewManagers = uniqueUsernames(proposal.ReviewManagers)
	if proposal.Status == "" {
		proposal.Status = domain.StatusAwaitingReview
	}
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = s.now().UTC()
	}
	return s.repo.CreateProposal(ctx, proposal)
}

func (s *ProfileService) GetProposal(ctx context.Context, id string) (domain.Proposal, error) {
	return s.repo.GetProposal(ctx, id)
}

// OpenProfile loads a person into a new profile screen and starts its identity
// enrichment. The returned channel closes once the lookup has been handled.
// A successful lookup is also written back to storage while the screen is
// still open. The caller owns the screen and must Close it.
func (s *ProfileService) OpenProfile(ctx context.Context, username string) (*profile.Screen, <-chan struct{}, error) {
	person, err := s.repo.GetPerson(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	screen := profile.NewScreen(&person)
	screen.OnAvatarChange(func(p domain.Person, _ string) {
		s.persistIdentity(p)
	})

	// The lookup outlives the request that opened the screen.
	done := s.enricher.Enrich(context.WithoutCancel(ctx), screen)
	return screen, done, nil
}

// SelectProposal resolves a row of the profile screen to the proposal it shows.
func (s *ProfileService) SelectProposal(ctx context.Context, username string, section, row int) (domain.Proposal, error) {
	person, err := s.repo.GetPerson(ctx, username)
	if err != nil {
		return domain.Proposal{}, err
	}

	screen := profile.NewScreen(&person)
	defer screen.Close()

	return screen.ProposalAt(section, row)
}

func (s *ProfileService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}

func (s *ProfileService) persistIdentity(p domain.Person) {
	if p.GitHub == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.repo.SaveGitHubUser(ctx, p.Username, *p.GitHub); err != nil {
		s.logger.Warn().Err(err).Str("username", p.Username).Msg("save github identity")
	}
}

func uniqueUsernames(usernames []string) []string {
	seen := make(map[string]struct{}, len(usernames))
	result := make([]string, 0, len(usernames))
	for _, username := range usernames {
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}
		result = append(result, username)
	}
	return result
}
