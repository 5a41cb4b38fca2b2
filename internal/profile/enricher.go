package profile

import (
	"context"
	"errors"
	"weak"

	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/metrics"

	"github.com/rs/zerolog"
)

// IdentityLookup fetches the GitHub identity for a username.
type IdentityLookup interface {
	User(ctx context.Context, username string) (*domain.GitHubUser, error)
}

// Enricher merges GitHub identities into open profile screens. Failures are
// logged and counted but never reach the screen.
type Enricher struct {
	lookup  IdentityLookup
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewEnricher(lookup IdentityLookup, logger zerolog.Logger, m *metrics.Metrics) *Enricher {
	return &Enricher{
		lookup:  lookup,
		logger:  logger.With().Str("component", "enricher").Logger(),
		metrics: m,
	}
}

// Enrich starts the identity lookup for the screen's person and returns a
// channel closed when the lookup has been handled. Only the first call per
// screen issues a request; later calls return the same channel.
//
// The request does not keep the screen alive: the goroutine holds a weak
// reference and checks that the screen is still open before merging.
func (e *Enricher) Enrich(ctx context.Context, s *Screen) <-chan struct{} {
	s.enrichOnce.Do(func() {
		done := make(chan struct{})
		s.enrichDone = done

		username := s.username()
		if username == "" {
			e.metrics.Enrichment(metrics.OutcomeSkipped)
			close(done)
			return
		}

		ref := weak.Make(s)
		go func() {
			defer close(done)
			e.run(ctx, ref, username)
		}()
	})
	return s.enrichDone
}

func (e *Enricher) run(ctx context.Context, ref weak.Pointer[Screen], username string) {
	log := e.logger.With().Str("username", username).Logger()

	user, err := e.lookup.User(ctx, username)
	switch {
	case errors.Is(err, domain.ErrIdentityNotFound), err == nil && user == nil:
		e.metrics.Enrichment(metrics.OutcomeNotFound)
		log.Debug().Msg("no github identity")
		return
	case err != nil:
		e.metrics.Enrichment(metrics.OutcomeFailed)
		log.Debug().Err(err).Msg("github identity lookup failed")
		return
	}

	s := ref.Value()
	if s == nil || !s.applyIdentity(*user) {
		e.metrics.Enrichment(metrics.OutcomeDiscarded)
		log.Debug().Msg("profile screen gone, identity discarded")
		return
	}

	e.metrics.Enrichment(metrics.OutcomeApplied)
	log.Debug().Str("avatar_url", user.AvatarURL).Msg("profile enriched")
}
