package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"EvolutionProfiles/internal/config"
	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/storage"
	"EvolutionProfiles/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Repository = (*Store)(nil)

const (
	roleAuthor        = "author"
	roleReviewManager = "review_manager"
)

const proposalColumns = `
	p.proposal_id, p.title, p.status, p.summary, p.created_at,
	COALESCE((SELECT array_agg(a.username ORDER BY a.position)
	          FROM proposal_roles a
	          WHERE a.proposal_id = p.proposal_id AND a.role = 'author'), '{}') AS authors,
	COALESCE((SELECT array_agg(m.username ORDER BY m.position)
	          FROM proposal_roles m
	          WHERE m.proposal_id = p.proposal_id AND m.role = 'review_manager'), '{}') AS review_managers`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.applyMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		sqlBytes, err := fs.ReadFile(migrations.Files, entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) UpsertPerson(ctx context.Context, person domain.Person) (domain.Person, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO people (username, name)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE
		SET name = EXCLUDED.name,
		    updated_at = NOW()
	`, person.Username, person.Name)
	if err != nil {
		return domain.Person{}, translateError(err)
	}

	return s.GetPerson(ctx, person.Username)
}

// GetPerson loads a person with their stored GitHub identity and the
// proposals they authored and review-managed, each ordered by proposal id.
func (s *Store) GetPerson(ctx context.Context, username string) (domain.Person, error) {
	var (
		person                                 domain.Person
		login, ghName, avatarURL, htmlURL, bio *string
		fetchedAt                              sql.NullTime
	)
	err := s.pool.QueryRow(ctx, `
		SELECT p.username, p.name,
		       g.login, g.name, g.avatar_url, g.html_url, g.bio, g.fetched_at
		FROM people p
		LEFT JOIN github_identities g ON g.username = p.username
		WHERE p.username = $1
	`, username).Scan(&person.Username, &person.Name,
		&login, &ghName, &avatarURL, &htmlURL, &bio, &fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Person{}, domain.ErrPersonNotFound
		}
		return domain.Person{}, err
	}

	if login != nil {
		person.GitHub = &domain.GitHubUser{
			Login:     *login,
			Name:      deref(ghName),
			AvatarURL: deref(avatarURL),
			HTMLURL:   deref(htmlURL),
			Bio:       deref(bio),
		}
		if fetchedAt.Valid {
			person.GitHub.FetchedAt = fetchedAt.Time
		}
	}

	if person.Authored, err = s.listProposalsByRole(ctx, username, roleAuthor); err != nil {
		return domain.Person{}, err
	}
	if person.Managed, err = s.listProposalsByRole(ctx, username, roleReviewManager); err != nil {
		return domain.Person{}, err
	}

	return person, nil
}

func (s *Store) SaveGitHubUser(ctx context.Context, username string, user domain.GitHubUser) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO github_identities (username, login, name, avatar_url, html_url, bio, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username) DO UPDATE
		SET login = EXCLUDED.login,
		    name = EXCLUDED.name,
		    avatar_url = EXCLUDED.avatar_url,
		    html_url = EXCLUDED.html_url,
		    bio = EXCLUDED.bio,
		    fetched_at = EXCLUDED.fetched_at
	`, username, user.Login, user.Name, user.AvatarURL, user.HTMLURL, user.Bio, user.FetchedAt)
	return translateError(err)
}

func (s *Store) CreateProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO proposals (proposal_id, title, status, summary, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, proposal.ID, proposal.Title, string(proposal.Status), proposal.Summary, proposal.CreatedAt); err != nil {
			return err
		}

		if err := insertRoles(ctx, tx, proposal.ID, roleAuthor, proposal.Authors); err != nil {
			return err
		}
		return insertRoles(ctx, tx, proposal.ID, roleReviewManager, proposal.ReviewManagers)
	})
	if err != nil {
		return domain.Proposal{}, translateError(err)
	}

	return s.GetProposal(ctx, proposal.ID)
}

func (s *Store) GetProposal(ctx context.Context, id string) (domain.Proposal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals p WHERE p.proposal_id = $1`, id)

	proposal, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Proposal{}, domain.ErrProposalNotFound
		}
		return domain.Proposal{}, err
	}
	return proposal, nil
}

func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) listProposalsByRole(ctx context.Context, username, role string) ([]domain.Proposal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+proposalColumns+`
		FROM proposals p
		JOIN proposal_roles r ON r.proposal_id = p.proposal_id
		WHERE r.username = $1 AND r.role = $2
		ORDER BY p.proposal_id
	`, username, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, proposal)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

func insertRoles(ctx context.Context, tx pgx.Tx, proposalID, role string, usernames []string) error {
	for position, username := range usernames {
		if _, err := tx.Exec(ctx, `
			INSERT INTO people (username) VALUES ($1)
			ON CONFLICT (username) DO NOTHING
		`, username); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO proposal_roles (proposal_id, username, role, position)
			VALUES ($1, $2, $3, $4)
		`, proposalID, username, role, position); err != nil {
			return err
		}
	}
	return nil
}

func scanProposal(row pgx.Row) (domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(&p.ID, &p.Title, &p.Status, &p.Summary, &p.CreatedAt, &p.Authors, &p.ReviewManagers)
	return p, err
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "proposals_pkey" {
				return domain.ErrProposalExists
			}
		case "23503":
			if pgErr.ConstraintName == "github_identities_username_fkey" {
				return domain.ErrPersonNotFound
			}
		}
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
