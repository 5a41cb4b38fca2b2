package profile

import (
	"sync"

	"EvolutionProfiles/internal/domain"
)

// AvatarListener is told about the person and the new avatar reference after
// an identity has been merged.
type AvatarListener func(person domain.Person, avatarURL string)

// Screen is the state owned by one open profile view. It answers the
// questions a table-style view asks (how many sections, what is in a row)
// and accepts at most one identity merge while it is open.
type Screen struct {
	mu        sync.Mutex
	person    *domain.Person
	sections  []Section
	avatarURL string
	closed    bool
	listeners []AvatarListener

	enrichOnce sync.Once
	enrichDone chan struct{}
}

// Snapshot is a copy of the screen state safe to hand to a renderer.
type Snapshot struct {
	Title     string
	Person    *domain.Person
	AvatarURL string
	Sections  []Section
}

func NewScreen(p *domain.Person) *Screen {
	s := &Screen{
		person:   p,
		sections: BuildSections(p),
	}
	if p != nil && p.GitHub != nil {
		s.avatarURL = p.GitHub.AvatarURL
	}
	return s
}

// Title is the username prefixed with "@", or empty when the person has none.
func (s *Screen) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.titleLocked()
}

func (s *Screen) titleLocked() string {
	if s.person == nil || s.person.Username == "" {
		return ""
	}
	return "@" + s.person.Username
}

func (s *Screen) SectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sections)
}

func (s *Screen) SectionTitle(section int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if section < 0 || section >= len(s.sections) {
		return "", domain.ErrSectionOutOfRange
	}
	return s.sections[section].Title, nil
}

func (s *Screen) RowCount(section int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if section < 0 || section >= len(s.sections) {
		return 0, domain.ErrSectionOutOfRange
	}
	return len(s.sections[section].Proposals), nil
}

// ProposalAt returns the proposal shown at the given position; it is the
// value passed on when a row is selected.
func (s *Screen) ProposalAt(section, row int) (domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if section < 0 || section >= len(s.sections) {
		return domain.Proposal{}, domain.ErrSectionOutOfRange
	}
	proposals := s.sections[section].Proposals
	if row < 0 || row >= len(proposals) {
		return domain.Proposal{}, domain.ErrRowOutOfRange
	}
	return proposals[row], nil
}

func (s *Screen) AvatarURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatarURL
}

func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Title:     s.titleLocked(),
		AvatarURL: s.avatarURL,
		Sections:  make([]Section, 0, len(s.sections)),
	}
	if s.person != nil {
		p := clonePerson(s.person)
		snap.Person = &p
	}
	for _, section := range s.sections {
		snap.Sections = append(snap.Sections, Section{
			Title:     section.Title,
			Proposals: append([]domain.Proposal(nil), section.Proposals...),
		})
	}
	return snap
}

func (s *Screen) OnAvatarChange(fn AvatarListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Close marks the screen as gone. Identity lookups that finish afterwards
// leave it untouched.
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Screen) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Screen) username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.person == nil {
		return ""
	}
	return s.person.Username
}

// applyIdentity replaces the person's identity record and the avatar, then
// notifies listeners outside the lock. It reports false when the screen was
// closed or has no person.
func (s *Screen) applyIdentity(user domain.GitHubUser) bool {
	s.mu.Lock()
	if s.closed || s.person == nil {
		s.mu.Unlock()
		return false
	}
	s.person.GitHub = &user
	s.avatarURL = user.AvatarURL
	person := clonePerson(s.person)
	avatar := s.avatarURL
	listeners := append([]AvatarListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(person, avatar)
	}
	return true
}

func clonePerson(p *domain.Person) domain.Person {
	c := *p
	if p.GitHub != nil {
		gh := *p.GitHub
		c.GitHub = &gh
	}
	c.Authored = append([]domain.Proposal(nil), p.Authored...)
	c.Managed = append([]domain.Proposal(nil), p.Managed...)
	return c
}
