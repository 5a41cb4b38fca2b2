package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/metrics"
	"EvolutionProfiles/internal/profile"
	httptransport "EvolutionProfiles/internal/transport/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	people    map[string]domain.Person
	proposals map[string]domain.Proposal
	enricher  *profile.Enricher

	mu      sync.Mutex
	screens []*profile.Screen
}

func newFakeService(lookup profile.IdentityLookup) *fakeService {
	return &fakeService{
		people:    map[string]domain.Person{},
		proposals: map[string]domain.Proposal{},
		enricher:  profile.NewEnricher(lookup, zerolog.Nop(), nil),
	}
}

func (f *fakeService) AddPerson(ctx context.Context, person domain.Person) (domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.people[person.Username] = person
	return person, nil
}

func (f *fakeService) GetPerson(ctx context.Context, username string) (domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	person, ok := f.people[username]
	if !ok {
		return domain.Person{}, domain.ErrPersonNotFound
	}
	return person, nil
}

func (f *fakeService) AddProposal(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.proposals[proposal.ID]; ok {
		return domain.Proposal{}, domain.ErrProposalExists
	}
	f.proposals[proposal.ID] = proposal
	return proposal, nil
}

func (f *fakeService) GetProposal(ctx context.Context, id string) (domain.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	proposal, ok := f.proposals[id]
	if !ok {
		return domain.Proposal{}, domain.ErrProposalNotFound
	}
	return proposal, nil
}

func (f *fakeService) OpenProfile(ctx context.Context, username string) (*profile.Screen, <-chan struct{}, error) {
	person, err := f.GetPerson(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	screen := profile.NewScreen(&person)
	f.mu.Lock()
	f.screens = append(f.screens, screen)
	f.mu.Unlock()
	return screen, f.enricher.Enrich(context.WithoutCancel(ctx), screen), nil
}

func (f *fakeService) SelectProposal(ctx context.Context, username string, section, row int) (domain.Proposal, error) {
	person, err := f.GetPerson(ctx, username)
	if err != nil {
		return domain.Proposal{}, err
	}
	return profile.NewScreen(&person).ProposalAt(section, row)
}

func (f *fakeService) openedScreens() []*profile.Screen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*profile.Screen(nil), f.screens...)
}

func (f *fakeService) Health(ctx context.Context) error {
	return nil
}

type blockingLookup struct {
	user    domain.GitHubUser
	release chan struct{}
}

func (l *blockingLookup) User(ctx context.Context, username string) (*domain.GitHubUser, error) {
	if l.release != nil {
		<-l.release
	}
	user := l.user
	return &user, nil
}

var (
	se1 = domain.Proposal{ID: "SE-0001", Title: "Allow keywords as argument labels", Status: domain.StatusImplemented}
	se2 = domain.Proposal{ID: "SE-0002", Title: "Removing currying", Status: domain.StatusImplemented}
	se3 = domain.Proposal{ID: "SE-0003", Title: "Removing var parameters", Status: domain.StatusRejected}
)

type profileResponse struct {
	Title     string `json:"title"`
	AvatarURL string `json:"avatar_url"`
	Person    struct {
		Username string `json:"username"`
		GitHub   *struct {
			Login string `json:"login"`
		} `json:"github"`
	} `json:"person"`
	Sections []struct {
		Title     string `json:"title"`
		Proposals []struct {
			ID string `json:"proposal_id"`
		} `json:"proposals"`
	} `json:"sections"`
}

func TestGetProfileWaitsForEnrichment(t *testing.T) {
	svc := newFakeService(&blockingLookup{user: domain.GitHubUser{Login: "alice", AvatarURL: "https://avatars.example/alice"}})
	svc.people["alice"] = domain.Person{Username: "alice", Authored: []domain.Proposal{se1, se2}, Managed: []domain.Proposal{se3}}

	server := httptest.NewServer(httptransport.NewHandler(svc, 5*time.Second, nil).Router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/profile/get?username=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got profileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, "@alice", got.Title)
	assert.Equal(t, "https://avatars.example/alice", got.AvatarURL)
	require.NotNil(t, got.Person.GitHub)
	assert.Equal(t, "alice", got.Person.GitHub.Login)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, profile.AuthorTitle, got.Sections[0].Title)
	assert.Equal(t, "SE-0001", got.Sections[0].Proposals[0].ID)
	assert.Equal(t, "SE-0002", got.Sections[0].Proposals[1].ID)
	assert.Equal(t, profile.ReviewManagerTitle, got.Sections[1].Title)

	screens := svc.openedScreens()
	require.Len(t, screens, 1)
	assert.True(t, screens[0].Closed())
}

func TestGetProfileRendersWithoutSlowEnrichment(t *testing.T) {
	lookup := &blockingLookup{
		user:    domain.GitHubUser{Login: "alice", AvatarURL: "https://avatars.example/alice"},
		release: make(chan struct{}),
	}
	svc := newFakeService(lookup)
	svc.people["alice"] = domain.Person{Username: "alice", Authored: []domain.Proposal{se1}}

	server := httptest.NewServer(httptransport.NewHandler(svc, 10*time.Millisecond, nil).Router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/profile/get?username=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got profileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Empty(t, got.AvatarURL)
	assert.Nil(t, got.Person.GitHub)

	close(lookup.release)
	screens := svc.openedScreens()
	require.Len(t, screens, 1)
	screen := screens[0]
	assert.True(t, screen.Closed())
	assert.Never(t, func() bool { return screen.AvatarURL() != "" }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestGetProfileNotFound(t *testing.T) {
	svc := newFakeService(&blockingLookup{})
	server := httptest.NewServer(httptransport.NewHandler(svc, 0, nil).Router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/profile/get?username=ghost")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectProposal(t *testing.T) {
	svc := newFakeService(&blockingLookup{})
	svc.people["alice"] = domain.Person{Username: "alice", Authored: []domain.Proposal{se1, se2}}

	server := httptest.NewServer(httptransport.NewHandler(svc, 0, nil).Router())
	defer server.Close()

	tests := []struct {
		name   string
		query  string
		status int
		want   string
	}{
		{name: "row in range", query: "username=alice&section=0&row=1", status: http.StatusOK, want: "SE-0002"},
		{name: "missing section", query: "username=alice&section=1&row=0", status: http.StatusNotFound},
		{name: "missing row", query: "username=alice&section=0&row=2", status: http.StatusNotFound},
		{name: "bad index", query: "username=alice&section=x&row=0", status: http.StatusBadRequest},
		{name: "no username", query: "section=0&row=0", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := server.Client().Get(server.URL + "/profile/select?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)

			if tt.want == "" {
				return
			}
			var payload struct {
				Proposal struct {
					ID string `json:"proposal_id"`
				} `json:"proposal"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			assert.Equal(t, tt.want, payload.Proposal.ID)
		})
	}
}

func TestAddProposalValidation(t *testing.T) {
	svc := newFakeService(&blockingLookup{})
	server := httptest.NewServer(httptransport.NewHandler(svc, 0, nil).Router())
	defer server.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "valid", body: `{"proposal_id":"SE-0001","title":"Keywords","authors":["alice"]}`, status: http.StatusCreated},
		{name: "duplicate", body: `{"proposal_id":"SE-0001","title":"Keywords"}`, status: http.StatusConflict},
		{name: "bad id", body: `{"proposal_id":"0001","title":"Keywords"}`, status: http.StatusBadRequest},
		{name: "missing title", body: `{"proposal_id":"SE-0002"}`, status: http.StatusBadRequest},
		{name: "unknown status", body: `{"proposal_id":"SE-0003","title":"x","status":"maybe"}`, status: http.StatusBadRequest},
		{name: "empty author", body: `{"proposal_id":"SE-0004","title":"x","authors":[""]}`, status: http.StatusBadRequest},
		{name: "malformed", body: `{`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := server.Client().Post(server.URL+"/proposals/add", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestPeopleRoutes(t *testing.T) {
	svc := newFakeService(&blockingLookup{})
	server := httptest.NewServer(httptransport.NewHandler(svc, 0, nil).Router())
	defer server.Close()

	body, _ := json.Marshal(map[string]string{"username": "alice", "name": "Alice"})
	resp, err := server.Client().Post(server.URL+"/people/add", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = server.Client().Get(server.URL + "/people/get?username=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var person struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&person))
	assert.Equal(t, "Alice", person.Name)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).Enrichment(metrics.OutcomeApplied)

	server := httptest.NewServer(httptransport.NewHandler(newFakeService(&blockingLookup{}), 0, reg).Router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `evolution_profiles_profile_enrichments_total{outcome="applied"} 1`)
}
