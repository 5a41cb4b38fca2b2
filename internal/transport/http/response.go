package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/profile"
)

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type githubPayload struct {
	Login     string     `json:"login"`
	Name      string     `json:"name,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	HTMLURL   string     `json:"html_url,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

type personPayload struct {
	Username string         `json:"username"`
	Name     string         `json:"name"`
	GitHub   *githubPayload `json:"github,omitempty"`
}

type proposalPayload struct {
	ID             string     `json:"proposal_id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Summary        string     `json:"summary,omitempty"`
	Authors        []string   `json:"authors"`
	ReviewManagers []string   `json:"review_managers"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

type sectionPayload struct {
	Title     string            `json:"title"`
	Proposals []proposalPayload `json:"proposals"`
}

type profilePayload struct {
	Title     string           `json:"title"`
	AvatarURL string           `json:"avatar_url,omitempty"`
	Person    *personPayload   `json:"person"`
	Sections  []sectionPayload `json:"sections"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	})
}

func mapPerson(person domain.Person) personPayload {
	payload := personPayload{
		Username: person.Username,
		Name:     person.Name,
	}
	if gh := person.GitHub; gh != nil {
		payload.GitHub = &githubPayload{
			Login:     gh.Login,
			Name:      gh.Name,
			AvatarURL: gh.AvatarURL,
			HTMLURL:   gh.HTMLURL,
			Bio:       gh.Bio,
			FetchedAt: timePtr(gh.FetchedAt),
		}
	}
	return payload
}

func mapProposal(p domain.Proposal) proposalPayload {
	return proposalPayload{
		ID:             p.ID,
		Title:          p.Title,
		Status:         string(p.Status),
		Summary:        p.Summary,
		Authors:        append([]string{}, p.Authors...),
		ReviewManagers: append([]string{}, p.ReviewManagers...),
		CreatedAt:      timePtr(p.CreatedAt),
	}
}

func mapProfile(snap profile.Snapshot) profilePayload {
	payload := profilePayload{
		Title:     snap.Title,
		AvatarURL: snap.AvatarURL,
		Sections:  make([]sectionPayload, 0, len(snap.Sections)),
	}
	if snap.Person != nil {
		person := mapPerson(*snap.Person)
		payload.Person = &person
	}
	for _, section := range snap.Sections {
		proposals := make([]proposalPayload, 0, len(section.Proposals))
		for _, p := range section.Proposals {
			proposals = append(proposals, mapProposal(p))
		}
		payload.Sections = append(payload.Sections, sectionPayload{
			Title:     section.Title,
			Proposals: proposals,
		})
	}
	return payload
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	ts := t
	return &ts
}
