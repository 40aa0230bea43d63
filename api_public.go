package goolstar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/juanqui-art/goolstar-go/internal/optimize"
)

// PublicAPI reads tournament data that needs no authentication. Every call
// goes through the optimizing transport, so repeated reads within the cache
// TTL never touch the network and concurrent identical reads share one
// round trip.
type PublicAPI struct {
	transport *optimize.Transport
	baseURL   string
}

func (p *PublicAPI) get(ctx context.Context, endpoint string, priority optimize.Priority, out any) error {
	payload, err := p.transport.Do(ctx, optimize.Request{
		Method:   http.MethodGet,
		URL:      joinURL(p.baseURL, endpoint),
		Priority: priority,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// Teams returns the first page of registered teams.
func (p *PublicAPI) Teams(ctx context.Context) (*Page[Team], error) {
	var page Page[Team]
	if err := p.get(ctx, "/equipos/", optimize.PriorityLow, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Team returns a single team by id.
func (p *PublicAPI) Team(ctx context.Context, id int64) (*Team, error) {
	var team Team
	if err := p.get(ctx, fmt.Sprintf("/equipos/%d/", id), optimize.PriorityLow, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// Matches returns the first page of matches.
func (p *PublicAPI) Matches(ctx context.Context) (*Page[Match], error) {
	var page Page[Match]
	if err := p.get(ctx, "/partidos/", optimize.PriorityLow, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpcomingMatches returns matches scheduled in the near future. This is the
// landing-page call, so it enters the dispatch queue at high priority and
// jumps ahead of background reads.
func (p *PublicAPI) UpcomingMatches(ctx context.Context) ([]Match, error) {
	var matches []Match
	if err := p.get(ctx, "/partidos/proximos/", optimize.PriorityHigh, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// Match returns a single match by id.
func (p *PublicAPI) Match(ctx context.Context, id int64) (*Match, error) {
	var match Match
	if err := p.get(ctx, fmt.Sprintf("/partidos/%d/", id), optimize.PriorityLow, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

// Tournaments returns the first page of tournaments.
func (p *PublicAPI) Tournaments(ctx context.Context) (*Page[Tournament], error) {
	var page Page[Tournament]
	if err := p.get(ctx, "/torneos/", optimize.PriorityLow, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TournamentStandings returns the current table for a tournament.
func (p *PublicAPI) TournamentStandings(ctx context.Context, tournamentID int64) ([]StandingEntry, error) {
	var standings []StandingEntry
	endpoint := fmt.Sprintf("/torneos/%d/tabla/", tournamentID)
	if err := p.get(ctx, endpoint, optimize.PriorityLow, &standings); err != nil {
		return nil, err
	}
	return standings, nil
}

// TournamentScorers returns the scorer ranking for a tournament.
func (p *PublicAPI) TournamentScorers(ctx context.Context, tournamentID int64) ([]ScorerEntry, error) {
	var scorers []ScorerEntry
	endpoint := fmt.Sprintf("/torneos/%d/goleadores/", tournamentID)
	if err := p.get(ctx, endpoint, optimize.PriorityLow, &scorers); err != nil {
		return nil, err
	}
	return scorers, nil
}
