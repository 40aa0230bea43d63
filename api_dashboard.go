package goolstar

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// DashboardAPI exposes the staff data sets as typed collections on top of
// [DashboardClient]. Full-collection loads walk every page; per-team fan-out
// runs in bounded batches so the backend rate limiter stays quiet.
type DashboardAPI struct {
	client *DashboardClient
}

func decodeAll[T any](raw []json.RawMessage, what string) []T {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var value T
		if err := json.Unmarshal(item, &value); err != nil {
			log.Printf("goolstar: skipping malformed %s record", what)
			continue
		}
		out = append(out, value)
	}
	return out
}

// AllTeams loads every registered team across all pages.
func (d *DashboardAPI) AllTeams(ctx context.Context) ([]Team, error) {
	raw, err := d.client.LoadAllPaginated(ctx, "/equipos/")
	if err != nil {
		return nil, err
	}
	return decodeAll[Team](raw, "team"), nil
}

// AllMatches loads every match across all pages.
func (d *DashboardAPI) AllMatches(ctx context.Context) ([]Match, error) {
	raw, err := d.client.LoadAllPaginated(ctx, "/partidos/")
	if err != nil {
		return nil, err
	}
	return decodeAll[Match](raw, "match"), nil
}

// AllPlayers loads every player across all pages.
func (d *DashboardAPI) AllPlayers(ctx context.Context) ([]Player, error) {
	raw, err := d.client.LoadAllPaginated(ctx, "/jugadores/")
	if err != nil {
		return nil, err
	}
	return decodeAll[Player](raw, "player"), nil
}

// PlayersByTeams fetches each team's roster concurrently in batches. Teams
// whose fetch fails contribute an empty roster; the map always has an entry
// per requested team.
func (d *DashboardAPI) PlayersByTeams(ctx context.Context, teamIDs []int64) (map[int64][]Player, error) {
	tasks := make([]func(context.Context) ([]Player, error), len(teamIDs))
	for i, id := range teamIDs {
		id := id
		tasks[i] = func(ctx context.Context) ([]Player, error) {
			raw, err := d.client.LoadAllPaginated(ctx, fmt.Sprintf("/jugadores/?equipo=%d", id))
			if err != nil {
				return nil, err
			}
			return decodeAll[Player](raw, "player"), nil
		}
	}

	rosters := ProcessBatches(ctx, tasks, d.client.batchSize, d.client.batchDelay)

	byTeam := make(map[int64][]Player, len(teamIDs))
	for i, id := range teamIDs {
		byTeam[id] = rosters[i]
	}
	return byTeam, nil
}
