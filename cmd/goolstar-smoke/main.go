// Command goolstar-smoke exercises the SDK against a live backend. It reads
// its configuration from the environment (see goolstar.ConfigFromEnv), fetches
// the public endpoints, optionally logs in when GOOLSTAR_USERNAME and
// GOOLSTAR_PASSWORD are set, and prints a metrics summary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	goolstar "github.com/juanqui-art/goolstar-go"
	"github.com/juanqui-art/goolstar-go/session"
)

func main() {
	cfg := goolstar.ConfigFromEnv()

	sdk, err := goolstar.New().
		WithConfig(cfg).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer sdk.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := sdk.Hydrate(ctx); err != nil {
		log.Printf("hydrate: %v", err)
	}

	matches, err := sdk.Public().UpcomingMatches(ctx)
	if err != nil {
		log.Printf("upcoming matches: %v", err)
	} else {
		fmt.Printf("upcoming matches: %d\n", len(matches))
	}

	teams, err := sdk.Public().Teams(ctx)
	if err != nil {
		log.Printf("teams: %v", err)
	} else {
		fmt.Printf("teams: %d total\n", teams.Count)
	}

	username := os.Getenv("GOOLSTAR_USERNAME")
	password := os.Getenv("GOOLSTAR_PASSWORD")
	if username != "" && password != "" {
		err := sdk.Session().Login(ctx, session.Credentials{Username: username, Password: password})
		if err != nil {
			log.Printf("login: %v", err)
		} else {
			user := sdk.Session().CurrentUser()
			fmt.Printf("logged in as %s (staff=%v)\n", user.Username, user.IsStaff)

			if user.IsStaff {
				all, err := sdk.DashboardData().AllTeams(ctx)
				if err != nil {
					log.Printf("dashboard teams: %v", err)
				} else {
					fmt.Printf("dashboard teams: %d\n", len(all))
				}
			}
		}
	}

	snap := sdk.MetricsSnapshot()
	fmt.Println("metrics:")
	for id, value := range snap.Counters {
		if value > 0 {
			fmt.Printf("  %s = %d\n", id.Name(), value)
		}
	}
}
