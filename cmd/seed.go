package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/config"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo meetings and profiles",
		Long: `Insert demo meetings and profiles.

Meeting dates are relative to now so the open meetings accept entries.
Existing rows with the same ids are overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), time.Now().UTC())
		},
	}
}

func demoMeetings(now time.Time) []model.Meeting {
	day := 24 * time.Hour
	return []model.Meeting{
		{
			ID: "1", Name: "Southern 6/4/3 Stage Road Relays",
			Date: now.Add(40 * day), ClosingAt: now.Add(35 * day),
			Venue: "Rushmoor Arena, Aldershot, Hants", Description: "Annual road relay championships", IsOpen: true,
		},
		{
			ID: "2", Name: "SEAA Track & Field Championships",
			Date: now.Add(60 * day), ClosingAt: now.Add(50 * day),
			Venue: "Bedford International Stadium", Description: "Regional track and field championships", IsOpen: true,
		},
		{
			ID: "3", Name: "Southern Cross Country Championships",
			Date: now.Add(-7 * day), ClosingAt: now.Add(-14 * day),
			Venue: "Parliament Hill, London", Description: "Cross country championships", IsOpen: true,
		},
	}
}

var demoProfiles = []model.Profile{
	{ID: "demo-participant", Email: "participant@example.com", FirstName: "Demo", Surname: "Participant", Role: model.RoleParticipant},
	{ID: "demo-manager", Email: "manager@example.com", FirstName: "Demo", Surname: "Manager", Role: model.RoleManager},
}

func runSeed(ctx context.Context, now time.Time) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	for _, m := range demoMeetings(now) {
		if err := store.PutMeeting(ctx, m); err != nil {
			return fmt.Errorf("seed meeting %s: %w", m.ID, err)
		}
	}
	for _, p := range demoProfiles {
		if err := store.PutProfile(ctx, p); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.ID, err)
		}
	}
	logger.Info("seeded demo data", "meetings", 3, "profiles", len(demoProfiles))
	return nil
}
