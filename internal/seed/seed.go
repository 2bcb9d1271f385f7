// Package seed fills an empty database with demo data so the dashboard and
// group pages have something to show during development.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"time"

	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/repository/sqlite"
)

// Sentinel user: if it exists the database has been seeded before and Demo
// is a no-op.
const annaID = "demo-anna"

// Demo seeds four users, a shared group and a couple of months of step
// history. Members are enrolled by issuing and accepting invitations, the
// same path real users take. Idempotent: a second call does nothing.
func Demo(ctx context.Context, db *sqlite.DB, logger *slog.Logger) error {
	users := db.Users()

	if _, err := users.GetByID(ctx, annaID); err == nil {
		logger.Info("demo data already present, skipping seed")
		return nil
	}

	demoUsers := []model.User{
		{ID: annaID, DisplayName: "Anna Lindqvist"},
		{ID: "demo-bjorn", DisplayName: "Björn Eklund"},
		{ID: "demo-cecilia", DisplayName: "Cecilia Sandberg"},
		{ID: "demo-admin", DisplayName: "Moa Ekström"},
	}
	for i := range demoUsers {
		if err := users.Upsert(ctx, &demoUsers[i]); err != nil {
			return fmt.Errorf("seeding user %s: %w", demoUsers[i].DisplayName, err)
		}
	}

	group := &model.Group{
		Name:    "Prommis-gänget",
		OwnerID: annaID,
	}
	if err := db.Groups().Create(ctx, group); err != nil {
		return fmt.Errorf("seeding group: %w", err)
	}

	// Enroll the other members through the invitation flow.
	for _, userID := range []string{"demo-bjorn", "demo-cecilia"} {
		if err := enroll(ctx, db, group.ID, userID); err != nil {
			return fmt.Errorf("enrolling %s: %w", userID, err)
		}
	}

	if err := seedSteps(ctx, db, demoUsers[:3]); err != nil {
		return err
	}

	logger.Info("demo data seeded",
		slog.String("group", group.ID),
		slog.Int("users", len(demoUsers)),
	)
	return nil
}

func enroll(ctx context.Context, db *sqlite.DB, groupID, userID string) error {
	now := time.Now().UTC()

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	invite := &model.Invitation{
		GroupID:     groupID,
		Token:       base64.RawURLEncoding.EncodeToString(buf),
		CreatedByID: annaID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	if err := db.Invitations().Create(ctx, invite); err != nil {
		return err
	}
	return db.Invitations().Accept(ctx, invite.ID, userID, now)
}

// seedSteps writes a year of plausible step history per member, so every
// chart window has data. The generator is seeded per user so reruns against
// a wiped database produce the same numbers.
func seedSteps(ctx context.Context, db *sqlite.DB, members []model.User) error {
	entries := db.StepEntries()
	today := model.Day(time.Now())

	for i, user := range members {
		rng := mathrand.New(mathrand.NewSource(int64(i + 1)))
		for daysAgo := 364; daysAgo >= 0; daysAgo-- {
			// Roughly one rest day a week.
			if rng.Intn(7) == 0 {
				continue
			}
			entry := &model.StepEntry{
				UserID: user.ID,
				Date:   today.AddDate(0, 0, -daysAgo),
				Steps:  4000 + rng.Intn(9000),
			}
			if err := entries.Create(ctx, entry); err != nil {
				return fmt.Errorf("seeding steps for %s: %w", user.DisplayName, err)
			}
		}
	}
	return nil
}
