package main

import (
	"context"
	"log/slog"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/persistence"
)

type seedUserStore interface {
	ListUsers(ctx context.Context) ([]persistence.User, error)
}

type seedUser struct {
	application.RegisterUserParams
	events []application.EventInput
}

// Development accounts mirroring a small campus: two instructors with a
// handful of events each, plus student accounts to book with. All passwords
// equal "password123".
var seedUsers = []seedUser{
	{
		RegisterUserParams: application.RegisterUserParams{
			Username:   "dvance",
			Password:   "password123",
			Role:       application.RoleStaff,
			Department: "Computer Science",
			FullName:   "Diana Vance",
		},
		events: []application.EventInput{
			{
				Title:       "Distributed Systems Lecture",
				Description: "Consensus, replication and failure models.",
				Type:        "lecture",
				Department:  "Computer Science",
				Date:        "2026-09-07",
				StartTime:   "10:00",
				EndTime:     "12:00",
				Location:    "Hall 3",
				Capacity:    40,
			},
			{
				Title:            "Systems Programming Lab",
				Description:      "Hands-on lab, bring a laptop.",
				Type:             "lab",
				Department:       "Computer Science",
				Date:             "2026-09-08",
				StartTime:        "14:00",
				EndTime:          "16:00",
				Location:         "Lab B2",
				Capacity:         20,
				AllowOverbooking: true,
			},
			{
				Title:      "Office Hours",
				Type:       "office_hours",
				Department: "Computer Science",
				Date:       "2026-09-09",
				StartTime:  "09:00",
				EndTime:    "10:00",
				Location:   "Room 412",
				Capacity:   6,
			},
		},
	},
	{
		RegisterUserParams: application.RegisterUserParams{
			Username:   "rmills",
			Password:   "password123",
			Role:       application.RoleStaff,
			Department: "Mathematics",
			FullName:   "Robert Mills",
		},
		events: []application.EventInput{
			{
				Title:      "Linear Algebra Lecture",
				Type:       "lecture",
				Department: "Mathematics",
				Date:       "2026-09-07",
				StartTime:  "13:00",
				EndTime:    "15:00",
				Location:   "Hall 1",
				Capacity:   60,
			},
		},
	},
	{
		RegisterUserParams: application.RegisterUserParams{
			Username:   "ada",
			Password:   "password123",
			Role:       application.RoleStudent,
			Department: "Computer Science",
			FullName:   "Ada Lovelace",
		},
	},
	{
		RegisterUserParams: application.RegisterUserParams{
			Username:   "alan",
			Password:   "password123",
			Role:       application.RoleStudent,
			Department: "Computer Science",
			FullName:   "Alan Turing",
		},
	},
	{
		RegisterUserParams: application.RegisterUserParams{
			Username:   "emmy",
			Password:   "password123",
			Role:       application.RoleStudent,
			Department: "Mathematics",
			FullName:   "Emmy Noether",
		},
	},
}

// seed loads the development fixtures once; a store that already has accounts
// is left untouched so restarts do not duplicate data.
func seed(ctx context.Context, logger *slog.Logger, store seedUserStore, users *application.UserService, events *application.EventService) error {
	existing, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "seed skipped, accounts already present", "users", len(existing))
		return nil
	}

	created := 0
	for _, entry := range seedUsers {
		user, err := users.RegisterUser(ctx, entry.RegisterUserParams)
		if err != nil {
			return err
		}
		principal := application.Principal{
			UserID:     user.ID,
			Role:       user.Role,
			Department: user.Department,
			FullName:   user.FullName,
		}
		for _, input := range entry.events {
			if _, err := events.CreateEvent(ctx, principal, input); err != nil {
				return err
			}
			created++
		}
	}

	logger.InfoContext(ctx, "development data seeded", "users", len(seedUsers), "events", created)
	return nil
}
