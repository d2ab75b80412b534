// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take repository interfaces, never a concrete store, so tests
// pass in-memory fakes (see fakes_test.go) and main.go picks SQLite or
// Postgres without this package knowing.
//
// ERRORS:
// Services return apperror values (ValidationFailed, NotFound, Conflict).
// The handler translates them to HTTP status codes; nothing here knows
// about HTTP.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

// Publisher pushes a stored notification to live subscribers. The
// notification log stays the source of truth; a push is only a hint to
// re-read it, so a failed Publish loses nothing.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// notifier appends to a user's notification log as a best-effort side
// effect: failures are logged at Warn and never returned.
type notifier struct {
	notes     repository.NotificationRepository
	publisher Publisher // optional
	logger    *slog.Logger
}

func (n notifier) notify(ctx context.Context, userID, message string) {
	note, err := n.notes.AppendNotification(ctx, userID, message)
	if err != nil {
		n.logger.Warn("notification not recorded",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, *note); err != nil {
		n.logger.Warn("notification not pushed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}

// required trims each value and returns a validation error naming the
// first empty one.
func required(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperror.ValidationFailed(f.name, f.name+" is required")
		}
	}
	return nil
}

type field struct {
	name  string
	value string
}

// userNotFound rewrites a store NotFound into the message clients expect.
func userNotFound(err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFoundMessage("User not found")
	}
	return err
}
