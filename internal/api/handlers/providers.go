package handlers

import (
	"context"

	"github.com/randytsao24/walkwise/internal/journal"
	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/navigation"
)

// Navigator abstracts the navigation controller for testability.
type Navigator interface {
	SetupRoute(ctx context.Context, req navigation.SetupRequest) error
	StartNavigation(ctx context.Context) error
	ClearRoute(ctx context.Context) error
	PushFix(ctx context.Context, fix location.Fix) error
	PushTranscript(ctx context.Context, text string) error
	ReportLocationFailure(ctx context.Context, cause error) error
	Status() navigation.Status
}

// HistoryProvider abstracts the event journal.
type HistoryProvider interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}
