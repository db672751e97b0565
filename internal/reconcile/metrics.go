package reconcile

import (
	"context"
	"time"
)

// Recorder receives run counters. infrastructure.RunMetrics implements it
// on top of OpenTelemetry.
type Recorder interface {
	RowWritten(ctx context.Context, ticker string)
	RowDeferred(ctx context.Context, ticker string)
	RowSkipped(ctx context.Context, ticker string)
	BlockOpened(ctx context.Context, rows int)
	ExtractionEmpty(ctx context.Context, ticker string)
	RunFinished(ctx context.Context, d time.Duration, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RowWritten(context.Context, string)                {}
func (nopRecorder) RowDeferred(context.Context, string)               {}
func (nopRecorder) RowSkipped(context.Context, string)                {}
func (nopRecorder) BlockOpened(context.Context, int)                  {}
func (nopRecorder) ExtractionEmpty(context.Context, string)           {}
func (nopRecorder) RunFinished(context.Context, time.Duration, string) {}
