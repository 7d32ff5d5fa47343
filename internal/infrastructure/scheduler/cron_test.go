package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestStartInvalidExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron spec", time.UTC)
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("invalid cron expression must error")
	}
}

func TestStartWithoutJobOrSpec(t *testing.T) {
	t.Parallel()

	if err := NewCronScheduler("", time.UTC).Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("empty spec should be a no-op: %v", err)
	}
	if err := NewCronScheduler("* * * * *", time.UTC).Start(context.Background(), nil); err != nil {
		t.Fatalf("nil job should be a no-op: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := NewCronScheduler("* * * * *", time.UTC).Stop(context.Background()); err != nil {
		t.Fatalf("stop before start should be a no-op: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("* * * * *", time.UTC)
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}
