package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitForStatus(t *testing.T, s *Scheduler, name string, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, item := range s.List() {
			if item.Name == name && item.Status == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", name, want)
}

func TestRunTriggersJob(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	s.Register(Job{
		Name:     "flush",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})

	if err := s.Run(context.Background(), "flush"); err != nil {
		t.Fatalf("run: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("manual trigger never executed the job")
	}
	waitForStatus(t, s, "flush", StatusFulfill)
}

func TestRunUnknownJob(t *testing.T) {
	s := New()
	if err := s.Run(context.Background(), "ghost"); err == nil {
		t.Fatal("unknown job accepted")
	}
}

func TestRunRecordsFailure(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			return errors.New("boom")
		},
	})

	if err := s.Run(context.Background(), "broken"); err != nil {
		t.Fatalf("run: %v", err)
	}
	waitForStatus(t, s, "broken", StatusReject)
}
