package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestStart_WithoutReportFunction(t *testing.T) {
	s := New(quietLogger())
	if err := s.Start("0 21 * * *"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler should not run without a report function")
	}
	s.Stop()
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New(quietLogger())
	s.SetReportFunction(func(context.Context) error { return nil })
	if err := s.Start("not a cron"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	s.Stop()
}

func TestStart_RegistersJob(t *testing.T) {
	s := New(quietLogger())
	s.SetReportFunction(func(context.Context) error { return nil })
	if err := s.Start("0 21 * * *"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatalf("expected running scheduler")
	}
	s.Stop()
}

func TestRunReport_PassesContextAndSurvivesErrors(t *testing.T) {
	s := New(quietLogger())
	calls := 0
	var gotCtx context.Context
	s.SetReportFunction(func(ctx context.Context) error {
		calls++
		gotCtx = ctx
		return errors.New("upstream down")
	})

	s.runReport()
	s.runReport()
	if calls != 2 {
		t.Fatalf("want 2 calls, got %d", calls)
	}

	s.Stop()
	if gotCtx.Err() == nil {
		t.Fatalf("report context should be cancelled after Stop")
	}
}
