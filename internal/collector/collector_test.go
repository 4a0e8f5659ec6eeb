package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"sshwatch/internal/config"
	"sshwatch/internal/exclude"
	"sshwatch/internal/model"
	"sshwatch/internal/stats"
)

type fakeSource struct {
	batches [][]string
	errs    []error
	calls   int
}

func (f *fakeSource) Poll() ([]string, error) {
	i := f.calls
	f.calls++
	var lines []string
	var err error
	if i < len(f.batches) {
		lines = f.batches[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return lines, err
}

func (f *fakeSource) Close() error { return nil }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Collector.TopN = 5
	return cfg
}

func newCollectorForTest(cfg *config.Config, src LineSource, filter *exclude.Filter) *Collector {
	return New(cfg, src, filter, stats.NewStore(cfg.Collector.RetentionHours), nil, nil)
}

func TestEndToEndScenario(t *testing.T) {
	src := &fakeSource{batches: [][]string{{
		"Jan  5 10:00:01 host sshd[1]: Failed password for root from 1.2.3.4 port 22 ssh2",
		"Jan  5 10:00:02 host sshd[1]: Failed password for invalid user admin from 1.2.3.4 port 22 ssh2",
		"Jan  5 10:00:03 host sshd[1]: Accepted password for root from 5.6.7.8 port 22 ssh2",
	}}}
	c := newCollectorForTest(testConfig(), src, exclude.New(nil))
	now := time.Date(2026, 1, 5, 10, 0, 5, 0, time.UTC)
	c.tick(now)

	snap := c.Latest()
	if len(snap.TopUsers) != 2 {
		t.Fatalf("top users: %v", snap.TopUsers)
	}
	if snap.TopUsers[0].User != "admin" || snap.TopUsers[1].User != "root" {
		t.Fatalf("tie-break order: %v", snap.TopUsers)
	}
	if len(snap.TopIPs) != 1 || snap.TopIPs[0].IP != "1.2.3.4" || snap.TopIPs[0].Count != 2 {
		t.Fatalf("top ips: %v", snap.TopIPs)
	}
	if len(snap.Hourly) != 1 || snap.Hourly[0].Count != 2 {
		t.Fatalf("hourly: %v", snap.Hourly)
	}
	wantHour := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	if !snap.Hourly[0].Time.Equal(wantHour) {
		t.Fatalf("hour bucket: %s", snap.Hourly[0].Time)
	}
	if !snap.GeneratedAt.Equal(now) {
		t.Fatalf("generated_at: %s", snap.GeneratedAt)
	}

	counters := c.Stats()
	if counters.Recorded != 2 || counters.Accepted != 1 {
		t.Fatalf("counters: %+v", counters)
	}
}

func TestEmitsOncePerTickEvenWhenQuiet(t *testing.T) {
	src := &fakeSource{}
	c := newCollectorForTest(testConfig(), src, exclude.New(nil))
	var emitted []model.Snapshot
	c.Subscribe(func(s model.Snapshot) { emitted = append(emitted, s) })

	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	c.tick(base)
	c.tick(base.Add(3 * time.Second))
	if len(emitted) != 2 {
		t.Fatalf("emissions: %d", len(emitted))
	}
	if !emitted[1].GeneratedAt.After(emitted[0].GeneratedAt) {
		t.Fatalf("heartbeat snapshots must advance generated_at")
	}
}

func TestExcludedIPNeverCounted(t *testing.T) {
	src := &fakeSource{batches: [][]string{{
		"Jan  5 10:00:01 host sshd[1]: Failed password for root from 9.9.9.9 port 22 ssh2",
		"Jan  5 10:00:02 host sshd[1]: Failed password for root from 1.2.3.4 port 22 ssh2",
		"Jan  5 10:00:03 host sshd[1]: Failed password for admin from 9.9.9.9 port 22 ssh2",
	}}}
	c := newCollectorForTest(testConfig(), src, exclude.New([]string{"9.9.9.9"}))
	c.tick(time.Date(2026, 1, 5, 10, 0, 5, 0, time.UTC))

	snap := c.Latest()
	for _, ip := range snap.TopIPs {
		if ip.IP == "9.9.9.9" {
			t.Fatalf("excluded ip leaked into snapshot: %v", snap.TopIPs)
		}
	}
	if len(snap.TopIPs) != 1 || snap.TopIPs[0].Count != 1 {
		t.Fatalf("top ips: %v", snap.TopIPs)
	}
	if len(snap.TopUsers) != 1 || snap.TopUsers[0].User != "root" {
		t.Fatalf("top users: %v", snap.TopUsers)
	}
	counters := c.Stats()
	if counters.Excluded != 2 || counters.Recorded != 1 {
		t.Fatalf("counters: %+v", counters)
	}
}

func TestUnparsableLineDoesNotAbortTick(t *testing.T) {
	src := &fakeSource{batches: [][]string{{
		"complete garbage",
		"Jan  5 10:00:02 host sshd[1]: Failed password for root from 1.2.3.4 port 22 ssh2",
	}}}
	c := newCollectorForTest(testConfig(), src, exclude.New(nil))
	c.tick(time.Date(2026, 1, 5, 10, 0, 5, 0, time.UTC))
	snap := c.Latest()
	if len(snap.TopUsers) != 1 || snap.TopUsers[0].User != "root" {
		t.Fatalf("line after garbage not processed: %v", snap.TopUsers)
	}
	if c.Stats().ParseSkips != 1 {
		t.Fatalf("parse skips: %d", c.Stats().ParseSkips)
	}
}

func TestPollErrorStillEmits(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("log rotated away")}}
	c := newCollectorForTest(testConfig(), src, exclude.New(nil))
	var emissions int
	c.Subscribe(func(model.Snapshot) { emissions++ })
	c.tick(time.Date(2026, 1, 5, 10, 0, 5, 0, time.UTC))
	if emissions != 1 {
		t.Fatalf("emissions: %d", emissions)
	}
	if c.Stats().PollErrors != 1 {
		t.Fatalf("poll errors: %d", c.Stats().PollErrors)
	}
}

func TestLatestBeforeFirstTick(t *testing.T) {
	c := newCollectorForTest(testConfig(), &fakeSource{}, exclude.New(nil))
	snap := c.Latest()
	if snap.TopUsers == nil || snap.TopIPs == nil || snap.Hourly == nil {
		t.Fatalf("empty snapshot must have non-nil slices")
	}
	if len(snap.TopUsers) != 0 || !snap.GeneratedAt.IsZero() {
		t.Fatalf("expected zeroed snapshot: %v", snap)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Collector.TickInterval = 5 * time.Millisecond
	c := newCollectorForTest(cfg, &fakeSource{}, exclude.New(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
