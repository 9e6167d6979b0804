package usecase

import (
	"context"
	"testing"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/extractor"
)

type fakeDriver struct {
	specs   []string
	jobs    []func(time.Time)
	started bool
	stopped bool
}

func (d *fakeDriver) Schedule(spec string, job func(time.Time)) error {
	d.specs = append(d.specs, spec)
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *fakeDriver) Start() { d.started = true }

func (d *fakeDriver) Stop(ctx context.Context) error {
	d.stopped = true
	return nil
}

type fakeRetention struct {
	articlesBefore time.Time
	runsBefore     time.Time
	calls          int
}

func (r *fakeRetention) Cleanup(ctx context.Context, articlesBefore, runsBefore time.Time) (int64, int64, error) {
	r.calls++
	r.articlesBefore = articlesBefore
	r.runsBefore = runsBefore
	return 3, 7, nil
}

func testScheduler(driver *fakeDriver, retention *fakeRetention, plan SweepPlan) *Scheduler {
	reg := extractor.NewRegistry()
	reg.Register(&listExtractor{kind: domain.KindRSS})
	acq := NewAcquisition(AcquisitionDeps{Registry: reg, Articles: newFakeRepo()})
	return NewScheduler(driver, acq, retention, plan, nil)
}

func TestSchedulerStartRegistersJobs(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	plan := SweepPlan{
		PrimarySpec: "0 * * * *",
		CustomSpec:  "*/30 * * * *",
		CleanupSpec: "0 2 * * *",
		Primary:     []domain.Source{{Name: "feed", Kind: domain.KindRSS, Enabled: true}},
		Custom:      []domain.Source{{Name: "custom", Kind: domain.KindRSS, Enabled: true}},
	}
	s := testScheduler(driver, &fakeRetention{}, plan)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if len(driver.specs) != 3 {
		t.Fatalf("expected 3 scheduled jobs, got %v", driver.specs)
	}
	if !driver.started {
		t.Fatal("driver was not started")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if !driver.stopped {
		t.Fatal("driver was not stopped")
	}
}

func TestSchedulerSkipsEmptySweeps(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	plan := SweepPlan{
		PrimarySpec: "0 * * * *",
		CustomSpec:  "*/30 * * * *",
		// No sources configured for either sweep, no cleanup spec.
	}
	s := testScheduler(driver, nil, plan)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if len(driver.specs) != 0 {
		t.Fatalf("expected no jobs, got %v", driver.specs)
	}
}

func TestSchedulerCleanupCutoffs(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	retention := &fakeRetention{}
	plan := SweepPlan{CleanupSpec: "0 2 * * *"}
	s := testScheduler(driver, retention, plan)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if len(driver.jobs) != 1 {
		t.Fatalf("expected the cleanup job, got %d jobs", len(driver.jobs))
	}

	now := time.Date(2024, time.May, 1, 2, 0, 0, 0, time.UTC)
	driver.jobs[0](now)

	if retention.calls != 1 {
		t.Fatalf("expected one cleanup call, got %d", retention.calls)
	}
	if got, want := retention.articlesBefore, now.AddDate(0, 0, -30); !got.Equal(want) {
		t.Fatalf("article cutoff = %v, want %v", got, want)
	}
	if got, want := retention.runsBefore, now.AddDate(0, 0, -7); !got.Equal(want) {
		t.Fatalf("run cutoff = %v, want %v", got, want)
	}
}
