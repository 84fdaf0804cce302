package queue

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestJobsRunAndReportErrors(t *testing.T) {
	rqm := NewRequestQueueManager(4, 2)
	t.Cleanup(rqm.Shutdown)

	var ran atomic.Int32
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		errc := make(chan error, 1)
		fail := i%2 == 0
		rqm.EnqueueJob(Job{
			Fn: func() error {
				ran.Add(1)
				if fail {
					return boom
				}
				return nil
			},
			Errc: errc,
		})
		err := <-errc
		if fail && !errors.Is(err, boom) {
			t.Fatalf("job %d: expected boom, got %v", i, err)
		}
		if !fail && err != nil {
			t.Fatalf("job %d: unexpected error %v", i, err)
		}
	}
	if ran.Load() != 10 {
		t.Fatalf("expected 10 jobs to run, got %d", ran.Load())
	}
}

func TestPanickingJobBecomesError(t *testing.T) {
	rqm := NewRequestQueueManager(1, 1)
	t.Cleanup(rqm.Shutdown)

	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { panic("handler exploded") }, Errc: errc})
	if err := <-errc; err == nil || !strings.Contains(err.Error(), "handler exploded") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}

	errc = make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { return nil }, Errc: errc})
	if err := <-errc; err != nil {
		t.Fatalf("worker should survive a panic, got %v", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	rqm := NewRequestQueueManager(1, 1)
	rqm.Shutdown()
	rqm.Shutdown()
}
