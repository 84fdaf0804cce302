package queue

import (
	"fmt"
	"log/slog"
	"sync"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs HTTP handler jobs on a fixed pool of workers. The queue
// is bounded, so EnqueueJob blocks while every worker is busy and the buffer is full.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	logger     *slog.Logger
	wg         sync.WaitGroup
	once       sync.Once
}

func NewRequestQueueManager(queueSize int, maxWorkers int) *RequestQueueManager {
	return NewRequestQueueManagerWithLogger(queueSize, maxWorkers, nil)
}

func NewRequestQueueManagerWithLogger(queueSize int, maxWorkers int, logger *slog.Logger) *RequestQueueManager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
		logger:     logger.With(slog.String("component", "queue")),
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			rqm.logger.Debug("worker started", slog.Int("worker", workerID))
			for job := range rqm.JobQueue {
				err := run(job.Fn)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			rqm.logger.Debug("worker stopped", slog.Int("worker", workerID))
		}(i)
	}
}

// run keeps a panicking handler from taking its worker down with it.
func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return fn()
}

func (rqm *RequestQueueManager) EnqueueJob(job Job) {
	rqm.JobQueue <- job
}

// Depth is the number of jobs waiting for a worker.
func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

func (rqm *RequestQueueManager) Shutdown() {
	rqm.once.Do(func() {
		close(rqm.JobQueue)
	})
	rqm.wg.Wait()
}
