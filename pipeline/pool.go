package pipeline

import (
	"sync"

	"github.com/rs/zerolog"
)

// Task is an independent unit of deferred work carrying its own immutable
// snapshot of everything it needs. Tasks for different violations run in any
// order and must each be idempotent.
type Task interface {
	Name() string
	Run() error
}

// TaskPool runs deferred pipeline work on a bounded set of workers so bursts
// of violations cannot grow resource usage without limit.
type TaskPool struct {
	tasks chan Task
	wg    sync.WaitGroup
	log   zerolog.Logger
}

// NewTaskPool starts a pool with the given number of workers.
func NewTaskPool(workers int, log zerolog.Logger) *TaskPool {
	if workers <= 0 {
		workers = 4
	}
	p := &TaskPool{
		tasks: make(chan Task, workers*4),
		log:   log.With().Str("component", "taskpool").Logger(),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *TaskPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		if err := task.Run(); err != nil {
			// Task failures stay local; the frame loop never sees them.
			p.log.Error().Err(err).Str("task", task.Name()).Msg("deferred task failed")
		}
	}
}

// Submit queues a task, blocking when the queue is full rather than growing
// it.
func (p *TaskPool) Submit(task Task) {
	p.tasks <- task
}

// Close waits for all submitted tasks to finish and stops the workers.
func (p *TaskPool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
