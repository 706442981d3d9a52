package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job периодическая задача планировщика
type Job struct {
	Name       string
	Interval   time.Duration
	RunAtStart bool
	Fn         func(ctx context.Context) error
}

// Scheduler запускает периодические задачи в отдельных горутинах
type Scheduler struct {
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AddJob(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start запускает все задачи; повторный вызов не поддерживается
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}

	logrus.Infof("Scheduler started with %d jobs", len(s.jobs))
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	if job.RunAtStart {
		s.execute(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Debugf("Scheduler job %s stopped", job.Name)
			return
		case <-ticker.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	if err := job.Fn(ctx); err != nil {
		logrus.Errorf("Scheduler job %s failed: %s", job.Name, err.Error())
	}
}

// Stop останавливает задачи и дожидается их завершения
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	logrus.Info("Scheduler stopped")
}
