// Пакет для управления периодическими задачами сервиса: истечение сессий редактора, чистка черновиков.
package cronmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"
)

type CronJobFunc func()

type Job struct {
	Func     CronJobFunc
	Schedule string
}

type JobRegistry map[string]Job

type CronManager struct {
	dispatcher  *cron.Cron
	jobs        map[string]cron.EntryID
	mu          sync.Mutex
	jobRegistry JobRegistry
}

func NewCronManager(jobRegistry JobRegistry) *CronManager {
	dispatcher := cron.New(
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &CronManager{
		dispatcher:  dispatcher,
		jobs:        make(map[string]cron.EntryID),
		jobRegistry: jobRegistry,
	}
}

// LoadJobs пересоздает расписание из реестра. Задачи с неверным расписанием пропускаются, ошибки возвращаются вместе.
func (cm *CronManager) LoadJobs() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for name, entryID := range cm.jobs {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}

	var errs []error
	for name, job := range cm.jobRegistry {
		id, err := cm.dispatcher.AddFunc(job.Schedule, job.Func)
		if err != nil {
			slog.Error("Failed to add job", "name", name, "schedule", job.Schedule, "err", err)
			errs = append(errs, fmt.Errorf("add job %q: %w", name, err))
			continue
		}
		cm.jobs[name] = id
	}
	return errors.Join(errs...)
}

// Jobs - имена запланированных задач
func (cm *CronManager) Jobs() []string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	res := make([]string, 0, len(cm.jobs))
	for name := range cm.jobs {
		res = append(res, name)
	}
	slices.Sort(res)
	return res
}

// RunNow выполняет задачу из реестра вне расписания
func (cm *CronManager) RunNow(name string) error {
	job, ok := cm.jobRegistry[name]
	if !ok {
		return fmt.Errorf("no job function registered for name: %s", name)
	}
	job.Func()
	return nil
}

func (cm *CronManager) RemoveJob(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, exists := cm.jobs[name]; exists {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}
}

func (cm *CronManager) Start() {
	cm.dispatcher.Start()
}

// Stop останавливает расписание и дожидается завершения выполняемых задач
func (cm *CronManager) Stop() {
	ctx := cm.dispatcher.Stop()
	<-ctx.Done()
}
