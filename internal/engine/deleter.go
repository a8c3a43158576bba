package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bit2swaz/rotate-backups/internal/rotation"
	"github.com/bit2swaz/rotate-backups/pkg/storage"
)

type deleteResult struct {
	name string
	err  error
}

// deleteAll removes names through a fixed pool of workers. Each failure is
// recorded on its own; results follow the order of names.
func (e *Executor) deleteAll(ctx context.Context, logger *zap.Logger, driver storage.Driver, names []string) ([]string, []DeleteFailure) {
	if len(names) == 0 {
		return nil, nil
	}

	workerCount := e.deleteWorkers
	if workerCount > len(names) {
		workerCount = len(names)
	}

	jobs := make(chan string)
	results := make(chan deleteResult, len(names))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				results <- deleteResult{name: name, err: driver.Delete(ctx, name)}
			}
		}()
	}

	go func() {
		for _, name := range names {
			jobs <- name
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	errs := make(map[string]error, len(names))
	for res := range results {
		e.metrics.ObserveDeletion(driver.Location(), res.err)
		if res.err != nil {
			errs[res.name] = &rotation.StorageError{
				Operation: "delete",
				Location:  driver.Location(),
				Name:      res.name,
				Err:       res.err,
			}
			logger.Error("failed to delete backup", zap.String("name", res.name), zap.Error(res.err))
			continue
		}
		errs[res.name] = nil
		logger.Info("deleted backup", zap.String("name", res.name))
	}

	var (
		deleted  []string
		failures []DeleteFailure
	)
	for _, name := range names {
		if err := errs[name]; err != nil {
			failures = append(failures, DeleteFailure{Name: name, Err: err})
			continue
		}
		deleted = append(deleted, name)
	}
	return deleted, failures
}
