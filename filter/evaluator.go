package filter

import (
	"context"
	"runtime"
	"sync"

	"github.com/s0up4200/vivialconnect/resource"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.batchSize = size
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator interfaces
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.pool = NewWorkerPool(e.workerCount)

	return e
}

// Evaluate returns the resources matching filter, in input order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, resources []*resource.Resource) ([]*resource.Resource, error) {
	if len(resources) == 0 {
		return []*resource.Resource{}, nil
	}

	// Small sets are not worth the fan-out
	if len(resources) < e.batchSize {
		return e.evaluateSequential(filter, resources), nil
	}
	return e.evaluateConcurrent(ctx, filter, resources)
}

// EvaluateBatch evaluates multiple filters against resources concurrently,
// one pool task per filter. Filters cut short by ctx are left out of the
// result.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, resources []*resource.Resource) (map[string][]*resource.Resource, error) {
	if len(filters) == 0 || len(resources) == 0 {
		return make(map[string][]*resource.Resource), nil
	}

	results := make(map[string][]*resource.Resource)
	resultChan := make(chan BatchResult, len(filters))

	var wg sync.WaitGroup
	for name, filter := range filters {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()

			select {
			case <-ctx.Done():
				resultChan <- BatchResult{
					FilterName: name,
					Error:      ctx.Err(),
				}
				return
			default:
			}

			// tasks never Submit to their own pool
			resultChan <- BatchResult{
				FilterName: name,
				Matches:    e.evaluateSequential(filter, resources),
			}
		})

		if err != nil {
			wg.Done()
			return nil, err
		}
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		if result.Error != nil {
			continue
		}
		results[result.FilterName] = result.Matches
	}

	return results, nil
}

func (e *ConcurrentEvaluator) evaluateSequential(filter CompiledFilter, resources []*resource.Resource) []*resource.Resource {
	matches := make([]*resource.Resource, 0, len(resources)/4)
	for _, r := range resources {
		if filter.Evaluate(r) {
			matches = append(matches, r)
		}
	}
	return matches
}

// evaluateConcurrent splits resources into chunks and merges the matches
// back in chunk order
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, resources []*resource.Resource) ([]*resource.Resource, error) {
	chunkSize := max(len(resources)/e.workerCount, e.batchSize)

	type chunkResult struct {
		matches []*resource.Resource
		order   int
	}

	resultChan := make(chan chunkResult, (len(resources)/chunkSize)+1)
	var wg sync.WaitGroup

	chunkIndex := 0
	for i := 0; i < len(resources); i += chunkSize {
		end := min(i+chunkSize, len(resources))

		wg.Add(1)
		chunk := resources[i:end]
		index := chunkIndex
		chunkIndex++

		err := e.pool.Submit(func() {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			default:
			}

			matches := make([]*resource.Resource, 0, len(chunk)/4)
			for _, r := range chunk {
				if filter.Evaluate(r) {
					matches = append(matches, r)
				}
			}

			resultChan <- chunkResult{matches: matches, order: index}
		})

		if err != nil {
			wg.Done()
			return nil, err
		}
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make(map[int][]*resource.Resource)
	for result := range resultChan {
		results[result.order] = result.matches
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalMatches := 0
	for i := 0; i < len(results); i++ {
		totalMatches += len(results[i])
	}

	allMatches := make([]*resource.Resource, 0, totalMatches)
	for i := 0; i < len(results); i++ {
		allMatches = append(allMatches, results[i]...)
	}

	return allMatches, nil
}

// Stop gracefully stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
