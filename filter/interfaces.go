package filter

import (
	"context"

	"github.com/s0up4200/vivialconnect/resource"
)

// Filter decides whether a resource matches
type Filter interface {
	Evaluate(r *resource.Resource) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string

	// IsThreadSafe indicates if the filter can be evaluated concurrently
	IsThreadSafe() bool
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates a filter against a set of resources
type Evaluator interface {
	Evaluate(ctx context.Context, filter CompiledFilter, resources []*resource.Resource) ([]*resource.Resource, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, resources []*resource.Resource) (map[string][]*resource.Resource, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// BatchResult is the outcome of one filter in a batch
type BatchResult struct {
	FilterName string
	Matches    []*resource.Resource
	Error      error
}

// WorkerPool defines the interface for concurrent work execution
type WorkerPool interface {
	Submit(work func()) error

	// Stop waits for submitted work to finish
	Stop(ctx context.Context) error
}
