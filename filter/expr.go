package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/vivialconnect/resource"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler. Expressions see
// every attribute of a resource under its wire name, for example
// `status == "delivered" and num_media > 0`.
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached.(CompiledFilter), nil
		}
	}

	// Attributes are only known at run time
	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether r matches. Resources the expression fails on do
// not match; use Check to see the error.
func (f *exprFilter) Evaluate(r *resource.Resource) bool {
	ok, err := f.Check(r)
	return err == nil && ok
}

// Check evaluates the filter and returns any runtime error
func (f *exprFilter) Check(r *resource.Resource) (bool, error) {
	result, err := expr.Run(f.program, createRuntimeEnvironment(r))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Kind:       r.Kind().Singular,
			ResourceID: r.IDString(),
			Err:        err,
		}
	}
	matched, _ := result.(bool)
	return matched, nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 24)
	addHelperFunctions(funcs)
	return funcs
}

func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(v any) int {
		t := toTime(v)
		if t.IsZero() {
			return 0
		}
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["hoursAgo"] = func(hours int) time.Time {
		return time.Now().Add(-time.Duration(hours) * time.Hour)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["parseDate"] = func(s string) time.Time {
		return toTime(s)
	}
	env["before"] = func(v any, t time.Time) bool {
		at := toTime(v)
		return !at.IsZero() && at.Before(t)
	}
	env["after"] = func(v any, t time.Time) bool {
		at := toTime(v)
		return !at.IsZero() && at.After(t)
	}
	// Case-insensitive string helpers. The operators contains, startsWith
	// and endsWith stay available for exact matching.
	env["icontains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["istartsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["iendsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// toTime accepts the timestamp forms found in attributes
func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := dateparse.ParseIn(t, time.UTC)
		if err != nil {
			return time.Time{}
		}
		return parsed
	case float64:
		return time.Unix(int64(t), 0).UTC()
	}
	return time.Time{}
}

// createRuntimeEnvironment exposes the attributes of r next to the helpers.
// Helpers win over attributes of the same name; attr() reaches those.
func createRuntimeEnvironment(r *resource.Resource) map[string]any {
	attrs := r.Attributes()
	env := make(map[string]any, len(attrs)+32)
	maps.Copy(env, attrs)
	addHelperFunctions(env)

	env["Kind"] = r.Kind().Singular
	env["ID"] = r.IDString()
	env["attr"] = func(key string) any {
		return attrs[key]
	}
	env["has"] = func(key string) bool {
		v, ok := attrs[key]
		return ok && v != nil
	}

	tags, _ := attrs["tags"].(map[string]any)
	env["hasTag"] = createHasTagFunc(tags)
	env["tag"] = func(key string) string {
		if v, ok := tags[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}

	return env
}

// createHasTagFunc matches tag keys case-insensitively. With a second
// argument the tag value must match as well.
func createHasTagFunc(tags map[string]any) func(key string, value ...string) bool {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, strings.ToLower(k))
	}
	return func(key string, value ...string) bool {
		if !slices.Contains(keys, strings.ToLower(key)) {
			return false
		}
		if len(value) == 0 {
			return true
		}
		for k, v := range tags {
			if strings.EqualFold(k, key) {
				return fmt.Sprint(v) == value[0]
			}
		}
		return false
	}
}
