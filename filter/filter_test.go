package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/s0up4200/vivialconnect/resource"
)

var messageKind = resource.NewKind("Message")

func testMessage(id int, attrs map[string]any) *resource.Resource {
	m := map[string]any{"id": float64(id)}
	for k, v := range attrs {
		m[k] = v
	}
	return resource.New(messageKind, m)
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `status == "delivered"`,
		},
		{
			name:        "empty expression",
			expression:  "  ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasTag("unclosed`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `direction == "inbound" and num_media > 0 and daysSince(date_created) < 30`,
		},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				var compErr *CompilationError
				if !errors.As(err, &compErr) {
					t.Errorf("expected *CompilationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter.Expression() != strings.TrimSpace(tt.expression) {
				t.Errorf("expression = %q", filter.Expression())
			}
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	recent := time.Now().UTC().AddDate(0, 0, -2).Format("2006-01-02T15:04:05")
	msg := testMessage(7, map[string]any{
		"status":       "delivered",
		"direction":    "inbound",
		"body":         "STOP sending me offers",
		"num_media":    float64(1),
		"from_number":  "+16125551212",
		"date_created": recent,
		"tags":         map[string]any{"Team": "red"},
	})

	tests := []struct {
		expression string
		want       bool
	}{
		{`status == "delivered"`, true},
		{`status == "failed"`, false},
		{`num_media > 0 and direction == "inbound"`, true},
		{`icontains(body, "stop")`, true},
		{`istartsWith(from_number, "+1612")`, true},
		{`iendsWith(body, "OFFERS")`, true},
		{`body contains "stop"`, false},
		{`body contains "STOP"`, true},
		{`from_number startsWith "+1612"`, true},
		{`body endsWith "offers" and not (body startsWith "stop")`, true},
		{`daysSince(date_created) < 7`, true},
		{`after(date_created, daysAgo(1))`, false},
		{`before(date_created, now())`, true},
		{`hasTag("team")`, true},
		{`hasTag("team", "red")`, true},
		{`hasTag("team", "blue")`, false},
		{`tag("Team") == "red"`, true},
		{`has("error_code")`, false},
		{`Kind == "message" and ID == "7"`, true},
		{`attr("status") == "delivered"`, true},
		{`undefined_attr == nil`, true},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if got := filter.Evaluate(msg); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluationErrorsDoNotMatch(t *testing.T) {
	filter, err := NewExprCompiler().Compile(`body.missing == 1`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	msg := testMessage(1, map[string]any{"body": "hi", "num_media": float64(1)})
	if filter.Evaluate(msg) {
		t.Fatalf("expected no match")
	}

	checker, ok := filter.(*exprFilter)
	if !ok {
		t.Fatalf("unexpected filter type %T", filter)
	}
	_, err = checker.Check(msg)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %v", err)
	}
	if evalErr.ResourceID != "1" || evalErr.Kind != "message" {
		t.Errorf("unexpected error fields: %+v", evalErr)
	}
}

func generateMessages(count int) []*resource.Resource {
	out := make([]*resource.Resource, count)
	for i := range count {
		status := "delivered"
		if i%3 == 0 {
			status = "failed"
		}
		out[i] = testMessage(i, map[string]any{
			"status":    status,
			"num_media": float64(i % 2),
			"body":      fmt.Sprintf("message %d", i),
		})
	}
	return out
}

func TestConcurrentEvaluation(t *testing.T) {
	compiler := NewExprCompiler()
	filter, err := compiler.Compile(`status == "failed"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	evaluator := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(10))
	defer evaluator.Stop(context.Background())

	messages := generateMessages(1000)
	matches, err := evaluator.Evaluate(t.Context(), filter, messages)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 334 {
		t.Fatalf("expected 334 matches, got %d", len(matches))
	}
	for i, m := range matches {
		if want := fmt.Sprint(i * 3); m.IDString() != want {
			t.Fatalf("match %d has id %s, want %s", i, m.IDString(), want)
		}
	}

	empty, err := evaluator.Evaluate(t.Context(), filter, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty result, got %v, %v", empty, err)
	}
}

func TestConcurrentEvaluationCancelled(t *testing.T) {
	filter, _ := NewExprCompiler().Compile(`status == "failed"`)
	evaluator := NewConcurrentEvaluator(WithWorkers(2), WithBatchSize(10))
	defer evaluator.Stop(context.Background())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := evaluator.Evaluate(ctx, filter, generateMessages(500)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBatchEvaluation(t *testing.T) {
	compiler := NewExprCompiler()
	filters := map[string]CompiledFilter{}
	for name, expression := range map[string]string{
		"failed": `status == "failed"`,
		"mms":    `num_media > 0`,
	} {
		f, err := compiler.Compile(expression)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		filters[name] = f
	}

	evaluator := NewConcurrentEvaluator(WithWorkers(2))
	defer evaluator.Stop(context.Background())

	results, err := evaluator.EvaluateBatch(t.Context(), filters, generateMessages(30))
	if err != nil {
		t.Fatalf("evaluate batch: %v", err)
	}
	if got := len(results["failed"]); got != 10 {
		t.Errorf("failed: expected 10 matches, got %d", got)
	}
	if got := len(results["mms"]); got != 15 {
		t.Errorf("mms: expected 15 matches, got %d", got)
	}
}

func TestFilterManager(t *testing.T) {
	manager := NewManager()
	defer manager.Close(context.Background())

	err := manager.RegisterFilters(map[string]string{
		"failed":  `status == "failed"`,
		"with-mm": `num_media > 0`,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := manager.RegisterFilter("broken", `status ==`); err == nil {
		t.Errorf("expected error for invalid filter")
	}

	names := manager.ListFilters()
	if strings.Join(names, ",") != "failed,with-mm" {
		t.Errorf("unexpected filters: %v", names)
	}

	messages := generateMessages(9)
	failed, err := manager.Apply(t.Context(), "failed", messages)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(failed) != 3 {
		t.Errorf("expected 3 failed messages, got %d", len(failed))
	}

	counts, err := manager.EvaluateAll(t.Context(), messages)
	if err != nil {
		t.Fatalf("evaluate all: %v", err)
	}
	if len(counts["failed"]) != 3 || len(counts["with-mm"]) != 4 || len(counts) != 2 {
		t.Errorf("unexpected matches per filter: failed=%d with-mm=%d", len(counts["failed"]), len(counts["with-mm"]))
	}

	if _, err := manager.EvaluateSelected(t.Context(), []string{"missing"}, messages); err == nil {
		t.Errorf("expected error for unknown filter")
	}

	adhoc, err := manager.Apply(t.Context(), `body == "message 4"`, messages)
	if err != nil || len(adhoc) != 1 {
		t.Errorf("ad hoc filter: %v, %v", adhoc, err)
	}
	named, err := manager.Apply(t.Context(), "with-mm", messages)
	if err != nil || len(named) != 4 {
		t.Errorf("named filter: %d matches, %v", len(named), err)
	}
	all, err := manager.Apply(t.Context(), "", messages)
	if err != nil || len(all) != len(messages) {
		t.Errorf("empty filter should pass everything through")
	}

	results, err := manager.EvaluateSelected(t.Context(), []string{"failed"}, messages)
	if err != nil || len(results) != 1 {
		t.Errorf("selected: %v, %v", results, err)
	}

	manager.UnregisterFilter("failed")
	if _, ok := manager.GetFilter("failed"); ok {
		t.Errorf("filter still registered")
	}
}

func TestCacheEffectiveness(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`status == "failed"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, _ := compiler.Compile(`status == "failed"`)
	if first != second {
		t.Errorf("expected cached filter to be reused")
	}

	compiler.Compile(`num_media > 0`)
	compiler.Compile(`num_media > 1`)
	if compiler.Size() != 2 {
		t.Errorf("expected cache size 2 but got %d", compiler.Size())
	}

	compiler.Clear()
	if compiler.Size() != 0 {
		t.Errorf("expected cache size 0 after clear but got %d", compiler.Size())
	}
}

func TestWorkerPoolStop(t *testing.T) {
	pool := NewWorkerPool(2)
	done := make(chan struct{}, 3)
	for range 3 {
		if err := pool.Submit(func() { done <- struct{}{} }); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := pool.Stop(t.Context()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(done) != 3 {
		t.Errorf("expected 3 completed tasks, got %d", len(done))
	}
	if err := pool.Submit(func() {}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
	if err := pool.Stop(t.Context()); err != nil {
		t.Errorf("second stop: %v", err)
	}
}
