package routing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/routepath"
)

// Evaluator compiles and caches CEL route predicates.
//
// Expressions see these variables:
//
//	path      string        "/users/42"
//	query     string        "tab=2"   (without "?")
//	fragment  string        "top"     (without "#")
//	segments  list(string)  ["users", "42"] (percent-decoded)
//	has_state bool
//	state     dyn           the state marshalled through JSON
type Evaluator struct {
	env    *cel.Env
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvaluator creates an evaluator. A nil logger means slog.Default().
func NewEvaluator(logger *slog.Logger) (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("path", cel.StringType),
		cel.Variable("query", cel.StringType),
		cel.Variable("fragment", cel.StringType),
		cel.Variable("segments", cel.ListType(cel.StringType)),
		cel.Variable("has_state", cel.BoolType),
		cel.Variable("state", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("routing: create CEL environment: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		env:    env,
		logger: logger.With("component", "routing"),
		cache:  make(map[string]cel.Program),
	}, nil
}

var defaultEvaluator = sync.OnceValues(func() (*Evaluator, error) {
	return NewEvaluator(nil)
})

// Expr compiles expr into a predicate using a shared evaluator.
func Expr[T any](expr string) (Predicate[T], error) {
	ev, err := defaultEvaluator()
	if err != nil {
		return nil, err
	}
	return ExprWith[T](ev, expr)
}

// ExprWith compiles expr into a predicate using ev. Compilation errors are
// returned; evaluation errors and non-boolean results count as no match and
// are logged at warn.
func ExprWith[T any](ev *Evaluator, expr string) (Predicate[T], error) {
	program, err := ev.program(expr)
	if err != nil {
		return nil, err
	}
	return func(r route.Route[T]) bool {
		out, _, err := program.Eval(activation(r))
		if err != nil {
			ev.logger.Warn("route expression evaluation failed", "expr", expr, "path", r.Path, "error", err)
			return false
		}
		b, ok := out.(types.Bool)
		if !ok {
			ev.logger.Warn("route expression did not return a boolean", "expr", expr, "path", r.Path, "type", out.Type())
			return false
		}
		return bool(b)
	}, nil
}

// Validate compiles expr without keeping a predicate.
func (ev *Evaluator) Validate(expr string) error {
	_, err := ev.program(expr)
	return err
}

// program returns the cached program for expr, compiling it on first use.
func (ev *Evaluator) program(expr string) (cel.Program, error) {
	ev.mu.RLock()
	p, ok := ev.cache[expr]
	ev.mu.RUnlock()
	if ok {
		return p, nil
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if p, ok := ev.cache[expr]; ok {
		return p, nil
	}

	ast, issues := ev.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("routing: compile %q: %w", expr, issues.Err())
	}
	if t := ast.OutputType(); t != nil {
		if name := t.String(); name != "bool" && name != "dyn" {
			return nil, fmt.Errorf("routing: expression %q has type %s, want bool", expr, name)
		}
	}
	p, err := ev.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("routing: program %q: %w", expr, err)
	}
	ev.cache[expr] = p
	return p, nil
}

func activation[T any](r route.Route[T]) map[string]any {
	path, query, fragment := r.Split()

	var state any
	if s, ok := r.State(); ok {
		if data, err := json.Marshal(s); err == nil {
			_ = json.Unmarshal(data, &state)
		}
	}

	return map[string]any{
		"path":      path,
		"query":     strings.TrimPrefix(query, "?"),
		"fragment":  strings.TrimPrefix(fragment, "#"),
		"segments":  routepath.Segments(path),
		"has_state": r.HasState(),
		"state":     state,
	}
}
