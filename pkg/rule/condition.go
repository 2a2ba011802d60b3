package rule

import (
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/navbytes/requestkit/pkg/variable"
)

// Sentinel errors for condition evaluation
var (
	ErrInvalidCondition = errors.New("invalid condition expression")
	ErrNotBoolean       = errors.New("condition did not evaluate to a boolean")
)

// ConditionEvaluator compiles and evaluates rule condition expressions
// against request metadata. Compiled programs are cached per expression
// string since the same rule set is evaluated for every intercepted request.
// Safe for concurrent use.
type ConditionEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewConditionEvaluator creates an evaluator with an empty program cache.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{
		programs: make(map[string]*vm.Program),
	}
}

// conditionEnv exposes the request fields a condition may reference.
func conditionEnv(req *variable.RequestContext) map[string]interface{} {
	env := map[string]interface{}{
		"url":      "",
		"method":   "",
		"domain":   "",
		"path":     "",
		"protocol": "",
		"query":    map[string]string{},
		"headers":  map[string]string{},
	}
	if req != nil {
		env["url"] = req.URL
		env["method"] = req.Method
		env["domain"] = req.Domain
		env["path"] = req.Path
		env["protocol"] = req.Protocol
		if req.Query != nil {
			env["query"] = req.Query
		}
		if req.Headers != nil {
			env["headers"] = req.Headers
		}
	}
	return env
}

// EvaluateBool evaluates a condition expression and returns its boolean
// result. Compilation failures and non-boolean results are reported as
// wrapped sentinel errors.
func (e *ConditionEvaluator) EvaluateBool(condition string, req *variable.RequestContext) (bool, error) {
	program, err := e.compile(condition)
	if err != nil {
		return false, err
	}

	result, err := vm.Run(program, conditionEnv(req))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, result)
	}
	return b, nil
}

// Validate checks that a condition compiles, for authoring-time feedback.
func (e *ConditionEvaluator) Validate(condition string) error {
	_, err := e.compile(condition)
	return err
}

func (e *ConditionEvaluator) compile(condition string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[condition]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(condition,
		expr.Env(conditionEnv(nil)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	e.mu.Lock()
	e.programs[condition] = program
	e.mu.Unlock()

	return program, nil
}
