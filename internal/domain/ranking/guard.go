package ranking

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/okian/mmo/internal/domain/model"
)

// Guard is a CEL predicate over a recommended group, e.g.
//
//	group.roi > 0.1 && group.spend >= 1000
//
// The variable group exposes ad_group, marketplace, sales, spend and roi
// (null when undefined). A nil Guard allows everything.
type Guard struct {
	expr string
	prg  cel.Program
}

// NewGuard compiles expr. An empty expression yields a nil Guard.
func NewGuard(expr string) (*Guard, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(cel.Variable("group", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGuard, err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGuard, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression returns %s, want bool", ErrInvalidGuard, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGuard, err)
	}
	return &Guard{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (g *Guard) String() string {
	if g == nil {
		return ""
	}
	return g.expr
}

// Allow evaluates the guard for grp.
func (g *Guard) Allow(grp model.Group) (bool, error) {
	if g == nil {
		return true, nil
	}
	var roi interface{}
	if grp.ROI != nil {
		roi = *grp.ROI
	}
	out, _, err := g.prg.Eval(map[string]interface{}{
		"group": map[string]interface{}{
			"ad_group":    grp.AdGroup,
			"marketplace": grp.Marketplace,
			"sales":       grp.Sales,
			"spend":       grp.Spend,
			"roi":         roi,
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrGuardEval, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("%w: result is %T, want bool", ErrGuardEval, out.Value())
	}
	return ok, nil
}

// Filter keeps the groups the guard allows.
func (g *Guard) Filter(groups []model.Group) ([]model.Group, error) {
	if g == nil {
		return groups, nil
	}
	out := make([]model.Group, 0, len(groups))
	for _, grp := range groups {
		ok, err := g.Allow(grp)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, grp)
		}
	}
	return out, nil
}
