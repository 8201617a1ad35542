package rules

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// celCostLimit bounds a preview program the same way rule programs were bounded
const celCostLimit = 1000000

// CELPreview is a rule rendered as a CEL expression over the namespace
// variable f. The expression is fully parenthesised to show the strict
// left-to-right fold.
type CELPreview struct {
	Expression string
	program    cel.Program
}

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

// previewEnv declares f plus the helpers that carry the fold's semantics:
// factor (0 on miss), safe_div (0 on division by zero) and percent_of.
func previewEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("f", cel.MapType(cel.StringType, cel.DoubleType)),
			cel.Function("factor",
				cel.Overload("factor_map_string_double",
					[]*cel.Type{cel.MapType(cel.StringType, cel.DoubleType), cel.StringType},
					cel.DoubleType,
					cel.BinaryBinding(lookupFactor),
				),
			),
			cel.Function("safe_div",
				cel.Overload("safe_div_double_double",
					[]*cel.Type{cel.DoubleType, cel.DoubleType},
					cel.DoubleType,
					cel.BinaryBinding(func(l, r ref.Val) ref.Val {
						lv, rv, err := doubles(l, r)
						if err != nil {
							return types.NewErr("safe_div: %v", err)
						}
						if rv == 0 {
							return types.Double(0)
						}
						return types.Double(lv / rv)
					}),
				),
			),
			cel.Function("percent_of",
				cel.Overload("percent_of_double_double",
					[]*cel.Type{cel.DoubleType, cel.DoubleType},
					cel.DoubleType,
					cel.BinaryBinding(func(l, r ref.Val) ref.Val {
						lv, rv, err := doubles(l, r)
						if err != nil {
							return types.NewErr("percent_of: %v", err)
						}
						return types.Double(lv * (rv / 100))
					}),
				),
			),
		)
		if celEnvErr != nil {
			celEnvErr = fmt.Errorf("failed to create CEL environment: %w", celEnvErr)
		}
	})
	return celEnv, celEnvErr
}

func lookupFactor(m, name ref.Val) ref.Val {
	mapper, ok := m.(traits.Mapper)
	if !ok {
		return types.NewErr("factor: expected a map, got %s", m.Type().TypeName())
	}
	v, found := mapper.Find(name)
	if !found {
		return types.Double(0)
	}
	return v
}

func doubles(l, r ref.Val) (float64, float64, error) {
	lv, ok := l.(types.Double)
	if !ok {
		return 0, 0, fmt.Errorf("left operand is %s, not double", l.Type().TypeName())
	}
	rv, ok := r.(types.Double)
	if !ok {
		return 0, 0, fmt.Errorf("right operand is %s, not double", r.Type().TypeName())
	}
	return float64(lv), float64(rv), nil
}

// RenderCEL renders rule's formula as a CEL expression without compiling it
func RenderCEL(rule PricingRule) string {
	if len(rule.Formula) == 0 {
		return "0.0"
	}

	var expr string
	for i, step := range rule.Formula {
		left := expr
		if i == 0 {
			left = celFactor(step.LeftOperand)
		}

		right := celFactor(step.RightOperand)
		if step.RightOperandType != OperandFactor {
			right = "double(" + strconv.Quote(step.RightOperand) + ")"
		}

		switch step.Operator {
		case OpAdd, OpSubtract, OpMultiply:
			expr = "(" + left + " " + string(step.Operator) + " " + right + ")"
		case OpDivide:
			expr = "safe_div(" + left + ", " + right + ")"
		case OpPercent:
			expr = "percent_of(" + left + ", " + right + ")"
		default:
			// unknown operators keep the running result
			if i == 0 {
				expr = "0.0"
			} else {
				expr = left
			}
		}
	}
	return expr
}

func celFactor(name string) string {
	return "factor(f, " + strconv.Quote(name) + ")"
}

// CompileCEL renders and compiles rule for preview
func CompileCEL(rule PricingRule) (*CELPreview, error) {
	env, err := previewEnv()
	if err != nil {
		return nil, err
	}

	expr := RenderCEL(rule)
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	return &CELPreview{Expression: expr, program: prog}, nil
}

// Evaluate runs the compiled preview against ns
func (p *CELPreview) Evaluate(ns Namespace) (float64, error) {
	out, _, err := p.program.Eval(map[string]any{"f": map[string]float64(ns)})
	if err != nil {
		return 0, fmt.Errorf("evaluation error: %w", err)
	}

	v, ok := out.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("expression produced %s, not double", out.Type().TypeName())
	}
	return v, nil
}
