package attributes

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mrzor/gazeshm/internal/config"
	"github.com/mrzor/gazeshm/internal/device"
)

// Session describes the running producer to attribute expressions.
type Session struct {
	Environ     map[string]string
	Provider    string
	Region      string
	FrameSize   int
	Calibration device.CalibrationQuality
}

func (s *Session) exprEnv() map[string]interface{} {
	return map[string]interface{}{
		"env":        s.Environ,
		"provider":   s.Provider,
		"region":     s.Region,
		"frame_size": s.FrameSize,
		"calibration": map[string]string{
			"left":  s.Calibration.Left.String(),
			"right": s.Calibration.Right.String(),
		},
	}
}

// Evaluator handles compilation and evaluation of custom attribute expressions.
type Evaluator struct {
	customAttrs   []config.CustomAttribute
	compiledExprs []*vm.Program
	logger        *slog.Logger
}

// NewEvaluator pre-compiles every custom attribute expression.
func NewEvaluator(customAttrs []config.CustomAttribute, logger *slog.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	typeEnv := (&Session{Environ: map[string]string{}}).exprEnv()

	compiledExprs := make([]*vm.Program, len(customAttrs))
	for i, attr := range customAttrs {
		program, err := expr.Compile(attr.Expression, expr.Env(typeEnv))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for attribute %q: %w", attr.Name, err)
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customAttrs:   customAttrs,
		compiledExprs: compiledExprs,
		logger:        logger,
	}, nil
}

// Evaluate runs every expression against s. An expression that fails is
// logged and skipped. Map results expand into one attribute per key,
// named <attribute>.<sanitized key>.
func (e *Evaluator) Evaluate(s *Session) []attribute.KeyValue {
	if len(e.customAttrs) == 0 || s == nil {
		return nil
	}

	env := s.exprEnv()
	var attrs []attribute.KeyValue
	for i, customAttr := range e.customAttrs {
		output, err := expr.Run(e.compiledExprs[i], env)
		if err != nil {
			e.logger.Warn("attribute expression failed", "attribute", customAttr.Name, "error", err)
			continue
		}

		outputValue := reflect.ValueOf(output)
		if outputValue.Kind() != reflect.Map {
			attrs = append(attrs, attribute.String(customAttr.Name, fmt.Sprint(output)))
			continue
		}

		keys := outputValue.MapKeys()
		sort.Slice(keys, func(a, b int) bool {
			return fmt.Sprint(keys[a].Interface()) < fmt.Sprint(keys[b].Interface())
		})
		for _, key := range keys {
			attrName := customAttr.Name + "." + sanitizeAttributeName(fmt.Sprint(key.Interface()))
			attrs = append(attrs, attribute.String(attrName, fmt.Sprint(outputValue.MapIndex(key).Interface())))
		}
	}

	return attrs
}

// sanitizeAttributeName replaces non-alphanumeric characters with underscores.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
