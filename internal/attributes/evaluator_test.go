package attributes

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mrzor/gazeshm/internal/config"
	"github.com/mrzor/gazeshm/internal/device"
)

func testSession() *Session {
	return &Session{
		Environ:     map[string]string{"FOO": "bar", "BAZ": "qux", "NUM": "abc"},
		Provider:    "sim",
		Region:      "VarjoApp",
		FrameSize:   272,
		Calibration: device.CalibrationQuality{Left: device.QualityHigh, Right: device.QualityLow},
	}
}

func TestEvaluator_Simple(t *testing.T) {
	evaluator, err := NewEvaluator([]config.CustomAttribute{
		{Name: "test.attr", Expression: `env["FOO"]`},
		{Name: "source", Expression: `provider + "@" + region`},
		{Name: "size", Expression: `frame_size`},
		{Name: "calibrated", Expression: `calibration.left == "high" && calibration.right == "high"`},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("test.attr", "bar"),
		attribute.String("source", "sim@VarjoApp"),
		attribute.String("size", "272"),
		attribute.String("calibrated", "false"),
	}, evaluator.Evaluate(testSession()))
}

func TestEvaluator_MapExpansion(t *testing.T) {
	evaluator, err := NewEvaluator([]config.CustomAttribute{
		{Name: "expanded", Expression: `env`},
		{Name: "cal", Expression: `calibration`},
	}, nil)
	require.NoError(t, err)

	s := testSession()
	s.Environ = map[string]string{"FOO": "bar", "weird-key.x": "y"}

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("expanded.FOO", "bar"),
		attribute.String("expanded.weird_key_x", "y"),
		attribute.String("cal.left", "high"),
		attribute.String("cal.right", "low"),
	}, evaluator.Evaluate(s))
}

func TestSanitizeAttributeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", "simple"},
		{"with-dash", "with_dash"},
		{"with.dot", "with_dot"},
		{"with space", "with_space"},
		{"special!@#$%", "special_____"},
		{"mixed-123.test", "mixed_123_test"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeAttributeName(tt.input))
		})
	}
}

func TestEvaluator_CompileErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax", `invalid syntax here`},
		{"unknown function", `invalid_function()`},
		{"unknown variable", `cmdline`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvaluator([]config.CustomAttribute{{Name: "bad", Expression: tt.expr}}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `"bad"`)
		})
	}
}

func TestEvaluator_RuntimeErrorIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	evaluator, err := NewEvaluator([]config.CustomAttribute{
		{Name: "broken", Expression: `int(env["NUM"])`},
		{Name: "good", Expression: `env["FOO"]`},
	}, logger)
	require.NoError(t, err)

	assert.Equal(t, []attribute.KeyValue{attribute.String("good", "bar")}, evaluator.Evaluate(testSession()))
	assert.Contains(t, logs.String(), "attribute=broken")
}

func TestEvaluator_MissingKey(t *testing.T) {
	evaluator, err := NewEvaluator([]config.CustomAttribute{
		{Name: "missing", Expression: `env["MISSING"]`},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []attribute.KeyValue{attribute.String("missing", "")}, evaluator.Evaluate(testSession()))
}

func TestEvaluator_Empty(t *testing.T) {
	evaluator, err := NewEvaluator(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, evaluator.Evaluate(testSession()))

	evaluator, err = NewEvaluator([]config.CustomAttribute{{Name: "x", Expression: `provider`}}, nil)
	require.NoError(t, err)
	assert.Nil(t, evaluator.Evaluate(nil))
}
