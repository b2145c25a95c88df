// Package attributes evaluates user-supplied expressions into span
// attributes.
//
// Expressions use the expr language and see the producer session: the
// process environment (env), the provider kind, the region name, the
// frame size and the per-eye calibration quality.
package attributes
