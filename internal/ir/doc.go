// Package ir provides the shared data model for polybot.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. The grammar, the caption parser,
// the session cache and the pixel kernels exchange these types and nothing
// else.
//
// Key design constraints:
//   - Validation problems are values (Problem), never Go errors
//   - Argument values are a sealed set (Int, Float, Text, RGB)
//   - EffectKind is the only dispatch key from a parsed command to a kernel
//   - All JSON tags use snake_case
package ir
