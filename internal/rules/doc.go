// Package rules implements the argument validators referenced by the
// grammar table.
//
// Every rule is a pure function of its input: a raw caption token goes in,
// a typed ir.Value or an *ir.Problem comes out. Rules never fail fast on
// behalf of the caller; the caption parser collects every problem so a
// single reply can list them all.
package rules
