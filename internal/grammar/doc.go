// Package grammar compiles the effect grammar table.
//
// The table is written in CUE (grammar.cue, embedded at build time) and
// compiled through the CUE Go API. Compilation produces plain EffectDef
// records, Validate checks them without failing fast, and Build turns them
// into ir.EffectRule values backed by the validators in package rules.
//
//	table, err := grammar.Load(src, "grammar.cue")
//	rule, ok := table.Lookup("blur")
package grammar
