// Package pipeline provides lint rules for pipeline definitions.
//
// Rules in this package:
//   - PL01: Conditional block without ELSE
//   - PL02: Source declared but never loaded
//   - PL03: Table produced by more than one statement
//   - PL04: Variable used without a default
package pipeline
