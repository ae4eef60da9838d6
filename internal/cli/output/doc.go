// Package output renders command results as tables, JSON or YAML, and
// draws spinners and progress bars on stderr for long operations.
package output
