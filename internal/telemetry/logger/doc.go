// Package logger is the structured logger of cepip-cli, built on log/slog.
//
// All loggers share one level so a config reload can change verbosity in
// place. Attributes that look like credentials are masked before they are
// written. Output goes to stderr unless configured otherwise, keeping
// stdout for command results.
package logger
