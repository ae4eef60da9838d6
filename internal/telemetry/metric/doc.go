// Package metric holds the client side Prometheus metrics of cepip-cli.
//
// Nothing is served over HTTP: the CLI is short lived, so the registry is
// dumped in text exposition format by the `metrics` command.
package metric
