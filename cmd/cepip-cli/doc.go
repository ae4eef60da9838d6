// Package main provides the entry point for cepip-cli.
//
// cepip-cli is the administrative console of CEPIP. It manages empresas,
// personas, parcelas and consorcistas, reports and settings on the CEPIP
// backend, either one command at a time or from the interactive console.
//
// Usage:
//
//	cepip-cli auth login --token TOKEN
//	cepip-cli empresa list --page 2
//	cepip-cli -o json persona get 12
//	cepip-cli console
//
// Exit status is 0 on success, 2 when a login is required and 1 for any
// other failure.
package main
