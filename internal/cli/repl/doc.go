// Package repl implements the interactive console of cepip-cli.
//
// The console is organised in sections (dashboard, empresas, personas, ...)
// plus the login view. ViewController tracks the current section and is the
// session gateway's Navigator: a rejected token moves the console to the
// login view, where only login-related commands are accepted.
//
//   - view.go: sections and the ViewController
//   - repl.go: read-eval loop, built-in commands, argument splitting
//   - completer.go: completion candidates
//   - history.go: persistent command history
package repl
