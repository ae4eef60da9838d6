// Package config defines the cepip-cli configuration (~/.cepip/cli.yaml).
//
// Values are resolved in this order, later sources winning:
//
//   - built-in defaults (Default)
//   - the YAML file
//   - CEPIP_* environment variables (CEPIP_STATE__ENGINE sets state.engine)
//   - command-line flags, applied by the command package
//
// Get and Set address fields by their dotted key and back the
// "config get" and "config set" commands.
package config
