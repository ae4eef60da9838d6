// Package confloader layers configuration sources with koanf and watches
// the configuration file with fsnotify.
//
// Later layers win:
//
//  1. defaults, passed to LoadMap before Load
//  2. the YAML file
//  3. CEPIP_* environment variables
//  4. flags, passed to LoadMap after Load
package confloader
