// Package config defines the packaging settings and helpers to load, validate
// and save them in YAML format.
//
// Every field has a default, so a missing settings file is not an error for
// the default lookup location.
package config
