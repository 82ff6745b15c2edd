// Package config provides configuration structures and utilities for socaudit.
// It defines collection limits, AI provider settings, output locations and
// the optional .socaudit YAML file that can override the defaults.
package config
