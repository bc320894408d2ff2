// Package config provides configuration structures and utilities for
// tagquorum. It defines the agreement thresholds, input and output options,
// and the YAML configuration file with per-task overrides.
package config
