// Package config loads and validates bridge configuration from YAML.
//
// Configuration is consumed, not owned, by the resilience core: the
// monitor and rate limiter receive plain scalar knobs and hold no
// reference to this package's types.
package config
