package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound     = goerr.New("configuration file not found")
	ErrInvalidConfig      = goerr.New("invalid configuration")
	ErrInvalidTier        = goerr.New("invalid confidence tier")
	ErrInvalidAggregation = goerr.New("invalid aggregation method")
	ErrEmptyRules         = goerr.New("confidence rules must not be empty")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	RuleIndexKey  = "rule_index"
)
