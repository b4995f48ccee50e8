package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps file and environment read failures.
	ErrLoadConfig = errors.New("load config failed")
	// ErrUnknownPolicy marks a vocabulary, ranking or zero spend value outside its enum.
	ErrUnknownPolicy = errors.New("unknown policy")
)
