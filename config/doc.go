// Package config loads service configuration with viper.
//
// LoadConfig looks for cmd/<service>/config.yml, applies an optional .env
// file through godotenv and then lets environment variables override any
// key (ENGINE_SWEEP_INTERVAL overrides engine.sweep_interval).
package config
