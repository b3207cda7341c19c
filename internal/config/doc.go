// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file, when present, is loaded into the environment before expansion.
// See configs/fetcher.example.yaml for the full schema.
package config
