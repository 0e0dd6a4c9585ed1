// Package config loads hypermodel application configuration.
//
// It uses Viper to read a YAML file, then a .env file (godotenv), then the
// process environment, each layer overriding the previous one. An in-memory
// mapping can be loaded with LoadMap. Keys absent from every layer fall back
// to the defaults applied by Config.ApplyDefaults.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.LoadConfig("titanic", &cfg); err != nil { ... }
//
// Environment variables map onto nested keys by underscore,
// e.g. DEPLOY_NAMESPACE sets deploy.namespace.
package config
