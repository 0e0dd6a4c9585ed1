// Package logger provides structured logging for hypermodel applications
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline")
//	log.Info("task completed", logger.Fields("task", "train-model"))
package logger
