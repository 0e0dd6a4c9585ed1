// Package cli builds the command tree of a hypermodel application and maps
// errors onto process exit codes.
//
//	<app> pipelines <pipeline> <op> [key=value...]
//	<app> pipelines <pipeline> run-all [key=value...]
//	<app> pipelines <pipeline> deploy-dev|deploy-prod -h host -c client-id -n namespace
//	<app> pipelines <pipeline> compile [-o file]
//	<app> inference start-dev|start-prod
//	<app> version
//
// Every failure is returned as an *ExitError with code 1. Its message carries
// the error code when the failure is an *errors.AppError.
package cli
