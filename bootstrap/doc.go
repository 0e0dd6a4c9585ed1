// Package bootstrap wires a hypermodel application together.
//
// An App owns the configuration, the logger, the component registry, the
// pipeline registry, the inference host and the deployer, and exposes them
// through the command tree of package cli:
//
//	var cfg config.Config
//	_ = config.LoadConfig("titanic", &cfg)
//	app, err := bootstrap.NewApp(&cfg)
//	app.ConfigureOp(withLakeBucket)
//	app.Register(titanicPipeline, pipeline.WithCron("0 0 * * *"))
//	os.Exit(app.Main(ctx, os.Args[1:]))
//
// Commands that do work run inside RunTask, which starts the registered
// components, runs the task and stops them again. The inference commands
// run inside Serve, which also starts the inference server and blocks until
// a shutdown signal.
package bootstrap
