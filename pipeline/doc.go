// Package pipeline defines ML pipelines as graphs of ops and runs them
// locally.
//
// An op wraps a function taking keyword arguments. A pipeline is declared by
// a definition function that adds ops to a Builder and orders them with
// After. Registering the definition with an App compiles it into a
// workflow document, checks the resulting graph, and freezes it.
//
//	bc := pipeline.NewBuildContext()
//	bc.ConfigureOp(func(op *pipeline.Op) *pipeline.Op {
//	    return op.WithEnv("LAKE_BUCKET", "grwdt-dev-lake")
//	})
//	app := pipeline.NewApp("titanic", bc)
//
//	p, err := app.Register(func(b *pipeline.Builder) error {
//	    training := b.Op(CreateTraining)
//	    test := b.Op(CreateTest)
//	    b.Op(TrainModel).After(training, test)
//	    return nil
//	}, pipeline.WithPipelineName("titanic"), pipeline.WithCron("0 0 * * *"))
//
//	log, err := p.RunAll(ctx, pipeline.Kwargs{"sample": "0.1"})
//
// Every task runs at most once per RunLog and only after all of its
// dependencies completed. Op configurators apply, in registration order, to
// ops added after they were configured.
package pipeline
