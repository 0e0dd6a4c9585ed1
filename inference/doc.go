// Package inference hosts trained models behind a gin HTTP server.
//
// Models are registered by name with a loader and loaded lazily on first
// use. Callbacks registered with OnInit run once, before the server binds
// its port, and typically register models and routes:
//
//	app := inference.NewApp("titanic", inference.WithConfig(cfg))
//	app.OnInit(func(ctx context.Context, a *inference.App) error {
//	    a.Router().POST("/predict", predictHandler)
//	    return a.RegisterModel("xgb", loadXGB)
//	})
//	err := app.Serve(ctx, inference.ModeDev)
//
// ModeDev listens on the loopback interface only; ModeProd listens on all
// interfaces. Both use the configured port (8000 by default). Every app
// serves GET /health and GET /ready.
package inference
