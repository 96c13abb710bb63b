// Package bootstrap runs a mediaflow process: it validates the typed
// config, starts registered components in order, runs configure and
// lifecycle hooks, keeps background workers alive in an errgroup and shuts
// everything down on SIGINT/SIGTERM or when a worker fails.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(redisComponent)
//	app.Go("sweeper", eng.Run)
//	return app.Run(ctx)
package bootstrap
