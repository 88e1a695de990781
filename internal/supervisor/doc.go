// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

/*
Package supervisor runs the prediction server under a suture v4 tree.

	RootSupervisor ("cinescore")
	├── ServingSupervisor ("serving-layer")
	│   └── PredictorInitService (one-shot)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The predictor init service returns suture.ErrDoNotRestart whether or not
initialization succeeds, so it runs exactly once. The HTTP server is
restarted with backoff if it crashes and answers 503 on data endpoints
until the predictor is ready.

Supervisor events are logged through sutureslog, bridged to zerolog by
logging.NewSlogLogger.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddServingService(services.NewPredictorInitService(state, cfg.Server.InitTimeout, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
	return tree.Serve(ctx)
*/
package supervisor
