// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package supervisor runs the follow server's long-lived services under a
// suture v4 tree.
//
//	follow
//	├── tracking-layer
//	│   ├── TrackerService (tracker.Manager)
//	│   └── RunnerService (websocket-hub)
//	└── api-layer
//	    └── HTTPServerService
//
// Failed services restart with suture's backoff. Events go to slog through
// sutureslog, which main bridges onto zerolog.
//
//	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddTrackingService(services.NewTrackerService(manager))
//	tree.AddTrackingService(services.NewWebSocketHubService(hub))
//	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))
//	err := tree.Serve(ctx)
package supervisor
