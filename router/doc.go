// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the teacher's API.

# Route Registration

	mux := router.NewRouter(srv, store, registry, cfg)

# Endpoints

	GET  /health                       liveness
	GET  /candidates                   current list
	POST /candidates        (admin)    add a candidate
	GET  /results                      tally and rendered text
	POST /results/publish   (admin)    broadcast RESULTS to students
	GET  /votes             (admin)    raw ledger rows
	GET  /sessions                     connected students
	GET  /metrics                      Prometheus exposition

Admin routes require the X-Admin-Key header to match cfg.AdminKey.
*/
package router
