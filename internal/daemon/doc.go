// Package daemon wires configuration, the worker pool, the executor and the operational
// HTTP server into a runnable Service.
//
// Jobs come from config.JobConfig entries: BuildWork turns each into named work, BuildTrigger
// into its trigger, and RegisterJobs schedules them. The operational server exposes the
// handlers of package ops behind the middlewares of package httpx.
//
// Shutdown order is: operational server, executor, worker pool. All three share one
// deadline taken from config.Config.ShutdownTimeout.
package daemon
