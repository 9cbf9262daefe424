// Package jobs contains background processors that run alongside the HTTP
// server. Jobs are started after the services are wired and stopped during
// graceful shutdown.
package jobs
