// Package http implements the HTTP handlers of the fiidy server: health
// probes, triggering a reconciliation run and reading back the last one.
// Handlers stay thin. They decode and validate requests, call a service
// interface and render JSON or RFC 7807 problem documents through
// go-chi/render.
package http
