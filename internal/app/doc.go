// Package app wires the fiidy components together and owns their
// lifecycle.
//
// Build assembles telemetry, the dividend extractor, the optional Redis
// record cache and a Runner from the configuration. The Runner executes
// one reconciliation at a time: every run opens its own ledger handle and
// closes it on the way out, whether the run succeeds, aborts for lack of
// data or fails.
//
// Application adds the HTTP surface and the periodic scheduler used by
// cmd/fiidy-server. cmd/fiidy calls Runner.Run directly.
package app
