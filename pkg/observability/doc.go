/*
Package observability provides tools for monitoring a canopy machine.

It includes Prometheus metrics fed by lifecycle hooks, transition listeners and
the error reporter, plus structured logging hooks. Several hook sets can be
combined with Combine before being handed to canopy.WithLifecycleHooks.
*/
package observability
