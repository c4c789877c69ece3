/*
Package observability turns the lifecycle hooks of the conversation and
operator services into Prometheus metrics and structured log lines.

Hooks from several sources are combined with Chain, so metrics and audit
logging can observe the same turn.
*/
package observability
