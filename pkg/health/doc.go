/*
Package health provides reusable TCP/HTTP/exec health checkers used by the
service supervisor to probe the worker runtime sidecar during startup
(§4.8: "TCP connect + minimal GET with up to 10 retries at 500ms").

Checker is the common interface; HTTPChecker and TCPChecker cover the two
probe styles the supervisor needs, and ExecChecker is kept for sidecars
that expose a CLI self-check instead of a network endpoint. Status tracks
consecutive failures/successes with simple hysteresis, for callers that
want to poll a checker on an interval rather than drive retries by hand.
*/
package health
