// Package auditsink groups durable destinations for identity audit events.
//
// Each sub-package implements goIdentity.AuditSink for one store:
// redisstream (Redis streams via go-redis), sqlite (modernc.org/sqlite),
// postgres (pgx) and logsink (zerolog). Sinks are called from the manager's
// audit dispatcher goroutine; a returned error is counted and logged there and
// never reaches the operation that produced the event.
package auditsink
