// Package prometheus renders manager counters and the backend latency
// histogram in Prometheus text exposition format.
//
// Counter names are prefixed identity_ and end in _total; the single histogram
// is identity_backend_latency_seconds. Audit dispatcher drops and sink
// failures are exported next to them, together with gauges for the published
// session and a one-hot identity_enrollment_state{state="..."} series.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate manager state.
package prometheus
