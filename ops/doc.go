// Package ops provides small net/http handlers for operating an executor.
//
// ops is designed to be mounted into your own routing tree. It does not make authn/authz
// decisions and does not start servers. The Path* constants are the routes Client expects;
// mounting elsewhere is fine when Client is not used.
//
// # Formats
//
// Handlers render text by default. The default can be configured with WithDefaultFormat, and
// can be overridden per request by URL query:
//   - ?format=text
//   - ?format=json
//
// Text output is line-based, tab-separated and greppable. JSON output is suitable for tooling.
//
// # What ops provides
//
//   - health: HealthzHandler (liveness), ReadyzHandler (executor accepts work)
//   - schedules: SchedulesSnapshotHandler, ScheduleCancelHandler (rt/executor integration)
//   - logging: LogLevelHandler (zap.AtomicLevel)
//   - Client: typed calls against the handlers mounted at the Path* routes
//
// # Security notes
//
// Snapshots expose schedule names and error messages. Mount these handlers behind your own
// authentication middleware, and restrict ScheduleCancelHandler with WithAllowNames or
// WithAllowPrefixes.
package ops
