// Package calendar provides the business layer for calendar objects.
//
// It sits between the HTTP endpoints and PostgreSQL and has no transport
// dependencies, so it can be driven by handlers, jobs or tests alike.
//
// # Model
//
// A [Calendar] is always resolved for a user: [Service.FindCalendar]
// returns the calendar together with the caller's [Permissions] (owners
// hold [PermAll], share recipients the granted subset). Objects carry an
// [ObjectType] of event, todo or journal; each endpoint is bound to one
// type for its lifetime.
//
// # Queries
//
// [Service] implements [CalendarFinder] and [ObjectFinder]:
//
//   - FindObjectsByType pages through objects of one type.
//   - FindObjectsByTypeInPeriod returns objects intersecting a half-open
//     [Period]; recurring objects match when any occurrence does.
//   - FindObjectByType fetches one object by URI.
//
// Permission checks are the caller's job for reads, so that transports can
// reject a request before any object query is issued.
//
// # Import
//
// [Service.Import] parses an iCalendar file and inserts its components.
// Each file produces an [ImportResult] with imported, error and duplicate
// counts; duplicates are components whose UID already exists and are
// counted as errors too. Imports are bounded by an [ImportLimiter] and
// recorded in the import history, which a cron job purges.
//
// # Errors
//
// Failures are [ErrNotFound], [ErrPermissionDenied], [ErrTooManyImports]
// or a [*BusinessError] with status and support code. [StatusOf] and
// [CodeOf] classify any error for transports.
package calendar
