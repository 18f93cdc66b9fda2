// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - GET /healthz: storage reachability probe, 204 when healthy.
//   - POST /v1/holders: registers a holder or refreshes an existing one.
//     Body: {"holder_id","display_name","location"}.
//   - POST /v1/holders/{id}/rules-acceptance: records lending rules
//     acceptance. Accepting twice is a no-op.
//   - GET /v1/holders/{id}/reservation: the holder's active reservation, or
//     404 when they hold nothing.
//   - POST /v1/copies, GET /v1/copies?location=L: catalog management. Adding
//     a copy makes it available immediately.
//   - GET /v1/copies/holder?title=T&location=L: who currently holds the
//     title, one entry per reserved copy.
//   - POST /v1/reservations: reserves one available copy. Conflicts return
//     error codes ALREADY_HOLDING and NO_COPY_AVAILABLE.
//   - POST /v1/reservations/{id}/return: completes the reservation and
//     offers the freed copy to the oldest waitlisted holder.
//   - POST /v1/reservations/{id}/extension: the one-shot extension; a second
//     call returns ALREADY_EXTENDED.
//   - PUT /v1/waitlist, DELETE /v1/waitlist: waitlist membership keyed by
//     {"holder_id","title","location"}. Both are idempotent.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
