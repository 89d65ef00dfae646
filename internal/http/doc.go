// Package http provides the HTTP surface of the booking API.
//
// The router exposes the following endpoints:
//   - GET /api/health: public liveness probe, returns {"status":"ok"}.
//   - POST /api/auth/login: issues a session token. Body: {"username","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - POST /api/auth/logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 and clears the cookie.
//   - GET /api/events, GET /api/events/{id}: public catalog reads, each entry
//     carrying live occupancy stats. Listing accepts ?type= and ?department=.
//   - GET /api/events/staff: the authenticated staff member's own events.
//   - POST /api/events, PUT /api/events/{id}, DELETE /api/events/{id}: staff-only
//     catalog mutations; update and delete require ownership, delete cascades to
//     the event's bookings.
//   - GET /api/events/{id}/export: staff-only CSV attendee export for own events.
//   - POST /api/bookings: books a seat. Body: {"event_id","wants_hold"}. The
//     response status field reports whether the request was confirmed, held or
//     waitlisted.
//   - GET /api/bookings/user: the caller's bookings with event details.
//   - POST /api/bookings/{id}/confirm: turns a live hold into a confirmed seat.
//   - POST /api/bookings/{id}/reschedule: moves the booking to another event.
//     Body: {"event_id"}.
//   - GET /api/bookings/{id}/position: the booking's current waitlist rank.
//   - DELETE /api/bookings/{id}: cancels the booking.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
