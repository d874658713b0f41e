// Package query defines the closed set of request variants accepted from
// external callers and the pure validator that turns a raw request into a
// canonical, bounded query.
//
// Requests arrive as untrusted JSON from a planning agent. Each tool name
// maps to exactly one tagged request type; Decode refuses anything outside
// that set. Validation is a pure function of (request, registry) with no
// side effects: it either returns a canonical query whose bounds are
// guaranteed (start <= end, limit within [1, MaxLimit], fields and
// operators allow-listed) or a typed validation error. No read is ever
// issued for a request that fails validation.
package query
