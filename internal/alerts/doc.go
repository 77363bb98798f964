// Package alerts emails staff when a closing or service notice is saved.
//
// Engine.AlertSaved builds an idempotency key from the notice type, the
// affected location slugs and the notice window. A save whose key matches the
// stored email tracker sends nothing. Closings additionally look for calendar
// events inside the window and widen the recipients to the supervisors of the
// affected locations and the authors of those events.
package alerts
