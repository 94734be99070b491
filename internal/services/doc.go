// Package services defines the shared error taxonomy for substr subsystems.
//
// Every failure that crosses a component boundary is tagged with one of the
// exported sentinel errors so callers can classify it with errors.Is without
// depending on the failing package. User-facing presentation lives in the CLI
// and HTTP layers; this package only supplies the markers and wrapping helper.
package services
