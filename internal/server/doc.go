// Package server exposes the HTTP API backing the viewer page: a
// same-origin video proxy, the transcription endpoint, session status, and
// the collected caption history.
package server
