// Package session ties resolution, capture, and the caption pipeline into
// one viewer session: search an identifier, play and pause the media, and
// read back the caption active at any playback position.
package session
