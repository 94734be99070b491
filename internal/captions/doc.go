// Package captions holds the subtitle timeline model and the pipeline that
// turns captured audio segments into translated, absolute-time caption
// entries. Capture feeds the pipeline, the pipeline feeds the per-URL cache,
// and playback reads the single active caption back out.
package captions
