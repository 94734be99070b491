// Package main hosts the substr CLI entrypoint and command graph.
//
// The Cobra-based command tree wires terminal invocations into the internal
// packages: serving the viewer HTTP API, one-shot identifier resolution,
// live caption watching, search history maintenance, and configuration
// scaffolding. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
package main
