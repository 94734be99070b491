// Package history persists resolved searches in a local SQLite database so
// past identifiers can be replayed without hitting relays again.
package history
