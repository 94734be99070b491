// Package nostr implements the client-side slice of the Nostr protocol that
// substr needs: NIP-19 identifier decoding, the event payload shape, and a
// resolver that retrieves one event by id from an ordered list of relays.
package nostr
