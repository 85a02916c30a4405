// Package concord contains a Discord library with a gateway session engine
// and a rate-limited REST dispatcher.
//
// Most users should import the session package, which manages the gateway
// connection, the REST client and the local state mirror at once. The api
// and gateway packages can be used on their own for lower-level control.
package concord

// Version is the library version, used in the REST User-Agent and the
// gateway Identify properties.
const Version = "0.3.1"
