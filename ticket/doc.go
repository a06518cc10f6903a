// Package ticket implements the single-use service tickets exchanged during a
// redirect login.
//
// A ticket is an opaque "ST-" string bound to {principal, client, redirect URI,
// session}. [Store.Consume] reads and deletes it in one Lua script, so two
// concurrent validations of the same ticket race safely and exactly one wins. A
// client-id mismatch still consumes the ticket.
//
// On successful consumption the same script records a grant under a separate key.
// The grant lets the client application that redeemed the ticket query
// permissions, renew or end the backing session. A grant can never be consumed as
// a ticket again.
package ticket
