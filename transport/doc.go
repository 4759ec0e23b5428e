// Package transport carries the SDK's remote calls to a legacy SOAP
// content repository.
//
// The Transport interface is the contract the rest of the SDK relies on:
// one authentication call that yields an opaque ticket, a single-node
// lookup, a direct child listing, and a path-based query. Implementations
// return raw, shape-variable envelopes; interpreting those shapes is the
// job of the node package, never of the transport.
//
// SOAPClient is the production implementation, speaking SOAP 1.1 over HTTP
// against the repository's AuthenticationService and RepositoryService.
// Response XML is decoded into generic nested maps rather than typed
// structs, because the element layout differs between server generations
// and the normalization layer is built to cope with exactly that.
package transport
