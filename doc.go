// Package sdk provides a Go client for legacy SOAP content repositories.
//
// Older repository servers expose their content graph through a SOAP API
// whose responses vary wildly in shape between server generations and even
// between operations on the same server. This SDK normalizes that surface:
// callers work with uniform node records, canonical references, and ordinary
// Go errors, regardless of which envelope variant the server produced.
//
// # Core Concepts
//
// The SDK is organized around several key concepts:
//
//   - References: canonical "scheme://address/id" node identifiers (package noderef)
//   - Records: uniform node views built from any known response shape (package node)
//   - Path resolution: reconstruction of absolute paths by walking parent chains (package resolve)
//   - Transport: the SOAP wire layer, including session tickets (packages transport, session)
//   - Discovery: optional etcd-based repository endpoint registry (package registry)
//
// # Getting Started
//
// Create a client and authenticate:
//
//	import "github.com/repobridge/sdk"
//
//	client, err := sdk.NewClient(
//		sdk.WithConfig("/etc/repobridge.yaml"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Authenticate(ctx, "admin", "secret"); err != nil {
//		log.Fatal(err)
//	}
//
// Then navigate:
//
//	ref, _ := sdk.ParseReference("workspace://SpacesStore/abc-123")
//	listing, err := client.ListChildren(ctx, ref)
//	for _, rec := range listing.Records {
//		fmt.Println(rec.Name, rec.Ref)
//	}
//
// # Error Handling
//
// The SDK uses sentinel errors and structured error types for robust error
// handling:
//
//	if err != nil {
//		if errors.Is(err, sdk.ErrRecursionLimit) {
//			// The node's ancestor chain was circular or too deep
//		}
//		// Handle other errors
//	}
//
// # Observability
//
// The SDK integrates OpenTelemetry for distributed tracing and metrics:
//
//	client, err := sdk.NewClient(
//		sdk.WithTracer(otel.Tracer("repobridge")),
//		sdk.WithMeter(otel.Meter("repobridge")),
//	)
//
// # Thread Safety
//
// All SDK client methods are safe for concurrent use.
package sdk
