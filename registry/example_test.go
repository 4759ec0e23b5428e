package registry_test

import (
	"context"
	"log"

	"github.com/repobridge/sdk/registry"
)

// Example shows a gateway process announcing its endpoint and another
// process watching the set of live gateways for a repository.
func Example() {
	reg, err := registry.NewClient(registry.Config{
		Endpoints: []string{"localhost:2379"},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer reg.Close()

	ctx := context.Background()
	ep := registry.Endpoint{
		Name:         "main",
		URL:          "http://repo.internal:8080/alfresco/api",
		StoreScheme:  "workspace",
		StoreAddress: "SpacesStore",
		InstanceID:   "gateway-1",
	}
	if err := reg.Announce(ctx, ep); err != nil {
		log.Fatal(err)
	}
	defer reg.Withdraw(ctx, ep)

	updates, err := reg.Watch(ctx, "main")
	if err != nil {
		log.Fatal(err)
	}
	for endpoints := range updates {
		log.Printf("live gateways for main: %d", len(endpoints))
	}
}
