package authority

import (
	"context"

	"github.com/gridclash/arena/pkg/core"
)

// Endpoint is a registered client handle. The host invokes it while holding
// its lock, always under a context bounded by the delivery timeout. Any
// returned error evicts the endpoint.
type Endpoint interface {
	// DeliverRawEvent relays the scrambled action bytes exactly as submitted.
	DeliverRawEvent(ctx context.Context, data []byte) error
	// PushState sends a full snapshot of the player set.
	PushState(ctx context.Context, players []core.Player) error
	// NotifyDeath announces that playerID has died.
	NotifyDeath(ctx context.Context, playerID string) error
	// NotifyGameEnd announces the winner, or nil when nobody survived.
	NotifyGameEnd(ctx context.Context, winnerID *string) error
}

// Evictable is implemented by endpoints that own a connection. Evicted is
// called once the host has dropped the endpoint, still under the host lock,
// so it must not block or call back into the host.
type Evictable interface {
	Evicted(reason string)
}

type endpointEntry struct {
	id string
	ep Endpoint
}
