package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AnnounceLookupRemove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, ok := registry.Lookup("c1")
	req.False(ok)

	registry.Announce("c1", Identity{Name: "Alice", ProfilePicture: "alice.png"})
	identity, ok := registry.Lookup("c1")
	req.True(ok)
	req.Equal("Alice", identity.Name)

	// Re-announcing replaces the previous identity
	registry.Announce("c1", Identity{Name: "Alicia"})
	identity, _ = registry.Lookup("c1")
	req.Equal("Alicia", identity.Name)
	req.Equal(1, registry.Len())

	removed, ok := registry.Remove("c1")
	req.True(ok)
	req.Equal("Alicia", removed.Name)

	_, ok = registry.Remove("c1")
	req.False(ok)
	req.Equal(0, registry.Len())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", n)
			registry.Announce(connID, Identity{Name: fmt.Sprintf("user%d", n)})
			registry.Lookup(connID)
			registry.Remove(connID)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, registry.Len())
}
