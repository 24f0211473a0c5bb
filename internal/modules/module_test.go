package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osint-brain/backend/internal/investigation"
)

type staticModule struct {
	id   string
	caps []investigation.Capability
}

func (s *staticModule) ID() string { return s.id }

func (s *staticModule) Capabilities() []investigation.Capability { return s.caps }

func (s *staticModule) Probe(context.Context, investigation.Target) ([]investigation.Signal, error) {
	return nil, nil
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&staticModule{id: "alpha"}))
	require.Error(t, r.Register(&staticModule{id: "alpha"}))
}

func TestRegistryByCapability(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&staticModule{id: "bravo", caps: []investigation.Capability{investigation.CapUsername, investigation.CapEmail}}))
	require.NoError(t, r.Register(&staticModule{id: "alpha", caps: []investigation.Capability{investigation.CapUsername}}))
	require.NoError(t, r.Register(&staticModule{id: "charlie", caps: []investigation.Capability{investigation.CapDomain}}))

	selected := r.ByCapability([]investigation.Capability{investigation.CapUsername, investigation.CapEmail})

	// Each module at most once, in stable ID order.
	require.Len(t, selected, 2)
	require.Equal(t, "alpha", selected[0].ID())
	require.Equal(t, "bravo", selected[1].ID())
}

func TestRegistryIDsSorted(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&staticModule{id: "zulu"}))
	require.NoError(t, r.Register(&staticModule{id: "alpha"}))

	require.Equal(t, []string{"alpha", "zulu"}, r.IDs())
	require.Equal(t, 2, r.Len())
}
