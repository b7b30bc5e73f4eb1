package model

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// mockStack records outgoing traffic and answers group queries from a
// fixed set.
type mockStack struct {
	mu       sync.Mutex
	requests []mesh.ClientRequest
	statuses []mesh.ServerStatus
	groups   map[mesh.Address]bool
	sendErr  error
}

func newMockStack() *mockStack {
	return &mockStack{groups: make(map[mesh.Address]bool)}
}

func (m *mockStack) SendClientMessage(req *mesh.ClientRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.requests = append(m.requests, *req)
	return nil
}

func (m *mockStack) SendServerStatus(st *mesh.ServerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.statuses = append(m.statuses, *st)
	return nil
}

func (m *mockStack) IsGroupSubscribed(_ mesh.ModelID, group mesh.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups[group]
}

func (m *mockStack) sentRequests() []mesh.ClientRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mesh.ClientRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *mockStack) sentStatuses() []mesh.ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mesh.ServerStatus, len(m.statuses))
	copy(out, m.statuses)
	return out
}

var _ mesh.Stack = (*mockStack)(nil)

// collectStateChanges subscribes to the element state-change category
// and forwards decoded payloads on the returned channel.
func collectStateChanges(t *testing.T, b *bus.Bus, mask bus.Event) <-chan StateChange {
	t.Helper()

	ch := make(chan StateChange, 16)
	_, err := b.Subscribe(bus.CategoryElementStateChange, mask, func(_ context.Context, _ bus.Event, payload []byte) error {
		sc, err := DecodeStateChange(payload)
		if err != nil {
			t.Errorf("decode state change: %v", err)
			return err
		}
		ch <- *sc
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func recvStateChange(t *testing.T, ch <-chan StateChange) StateChange {
	t.Helper()
	select {
	case sc := <-ch:
		return sc
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for state change")
		return StateChange{}
	}
}

func expectNoStateChange(t *testing.T, ch <-chan StateChange) {
	t.Helper()
	select {
	case sc := <-ch:
		t.Fatalf("unexpected state change: %+v", sc)
	case <-time.After(100 * time.Millisecond):
	}
}
