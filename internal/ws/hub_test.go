package ws

import (
	"encoding/json"
	"testing"
)

func drain(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return &ev
	default:
		return nil
	}
}

func TestEmitToSingleConnection(t *testing.T) {
	hub := NewHub()
	client := NewClient("conn-1", "driver-1", RoleDriver, nil)
	hub.Register(client)

	if !hub.EmitTo("conn-1", "new-ride", map[string]string{"id": "ride-1"}) {
		t.Fatal("EmitTo returned false for a registered connection")
	}

	ev := drain(t, client)
	if ev == nil || ev.Event != "new-ride" {
		t.Errorf("unexpected event %+v", ev)
	}

	if hub.EmitTo("conn-unknown", "new-ride", nil) {
		t.Error("EmitTo must return false for an unknown handle")
	}
}

func TestEmitToUserReachesAllConnections(t *testing.T) {
	hub := NewHub()
	first := NewClient("conn-1", "rider-1", RoleRider, nil)
	second := NewClient("conn-2", "rider-1", RoleRider, nil)
	other := NewClient("conn-3", "rider-2", RoleRider, nil)
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	if sent := hub.EmitToUser("rider-1", "ride-confirmed", nil); sent != 2 {
		t.Errorf("expected 2 deliveries, got %d", sent)
	}
	if ev := drain(t, other); ev != nil {
		t.Error("event leaked to another user's connection")
	}
}

func TestEmitToRole(t *testing.T) {
	hub := NewHub()
	driver := NewClient("conn-1", "driver-1", RoleDriver, nil)
	rider := NewClient("conn-2", "rider-1", RoleRider, nil)
	hub.Register(driver)
	hub.Register(rider)

	if sent := hub.EmitToRole(RoleDriver, "new-ride", nil); sent != 1 {
		t.Errorf("expected 1 delivery, got %d", sent)
	}
	if ev := drain(t, rider); ev != nil {
		t.Error("driver broadcast leaked to a rider")
	}
}

func TestSlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewHub()
	client := NewClient("conn-1", "driver-1", RoleDriver, nil)
	hub.Register(client)

	// Fill the send buffer; further emits must drop, not block.
	for i := 0; i < sendBufferSize; i++ {
		if !hub.EmitTo("conn-1", "new-ride", i) {
			t.Fatalf("emit %d unexpectedly dropped", i)
		}
	}
	if hub.EmitTo("conn-1", "new-ride", "overflow") {
		t.Error("emit into a full buffer must report a drop")
	}
}

func TestUnregisterRemovesConnection(t *testing.T) {
	hub := NewHub()
	client := NewClient("conn-1", "driver-1", RoleDriver, nil)
	hub.Register(client)
	hub.Unregister(client)

	if hub.EmitTo("conn-1", "new-ride", nil) {
		t.Error("EmitTo must fail after Unregister")
	}
	if handles := hub.ConnectedHandles(RoleDriver); len(handles) != 0 {
		t.Errorf("expected no handles, got %v", handles)
	}
}
