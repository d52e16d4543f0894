// Package reader defines the contract between the capture core and an RFID
// reader driver.
package reader

import (
	"context"
	"errors"

	"github.com/j-veylop/rfid-console/internal/models"
)

// Sentinel errors returned by reader implementations.
var (
	ErrNotConnected     = errors.New("reader not connected")
	ErrAlreadyConnected = errors.New("reader already connected")
	ErrConnectFailed    = errors.New("reader connection failed")
)

type (
	// Connected is emitted once the link to the reader is up.
	Connected struct {
		Host string
	}

	// Disconnected is emitted when the link drops or is closed.
	Disconnected struct {
		Reason string
	}

	// InventoryStart is emitted when the reader begins an inventory.
	InventoryStart struct{}

	// InventoryStop is emitted when the reader ends an inventory.
	InventoryStop struct{}

	// OperationSummary carries the reader's own read total for the last
	// operation.
	OperationSummary struct {
		TotalCount int
	}

	// TriggerPressed is emitted when the handheld trigger goes down.
	TriggerPressed struct{}

	// TriggerReleased is emitted when the handheld trigger comes up.
	TriggerReleased struct{}
)

// Event is the interface implemented by all reader status events.
type Event interface {
	isEvent()
}

func (Connected) isEvent()        {}
func (Disconnected) isEvent()     {}
func (InventoryStart) isEvent()   {}
func (InventoryStop) isEvent()    {}
func (OperationSummary) isEvent() {}
func (TriggerPressed) isEvent()   {}
func (TriggerReleased) isEvent()  {}

// Listener receives reader callbacks. Both methods may be called from any
// goroutine, and OnReadBatch may be called concurrently with itself.
type Listener interface {
	OnReadBatch(batch []models.TagRead)
	OnStatus(event Event)
}

// Reader is the command surface of a reader driver.
type Reader interface {
	Connect(ctx context.Context) error
	Disconnect() error
	StartInventory() error
	StopInventory() error
	SetListener(l Listener)
	Host() string
}
