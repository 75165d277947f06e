// internal/plc/client.go
package plc

import (
	"errors"
	"fmt"
	"log"

	"github.com/tamzrod/plc-inspector/internal/codec"
)

// wordBus abstracts the register transport the client needs.
// The client depends on word geometry only.
type wordBus interface {
	ReadRegisters(addr, qty uint16) ([]uint16, error)
	WriteRegisters(addr uint16, regs []uint16) error
	Close() error
}

// busFactory opens one transport. ONE attempt per call; retry policy
// belongs to the control loop.
type busFactory func() (wordBus, error)

// Config is the register geometry and handshake code set for one controller.
type Config struct {
	TriggerAddr uint16 // trigger/status register
	ValueAddr   uint16 // 32-bit deviation value, two words, low first
	RowsAddr    uint16 // 16-bit row count

	Codes StatusCodes
}

// Client owns the persistent connection to the controller.
//
// State machine: Disconnected -> Connected -> (Disconnected on I/O failure).
// Any I/O failure is terminal for the current connection; the caller must
// Connect again before the next cycle.
type Client struct {
	cfg  Config
	dial busFactory

	bus       wordBus
	connected bool
}

// New creates a disconnected client.
func New(cfg Config, dial busFactory) (*Client, error) {
	if dial == nil {
		return nil, errors.New("plc: bus factory required")
	}
	if cfg.Codes.Request == cfg.Codes.Success ||
		cfg.Codes.Request == cfg.Codes.Error ||
		cfg.Codes.Success == cfg.Codes.Error {
		return nil, errors.New("plc: status codes must be distinct")
	}
	return &Client{cfg: cfg, dial: dial}, nil
}

// Connect opens the transport. No retries inside this call.
func (c *Client) Connect() error {
	if c.connected {
		return nil
	}

	bus, err := c.dial()
	if err != nil {
		return fmt.Errorf("plc: connect: %w", err)
	}

	c.bus = bus
	c.connected = true
	return nil
}

// Disconnect releases the transport unconditionally. Idempotent.
func (c *Client) Disconnect() {
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			log.Printf("plc: close error (ignored): %v", err)
		}
	}
	c.bus = nil
	c.connected = false
}

// IsConnected is a cheap state query, no I/O.
func (c *Client) IsConnected() bool {
	return c.connected
}

// drop marks the connection dead after an I/O failure.
func (c *Client) drop() {
	c.Disconnect()
}

// ReadTrigger reads the trigger register and classifies it.
func (c *Client) ReadTrigger() (TriggerState, error) {
	if !c.connected {
		return TriggerIdle, ErrNotConnected
	}

	regs, err := c.bus.ReadRegisters(c.cfg.TriggerAddr, 1)
	if err != nil {
		c.drop()
		return TriggerIdle, fmt.Errorf("plc: read trigger register: %w", err)
	}
	if len(regs) != 1 {
		c.drop()
		return TriggerIdle, fmt.Errorf("plc: read trigger register: want 1 word, got %d", len(regs))
	}

	return c.cfg.Codes.Classify(regs[0]), nil
}

// WriteResult delivers one inspection result.
//
// Ordering is a hard contract: value register, then row-count register,
// then trigger register. A consumer must never observe the success/error
// code before the data it refers to. The first failed step aborts the rest
// and drops the connection.
func (c *Client) WriteResult(valueMM float64, rowCount int, success bool) error {
	if !c.connected {
		return ErrNotConnected
	}

	low, high, clamped := codec.EncodeFixed32(valueMM, codec.ScaleCentiMM)
	if clamped {
		log.Printf("plc: deviation %.2fmm clamped to int32 range", valueMM)
	}

	if err := c.bus.WriteRegisters(c.cfg.ValueAddr, []uint16{low, high}); err != nil {
		c.drop()
		return fmt.Errorf("plc: write value register: %w", err)
	}

	if rowCount < 0 {
		rowCount = 0
	}
	if err := c.bus.WriteRegisters(c.cfg.RowsAddr, []uint16{uint16(rowCount)}); err != nil {
		c.drop()
		return fmt.Errorf("plc: write row-count register: %w", err)
	}

	code := c.cfg.Codes.Error
	if success {
		code = c.cfg.Codes.Success
	}
	if err := c.bus.WriteRegisters(c.cfg.TriggerAddr, []uint16{code}); err != nil {
		c.drop()
		return fmt.Errorf("plc: write trigger register: %w", err)
	}

	return nil
}

// SystemState is a read-only view of the handshake registers.
type SystemState struct {
	Connected   bool
	RawTrigger  uint16
	Trigger     TriggerState
	RowCount    uint16
	DeviationMM float64
}

// Snapshot reads the current handshake registers for diagnostics.
// It never writes.
func (c *Client) Snapshot() (SystemState, error) {
	if !c.connected {
		return SystemState{}, ErrNotConnected
	}

	trig, err := c.bus.ReadRegisters(c.cfg.TriggerAddr, 1)
	if err != nil {
		c.drop()
		return SystemState{}, fmt.Errorf("plc: snapshot trigger: %w", err)
	}
	rows, err := c.bus.ReadRegisters(c.cfg.RowsAddr, 1)
	if err != nil {
		c.drop()
		return SystemState{}, fmt.Errorf("plc: snapshot row count: %w", err)
	}
	val, err := c.bus.ReadRegisters(c.cfg.ValueAddr, 2)
	if err != nil {
		c.drop()
		return SystemState{}, fmt.Errorf("plc: snapshot value: %w", err)
	}
	if len(trig) != 1 || len(rows) != 1 || len(val) != 2 {
		c.drop()
		return SystemState{}, errors.New("plc: snapshot: short register read")
	}

	return SystemState{
		Connected:   true,
		RawTrigger:  trig[0],
		Trigger:     c.cfg.Codes.Classify(trig[0]),
		RowCount:    rows[0],
		DeviationMM: codec.DecodeFixed32(val[0], val[1], codec.ScaleCentiMM),
	}, nil
}
