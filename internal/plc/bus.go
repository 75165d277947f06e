// internal/plc/bus.go
package plc

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// BusConfig is minimal transport config for the Modbus TCP word bus.
type BusConfig struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// tcpBus implements wordBus over one Modbus TCP connection.
type tcpBus struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// DialTCP opens a connected Modbus TCP word bus. ONE attempt, no retries.
func DialTCP(cfg BusConfig) (wordBus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("plc bus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &tcpBus{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// TCPFactory returns a busFactory for Client. Each call dials once.
func TCPFactory(cfg BusConfig) busFactory {
	return func() (wordBus, error) {
		return DialTCP(cfg)
	}
}

func (b *tcpBus) Close() error {
	return b.handler.Close()
}

func (b *tcpBus) ReadRegisters(addr, qty uint16) ([]uint16, error) {
	payload, err := b.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(payload) != int(qty)*2 {
		return nil, fmt.Errorf("plc bus: want %d register bytes, got %d", int(qty)*2, len(payload))
	}
	return unpackRegisters(payload), nil
}

func (b *tcpBus) WriteRegisters(addr uint16, regs []uint16) error {
	_, err := b.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

// ---- word packing ----

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
