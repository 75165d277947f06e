package plc

import (
	"errors"
	"testing"
)

var testCodes = StatusCodes{Request: 99, Success: 88, Error: 77}

func testConfig() Config {
	return Config{
		TriggerAddr: 28,
		ValueAddr:   29,
		RowsAddr:    14,
		Codes:       testCodes,
	}
}

// fakeBus records every register operation and can fail the Nth write.
type fakeBus struct {
	regs      map[uint16][]uint16
	writes    []uint16 // addresses, in call order
	failWrite int      // 1-based write index to fail; 0 = never
	failRead  bool
	closed    int
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[uint16][]uint16)}
}

func (f *fakeBus) ReadRegisters(addr, qty uint16) ([]uint16, error) {
	if f.failRead {
		return nil, errors.New("read refused")
	}
	if regs, ok := f.regs[addr]; ok && len(regs) >= int(qty) {
		return regs[:qty], nil
	}
	return make([]uint16, qty), nil
}

func (f *fakeBus) WriteRegisters(addr uint16, regs []uint16) error {
	f.writes = append(f.writes, addr)
	if f.failWrite == len(f.writes) {
		return errors.New("write refused")
	}
	f.regs[addr] = append([]uint16(nil), regs...)
	return nil
}

func (f *fakeBus) Close() error {
	f.closed++
	return nil
}

func connected(t *testing.T, bus *fakeBus) *Client {
	t.Helper()
	c, err := New(testConfig(), func() (wordBus, error) { return bus, nil })
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() err=%v", err)
	}
	return c
}

func TestWriteResult_Ordering(t *testing.T) {
	bus := newFakeBus()
	c := connected(t, bus)

	if err := c.WriteResult(12.00, 3, true); err != nil {
		t.Fatalf("WriteResult err=%v", err)
	}

	want := []uint16{29, 14, 28} // value, row count, trigger, always this order
	if len(bus.writes) != len(want) {
		t.Fatalf("want %d writes, got %d", len(want), len(bus.writes))
	}
	for i, addr := range want {
		if bus.writes[i] != addr {
			t.Fatalf("write %d: want addr %d, got %d", i, addr, bus.writes[i])
		}
	}

	if got := bus.regs[29]; got[0] != 1200 || got[1] != 0 {
		t.Fatalf("value words = %v, want [1200 0]", got)
	}
	if got := bus.regs[14]; got[0] != 3 {
		t.Fatalf("row count = %v, want [3]", got)
	}
	if got := bus.regs[28]; got[0] != 88 {
		t.Fatalf("trigger = %v, want [88]", got)
	}
}

func TestWriteResult_AbortsAfterFailedStep(t *testing.T) {
	bus := newFakeBus()
	bus.failWrite = 2 // row-count write fails
	c := connected(t, bus)

	err := c.WriteResult(1.0, 1, true)
	if err == nil {
		t.Fatal("expected write error")
	}
	if len(bus.writes) != 2 {
		t.Fatalf("trigger write observed after failure: writes=%v", bus.writes)
	}
	if _, ok := bus.regs[28]; ok {
		t.Fatal("trigger register mutated despite aborted write")
	}
	if c.IsConnected() {
		t.Fatal("client still connected after write failure")
	}
}

func TestWriteResult_ErrorCodeAndRowClamp(t *testing.T) {
	bus := newFakeBus()
	c := connected(t, bus)

	if err := c.WriteResult(0, -4, false); err != nil {
		t.Fatalf("WriteResult err=%v", err)
	}
	if got := bus.regs[14]; got[0] != 0 {
		t.Fatalf("negative row count not clamped: %v", got)
	}
	if got := bus.regs[28]; got[0] != 77 {
		t.Fatalf("trigger = %v, want error code [77]", got)
	}
}

func TestReadTrigger_Classification(t *testing.T) {
	bus := newFakeBus()
	c := connected(t, bus)

	cases := map[uint16]TriggerState{
		0:   TriggerIdle,
		5:   TriggerIdle,
		99:  TriggerRequestPending,
		88:  TriggerLastSuccess,
		77:  TriggerLastError,
		100: TriggerIdle,
	}
	for raw, want := range cases {
		bus.regs[28] = []uint16{raw}
		got, err := c.ReadTrigger()
		if err != nil {
			t.Fatalf("ReadTrigger(%d) err=%v", raw, err)
		}
		if got != want {
			t.Fatalf("ReadTrigger(%d) = %v, want %v", raw, got, want)
		}
	}
}

func TestReadTrigger_FailureDisconnects(t *testing.T) {
	bus := newFakeBus()
	c := connected(t, bus)
	bus.failRead = true

	if _, err := c.ReadTrigger(); err == nil {
		t.Fatal("expected read error")
	}
	if c.IsConnected() {
		t.Fatal("client still connected after read failure")
	}
	if _, err := c.ReadTrigger(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	bus := newFakeBus()
	c := connected(t, bus)

	c.Disconnect()
	c.Disconnect()
	if bus.closed != 1 {
		t.Fatalf("transport closed %d times, want 1", bus.closed)
	}
	if c.IsConnected() {
		t.Fatal("IsConnected() after Disconnect")
	}
}

func TestSnapshot(t *testing.T) {
	bus := newFakeBus()
	c := connected(t, bus)

	bus.regs[28] = []uint16{99}
	bus.regs[14] = []uint16{5}
	bus.regs[29] = []uint16{0xFB1E, 0xFFFF} // -12.50 mm

	st, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot err=%v", err)
	}
	if st.Trigger != TriggerRequestPending || st.RawTrigger != 99 {
		t.Fatalf("trigger = %v (%d)", st.Trigger, st.RawTrigger)
	}
	if st.RowCount != 5 {
		t.Fatalf("rows = %d, want 5", st.RowCount)
	}
	if st.DeviationMM != -12.50 {
		t.Fatalf("deviation = %v, want -12.50", st.DeviationMM)
	}
}

func TestParseDevice(t *testing.T) {
	addr, err := ParseDevice("D28")
	if err != nil || addr != 28 {
		t.Fatalf("ParseDevice(D28) = %d, %v", addr, err)
	}
	for _, bad := range []string{"", "D", "28", "Dxx", "D70000"} {
		if _, err := ParseDevice(bad); err == nil {
			t.Fatalf("ParseDevice(%q): expected error", bad)
		}
	}
}
