// internal/plc/trigger.go
package plc

// StatusCodes are the three controller-defined values of the trigger
// register. They define the handshake and come from configuration, never
// from code.
type StatusCodes struct {
	Request uint16
	Success uint16
	Error   uint16
}

// TriggerState is the interpreted value of the trigger register. The
// register itself stays the single source of truth; a state is valid for
// one poll cycle only.
type TriggerState int

const (
	// TriggerIdle covers zero and any code outside the handshake set.
	TriggerIdle TriggerState = iota
	TriggerRequestPending
	TriggerLastSuccess
	TriggerLastError
)

// Classify maps a raw trigger-register value onto the handshake states.
func (c StatusCodes) Classify(raw uint16) TriggerState {
	switch raw {
	case c.Request:
		return TriggerRequestPending
	case c.Success:
		return TriggerLastSuccess
	case c.Error:
		return TriggerLastError
	default:
		return TriggerIdle
	}
}

func (s TriggerState) String() string {
	switch s {
	case TriggerRequestPending:
		return "REQUEST PENDING"
	case TriggerLastSuccess:
		return "LAST INSPECTION: SUCCESS"
	case TriggerLastError:
		return "LAST INSPECTION: ERROR"
	default:
		return "IDLE"
	}
}
