package events

// KindWakeWordTriggered identifies a wake-word detection.
const KindWakeWordTriggered Kind = "wake_word.triggered"

// WakeWordTriggered reports that the gate armed under ArmID heard the
// trigger phrase.
type WakeWordTriggered struct {
	Base
	ArmID string
}

func NewWakeWordTriggered(armID string) WakeWordTriggered {
	return WakeWordTriggered{Base: NewBase(KindWakeWordTriggered), ArmID: armID}
}
