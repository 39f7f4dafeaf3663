package game

// Payload type discriminators carried on outbound game state messages. The
// merge payload sent after a strike or solve carries no discriminator at all;
// clients treat it as a partial overwrite of whatever they hold.
const (
	PayloadTypeFullUpdate  = "fullUpdate"
	PayloadTypeTimerUpdate = "timerUpdate"
)

// Player is one session member as exposed in snapshots.
type Player struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ModulePayload is the public view of a single module. Kind-specific fields
// are populated only for the matching variant. Solutions are included; the
// manual reader's client needs them to render instructions.
type ModulePayload struct {
	ID           string     `json:"id"`
	Type         ModuleKind `json:"type"`
	Name         string     `json:"name"`
	Wires        []Wire     `json:"wires,omitempty"`
	Color        string     `json:"color,omitempty"`
	Label        string     `json:"label,omitempty"`
	Batteries    *int       `json:"batteries,omitempty"`
	LitIndicator *string    `json:"litIndicator,omitempty"`
	Symbols      []string   `json:"symbols,omitempty"`
	Solution     string     `json:"solution"`
	Solved       bool       `json:"solved"`
}

// Snapshot is the full serialized view of a session. Role and Type are set
// only on the initial join response; strike/solve broadcasts send the same
// shape untagged.
type Snapshot struct {
	GameID        string            `json:"gameId"`
	Players       map[string]Player `json:"players"`
	TimeRemaining int               `json:"timeRemaining"`
	Modules       []ModulePayload   `json:"modules"`
	Solved        int               `json:"solved"`
	Strikes       int               `json:"strikes"`
	GameOver      bool              `json:"gameOver"`
	Winner        bool              `json:"winner"`
	Role          string            `json:"role,omitempty"`
	Type          string            `json:"type,omitempty"`
}

// TimerUpdate is the lightweight per-tick payload. It deliberately carries
// nothing but the clock so clients merge it without clobbering other fields.
type TimerUpdate struct {
	GameID        string `json:"gameId"`
	TimeRemaining int    `json:"timeRemaining"`
	Type          string `json:"type"`
}

// modulePayload serializes one module variant into its public shape.
func modulePayload(m Module) ModulePayload {
	meta := m.Meta()
	p := ModulePayload{
		ID:       meta.ID,
		Type:     m.Kind(),
		Name:     meta.Name,
		Solution: meta.Solution,
		Solved:   meta.Solved,
	}
	switch v := m.(type) {
	case *WiresModule:
		p.Wires = v.Wires
	case *ButtonModule:
		p.Color = v.Color
		p.Label = v.Label
		batteries := v.Batteries
		p.Batteries = &batteries
		if v.LitIndicator != "" {
			indicator := v.LitIndicator
			p.LitIndicator = &indicator
		}
	case *KeypadModule:
		p.Symbols = v.Symbols
	}
	return p
}
