package game

// ModuleKind identifies one of the puzzle module variants on a bomb.
type ModuleKind string

const (
	ModuleKindWires  ModuleKind = "wires"
	ModuleKindButton ModuleKind = "button"
	ModuleKindKeypad ModuleKind = "keypad"
)

// ModuleKinds lists every variant in the order modules appear on a new bomb.
var ModuleKinds = []ModuleKind{ModuleKindWires, ModuleKindButton, ModuleKindKeypad}

// Module is one independently solvable sub-puzzle. The concrete types are
// WiresModule, ButtonModule and KeypadModule; Kind discriminates between them.
type Module interface {
	Kind() ModuleKind
	Meta() *ModuleMeta
}

// ModuleMeta holds the fields shared by every module variant. Solved is the
// only field mutated after generation.
type ModuleMeta struct {
	ID       string
	Name     string
	Solution string
	Solved   bool
}

func (m *ModuleMeta) Meta() *ModuleMeta { return m }

// Wire is a single wire on a wires module.
type Wire struct {
	Color string `json:"color"`
	Cut   bool   `json:"cut"`
}

// WiresModule asks the defuser to cut one specific wire out of four.
// Solution holds the zero-based index of the wire to cut, as a string.
type WiresModule struct {
	ModuleMeta
	Wires []Wire
}

func (*WiresModule) Kind() ModuleKind { return ModuleKindWires }

// ButtonModule asks the defuser to either press or hold a labelled button.
// Solution is "press" or "hold".
type ButtonModule struct {
	ModuleMeta
	Color        string
	Label        string
	Batteries    int
	LitIndicator string // empty when no indicator is lit
}

func (*ButtonModule) Kind() ModuleKind { return ModuleKindButton }

// KeypadModule asks the defuser to press four symbols in order.
// Solution is the index order to press them in, e.g. "0123".
type KeypadModule struct {
	ModuleMeta
	Symbols []string
}

func (*KeypadModule) Kind() ModuleKind { return ModuleKindKeypad }
