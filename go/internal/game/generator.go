package game

import (
	"fmt"
	"math/rand"
	"strconv"
)

const wiresPerModule = 4

var (
	wireColors   = []string{"red", "blue", "yellow", "white", "black"}
	buttonColors = []string{"red", "blue", "yellow", "white"}
	buttonLabels = []string{"ABORT", "DETONATE", "HOLD", "PRESS"}
	indicators   = []string{"CAR", "FRK", "BOB", "NSA", "MSA", "SIG", "CLR", "TRN", "NLL", "IND"}
	keypadGlyphs = []string{"Ϙ", "ϗ", "Ͽ", "ϡ", "Ͼ", "Ϟ"}
)

// GenerateModule produces a new module of the given kind with its solution
// embedded. All randomness comes from rng so generation is reproducible.
func GenerateModule(rng *rand.Rand, id string, kind ModuleKind) Module {
	switch kind {
	case ModuleKindWires:
		return generateWires(rng, id)
	case ModuleKindButton:
		return generateButton(rng, id)
	case ModuleKindKeypad:
		return generateKeypad(rng, id)
	}
	panic(fmt.Sprintf("game: unknown module kind %q", kind))
}

// GenerateModules builds the fixed module set for a new bomb, one module of
// each kind with ids module-0, module-1, ...
func GenerateModules(rng *rand.Rand) []Module {
	modules := make([]Module, 0, len(ModuleKinds))
	for i, kind := range ModuleKinds {
		modules = append(modules, GenerateModule(rng, fmt.Sprintf("module-%d", i), kind))
	}
	return modules
}

func generateWires(rng *rand.Rand, id string) *WiresModule {
	wires := make([]Wire, wiresPerModule)
	for i := range wires {
		wires[i] = Wire{Color: wireColors[rng.Intn(len(wireColors))]}
	}
	return &WiresModule{
		ModuleMeta: ModuleMeta{ID: id, Name: "Wires", Solution: wireSolution(wires)},
		Wires:      wires,
	}
}

// wireSolution picks the wire to cut:
//   - no red wires: cut the second wire
//   - last wire is white: cut the last wire
//   - more than one blue wire: cut the last blue wire
//   - otherwise: cut the last wire
func wireSolution(wires []Wire) string {
	hasRed := false
	blueCount := 0
	lastBlue := -1
	for i, w := range wires {
		switch w.Color {
		case "red":
			hasRed = true
		case "blue":
			blueCount++
			lastBlue = i
		}
	}

	last := len(wires) - 1
	switch {
	case !hasRed:
		return "1"
	case wires[last].Color == "white":
		return strconv.Itoa(last)
	case blueCount > 1:
		return strconv.Itoa(lastBlue)
	default:
		return strconv.Itoa(last)
	}
}

func generateButton(rng *rand.Rand, id string) *ButtonModule {
	color := buttonColors[rng.Intn(len(buttonColors))]
	label := buttonLabels[rng.Intn(len(buttonLabels))]
	batteries := rng.Intn(6)

	litIndicator := ""
	if rng.Float64() < 0.5 {
		litIndicator = indicators[rng.Intn(len(indicators))]
	}

	return &ButtonModule{
		ModuleMeta: ModuleMeta{
			ID:       id,
			Name:     "Button",
			Solution: buttonSolution(color, label, batteries, litIndicator),
		},
		Color:        color,
		Label:        label,
		Batteries:    batteries,
		LitIndicator: litIndicator,
	}
}

// buttonSolution applies the press/hold rules in order; the first matching
// rule wins and the fallback is always "hold".
func buttonSolution(color, label string, batteries int, litIndicator string) string {
	switch {
	case color == "blue" && label == "ABORT":
		return "hold"
	case batteries > 2 && label == "DETONATE":
		return "press"
	case color == "white" && litIndicator == "CAR":
		return "hold"
	case batteries > 2 && litIndicator == "FRK":
		return "press"
	case color == "yellow":
		return "hold"
	case color == "red" && label == "HOLD":
		return "press"
	default:
		return "hold"
	}
}

func generateKeypad(rng *rand.Rand, id string) *KeypadModule {
	symbols := make([]string, len(keypadGlyphs))
	copy(symbols, keypadGlyphs)
	rng.Shuffle(len(symbols), func(i, j int) {
		symbols[i], symbols[j] = symbols[j], symbols[i]
	})
	return &KeypadModule{
		// Symbols are pressed in display order.
		ModuleMeta: ModuleMeta{ID: id, Name: "Keypad", Solution: "0123"},
		Symbols:    symbols[:4],
	}
}
