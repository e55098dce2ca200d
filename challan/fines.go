package challan

import "roadcam/violations"

// DefaultFine applies to violation types missing from the fine table.
const DefaultFine = 500.0

// fineTable is the fixed violation type to fine amount mapping.
var fineTable = map[violations.Type]float64{
	violations.NoHelmet:     500.0,
	violations.CellPhone:    1000.0,
	violations.Overspeeding: 1500.0,
	violations.WrongWay:     2000.0,
}

// FineAmount returns the fine for a violation type, DefaultFine for unknown
// types.
func FineAmount(t violations.Type) float64 {
	if fine, ok := fineTable[t]; ok {
		return fine
	}
	return DefaultFine
}
