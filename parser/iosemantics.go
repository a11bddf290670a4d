package parser

import (
	"strconv"
	"strings"
)

// Well-known AVL IO element ids.
const (
	IOOdometerTotal  uint16 = 16
	IOGSMSignal      uint16 = 21
	IOFuelLevel      uint16 = 30
	IOBatteryVoltage uint16 = 67
	IOBatteryCurrent uint16 = 68
	IOEngineHours    uint16 = 102
	IOTemperature    uint16 = 72
	IOOdometerTrip   uint16 = 199
	IOIgnition       uint16 = 239
)

// Driver-state-monitoring event ids reported by Movon DSM cameras.
// The camera firmware uses two id ranges depending on revision; both
// map onto the same six events in the same order.
const (
	DSMDrowsiness    uint16 = 11700
	DSMDistraction   uint16 = 11701
	DSMYawning       uint16 = 11702
	DSMPhoneUsage    uint16 = 11703
	DSMSmoking       uint16 = 11704
	DSMDriverAbsence uint16 = 11705
)

var dsmAliases = map[uint16]uint16{
	12923: DSMDrowsiness,
	12924: DSMDistraction,
	12925: DSMYawning,
	12926: DSMPhoneUsage,
	12927: DSMSmoking,
	12928: DSMDriverAbsence,
}

var dsmEventNames = map[uint16]string{
	DSMDrowsiness:    "DROWSINESS",
	DSMDistraction:   "DISTRACTION",
	DSMYawning:       "YAWNING",
	DSMPhoneUsage:    "PHONE_USAGE",
	DSMSmoking:       "SMOKING",
	DSMDriverAbsence: "DRIVER_ABSENCE",
}

// FatigueEventName resolves a DSM IO id (either range) to its
// canonical event name.
func FatigueEventName(id uint16) (string, bool) {
	if canonical, ok := dsmAliases[id]; ok {
		id = canonical
	}
	name, ok := dsmEventNames[id]
	return name, ok
}

// FatigueEventIDs returns the canonical DSM ids in reporting order.
func FatigueEventIDs() []uint16 {
	return []uint16{
		DSMDrowsiness, DSMDistraction, DSMYawning,
		DSMPhoneUsage, DSMSmoking, DSMDriverAbsence,
	}
}

// Some firmware revisions report DSM events as free text inside a
// variable-length element instead of a numeric id. The keyword scan
// turns that text back into the canonical id so downstream code sees
// one representation.
var fatigueKeywords = map[string]uint16{
	"Drowsiness":  DSMDrowsiness,
	"Distraction": DSMDistraction,
	"Yawning":     DSMYawning,
	"Phone":       DSMPhoneUsage,
	"Smoking":     DSMSmoking,
	"Absence":     DSMDriverAbsence,
}

// ScanFatigueText strips non-printable bytes from raw element text and
// looks for a known DSM keyword.
func ScanFatigueText(raw []byte) (uint16, bool) {
	printable := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b >= 0x20 && b < 0x7F {
			printable = append(printable, b)
		}
	}
	text := string(printable)
	for keyword, id := range fatigueKeywords {
		if strings.Contains(text, keyword) {
			return id, true
		}
	}
	return 0, false
}

// ElementName gives a human label for an IO id, falling back to the
// numeric id for everything unnamed.
func ElementName(id uint16) string {
	switch id {
	case 1:
		return "DigitalInput1"
	case 2:
		return "DigitalInput2"
	case IOOdometerTotal:
		return "TotalOdometer"
	case IOGSMSignal:
		return "GSMSignal"
	case IOFuelLevel:
		return "FuelLevel"
	case 66:
		return "ExternalVoltage"
	case IOBatteryVoltage:
		return "BatteryVoltage"
	case IOBatteryCurrent:
		return "BatteryCurrent"
	case IOTemperature:
		return "DallasTemperature"
	case IOEngineHours:
		return "EngineWorktime"
	case IOOdometerTrip:
		return "TripOdometer"
	case IOIgnition:
		return "Ignition"
	case 240:
		return "Movement"
	default:
		if name, ok := FatigueEventName(id); ok {
			return name
		}
		return strconv.Itoa(int(id))
	}
}
