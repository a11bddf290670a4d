package simulator

import (
	"math/rand"
	"time"

	"github.com/vandejack/fleet-avl/parser"
)

func generateRandomAVLData() *parser.AVLData {
	return &parser.AVLData{
		Timestamp:  uint64(time.Now().UnixMilli()),
		Priority:   getRandomPacketPriority(),
		Longitude:  getRandomFloat64(-180, 180),
		Latitude:   getRandomFloat64(-90, 90),
		Altitude:   int16(getRandomInt(-1000, 1000)),
		Angle:      uint16(getRandomInt(0, 360)),
		Satellites: uint8(getRandomInt(0, 12)),
		Speed:      uint16(getRandomInt(0, 160)),
		EventID:    uint16(getRandomInt(0, 100)),
		IOElements: generateRandomIOElements(),
	}
}

func getRandomPacketPriority() parser.PacketPriority {
	priorities := []parser.PacketPriority{
		parser.PriorityLow,
		parser.PriorityHigh,
		parser.PriorityPanic,
	}
	return priorities[getRandomInt(0, len(priorities)-1)]
}

func generateRandomIOElements() []*parser.IOElement {
	elements := []*parser.IOElement{
		{ID: parser.IOIgnition, Value: uint8(getRandomInt(0, 1))},
		{ID: parser.IOGSMSignal, Value: uint8(getRandomInt(1, 5))},
		{ID: parser.IOBatteryVoltage, Value: uint16(getRandomInt(11500, 12800))},
		{ID: parser.IOOdometerTotal, Value: uint32(getRandomInt(0, 500000))},
	}
	// One run in ten reports a DSM fatigue event.
	if getRandomInt(0, 9) == 0 {
		ids := parser.FatigueEventIDs()
		elements = append(elements, &parser.IOElement{
			ID:    ids[getRandomInt(0, len(ids)-1)],
			Value: uint8(1),
		})
	}
	return elements
}

func getRandomFloat64(min, max float64) float64 {
	randomizer := rand.New(rand.NewSource(time.Now().UnixNano()))
	return min + randomizer.Float64()*(max-min)
}

func getRandomInt(min, max int) int {
	randomizer := rand.New(rand.NewSource(time.Now().UnixNano()))
	return min + randomizer.Intn(max-min+1)
}
