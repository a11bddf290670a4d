package simulator

import (
	"time"

	"github.com/vandejack/fleet-avl/parser"
)

func (td *TrackerDevice) SendRandomPoints() {
	defer td.Stop()
	if err := td.AuthenticateIMEI(td.conn, td.imei); err != nil {
		td.log.Println("error for IMEI authentication:", err)
		return
	}

	for {
		numberOfPoints := getRandomInt(1, 3)
		points := make([]*parser.AVLData, 0)

		for i := 0; i < numberOfPoints; i++ {
			points = append(points, generateRandomAVLData())
		}

		if err := td.SendPoints(td.conn, points); err != nil {
			td.log.Println("failed to send points:", err)
			return
		}

		td.log.Printf("sent %d points to the server\n", numberOfPoints)
		time.Sleep(time.Second * 3)
	}
}
