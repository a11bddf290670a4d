package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vandejack/fleet-avl/parser"
	"github.com/vandejack/fleet-avl/store"
)

const queryTimeout = 5 * time.Second

// VehicleDB is the Mongo-backed vehicle registry.
type VehicleDB struct {
	collection *mongo.Collection
}

var _ store.VehicleRegistry = &VehicleDB{}

func ConnectVehicleDB(ctx context.Context, uri, database string) (*VehicleDB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &VehicleDB{
		collection: client.Database(database).Collection("vehicles"),
	}, nil
}

func (v *VehicleDB) FindByIMEI(ctx context.Context, imei string) (*store.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var vehicle store.Vehicle
	err := v.collection.FindOne(ctx, bson.M{"imei": imei}).Decode(&vehicle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// UpdateTelemetry refreshes a vehicle's live state. The filter carries
// the staleness guard, so a record older than the stored state matches
// no document and concurrent writers cannot regress it.
func (v *VehicleDB) UpdateTelemetry(ctx context.Context, imei string, t *store.Telemetry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{
		"imei": imei,
		"$or": bson.A{
			bson.M{"lastlocationtime": bson.M{"$lt": t.Timestamp}},
			bson.M{"lastlocationtime": bson.M{"$exists": false}},
		},
	}
	set := bson.M{
		"lastlocationtime": t.Timestamp,
		"lastlatitude":     t.Latitude,
		"lastlongitude":    t.Longitude,
		"lastaltitude":     t.Altitude,
		"lastangle":        t.Angle,
		"lastspeed":        t.Speed,
		"satellites":       t.Satellites,
	}
	if ignition, ok := t.IOValues[parser.IOIgnition]; ok {
		set["ignition"] = ignition == 1
	}
	if millivolts, ok := t.IOValues[parser.IOBatteryVoltage]; ok {
		set["batterymillivolts"] = millivolts
	}
	if signal, ok := t.IOValues[parser.IOGSMSignal]; ok {
		set["gsmsignal"] = signal
	}
	if odometer, ok := t.IOValues[parser.IOOdometerTotal]; ok {
		set["odometer"] = odometer
	}
	if hours, ok := t.IOValues[parser.IOEngineHours]; ok {
		set["enginehours"] = hours
	}
	if fuel, ok := t.IOValues[parser.IOFuelLevel]; ok {
		set["fuellevel"] = fuel
	}
	_, err := v.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	return err
}
