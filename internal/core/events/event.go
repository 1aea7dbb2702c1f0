package events

import (
	. "github.com/berfenger/brager2mqtt/internal/core/domain"
	"github.com/berfenger/brager2mqtt/pkg/bragerconnect"
)

// DeviceToUpdateEvents converts the decoded status of one controller
// into sensor update events.
func DeviceToUpdateEvents(device *bragerconnect.Device) []any {
	var events []any
	slug := DeviceSlug(device.ID())

	for _, def := range statusSensorDefs {
		field, ok := device.Status.Field(def.pool, def.field)
		if !ok {
			continue
		}
		events = append(events, statusFieldToUpdateEvent(slug, def, field))
	}

	// Fuel level
	if level, ok := bragerconnect.FuelLevelOf(device.Pool); ok {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: sensorId(slug, SENSOR_ID_FUEL_LEVEL),
			},
			Value:    level,
			Decimals: 1,
		})
	}

	// Boiler type
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: sensorId(slug, SENSOR_ID_BOILER_TYPE),
		},
		Value: bragerconnect.BoilerTypeOf(device.Pool).String(),
	})

	// Alarm
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: sensorId(slug, SENSOR_ID_ALARM_ACTIVE),
		},
		Value: len(device.Alarms) > 0,
	})

	return events
}

func statusFieldToUpdateEvent(slug string, def statusSensorDef, field bragerconnect.StatusField) any {
	mixin := SensorUpdateEventMixIn{
		Id: sensorId(slug, def.id),
	}
	switch value := field.Value.(type) {
	case float64:
		decimals := uint(1)
		if def.id == SENSOR_ID_FUEL_CONSUMED {
			decimals = 3
		}
		return FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  value,
			Decimals:               decimals,
		}
	case bragerconnect.BoilerStatus:
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  value.String(),
		}
	case bragerconnect.PelletStatus:
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  value.String(),
		}
	case bragerconnect.TestStatus:
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  value.String(),
		}
	default:
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  "unknown",
		}
	}
}
