package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	. "github.com/berfenger/brager2mqtt/internal/core/domain"
	"github.com/berfenger/brager2mqtt/pkg/bragerconnect"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_ID_BOILER_TEMP        = "boiler_temperature"
	SENSOR_ID_BOILER_TARGET_TEMP = "boiler_target_temperature"
	SENSOR_ID_RETURN_TEMP        = "return_temperature"
	SENSOR_ID_DHW_TEMP           = "dhw_temperature"
	SENSOR_ID_BUFFER_TEMP        = "buffer_temperature"
	SENSOR_ID_EXTERNAL_TEMP      = "external_temperature"
	SENSOR_ID_PUMP_TEMP          = "pump_temperature"
	SENSOR_ID_BOILER_POWER       = "boiler_power"
	SENSOR_ID_FUEL_CONSUMED      = "fuel_consumed"
	SENSOR_ID_FUEL_LEVEL         = "fuel_level"
	SENSOR_ID_BOILER_STATUS      = "boiler_status"
	SENSOR_ID_PELLET_STATUS      = "pellet_status"
	SENSOR_ID_BOILER_TYPE        = "boiler_type"
	SENSOR_ID_ALARM_ACTIVE       = "alarm_active"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_WEIGHT          = "weight"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	DEVICE_CLASS_PROBLEM         = "problem"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("brager_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Brager2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Brager2MQTT %s", md5HashShort(baseTopic)),
	}
}

func ControllerDevice(info *bragerconnect.Info) Device {
	name := info.Name
	if name == "" {
		name = info.DevID
	}
	return Device{
		Id:           fmt.Sprintf("brager_ctrl_%s", DeviceSlug(info.DevID)),
		Manufacturer: "Brager",
		Model:        fmt.Sprintf("controller %d", info.ProducerCode),
		Name:         name,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// DeviceSlug derives the per-device sensor id prefix from a controller
// device id.
func DeviceSlug(devid string) string {
	return strings.ToLower(devid)
}

// statusSensorDef binds a decoded pool datapoint to a Home Assistant
// sensor definition.
type statusSensorDef struct {
	pool        int
	field       int
	id          string
	name        string
	stateClass  string
	deviceClass string
	unit        string
	icon        string
}

var statusSensorDefs = []statusSensorDef{
	{4, 0, SENSOR_ID_BOILER_TEMP, "Boiler temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", ""},
	{4, 3, SENSOR_ID_BOILER_TARGET_TEMP, "Boiler target temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", ""},
	{4, 1, SENSOR_ID_RETURN_TEMP, "Return temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", ""},
	{4, 2, SENSOR_ID_DHW_TEMP, "DHW temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", "mdi:water-boiler"},
	{4, 6, SENSOR_ID_BUFFER_TEMP, "Buffer temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", ""},
	{4, 4, SENSOR_ID_EXTERNAL_TEMP, "External temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", "mdi:thermometer"},
	{4, 28, SENSOR_ID_PUMP_TEMP, "Circulation pump temperature", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_TEMPERATURE, "°C", ""},
	{4, 14, SENSOR_ID_BOILER_POWER, "Boiler power", STATE_CLASS_MEASUREMENT, DEVICE_CLASS_POWER, "kW", "mdi:fire"},
	{4, 61, SENSOR_ID_FUEL_CONSUMED, "Fuel consumed", STATE_CLASS_TOTAL_INCREASING, DEVICE_CLASS_WEIGHT, "t", "mdi:weight"},
	{5, 0, SENSOR_ID_BOILER_STATUS, "Boiler status", "", "", "", "mdi:fire-circle"},
	{5, 5, SENSOR_ID_PELLET_STATUS, "Pellet burner status", "", "", "", "mdi:grain"},
}

// ControllerSensors builds the discovery definitions for one boiler
// controller. Only datapoints the controller actually reports are
// announced.
func ControllerSensors(controllerDevice Device, device *bragerconnect.Device) []GenericSensor {

	var sensors []GenericSensor
	slug := DeviceSlug(device.ID())

	for _, def := range statusSensorDefs {
		if _, ok := device.Status.Field(def.pool, def.field); !ok {
			continue
		}
		id := sensorId(slug, def.id)
		sensors = append(sensors, GenericSensor{
			Device:            controllerDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              def.name,
			StateClass:        def.stateClass,
			DeviceClass:       def.deviceClass,
			UnitOfMeasurement: def.unit,
			Icon:              def.icon,
			UniqueId:          uniqueId(controllerDevice.Id, id),
		})
	}

	// Fuel level
	if _, ok := bragerconnect.FuelLevelOf(device.Pool); ok {
		id := sensorId(slug, SENSOR_ID_FUEL_LEVEL)
		sensors = append(sensors, GenericSensor{
			Device:            controllerDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Fuel level",
			StateClass:        STATE_CLASS_MEASUREMENT,
			UnitOfMeasurement: "%",
			Icon:              "mdi:gauge",
			UniqueId:          uniqueId(controllerDevice.Id, id),
		})
	}

	// Boiler type
	id := sensorId(slug, SENSOR_ID_BOILER_TYPE)
	sensors = append(sensors, GenericSensor{
		Device:         controllerDevice,
		Id:             id,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Boiler type",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(controllerDevice.Id, id),
	})

	// Alarm
	id = sensorId(slug, SENSOR_ID_ALARM_ACTIVE)
	sensors = append(sensors, GenericSensor{
		Device:      controllerDevice,
		Id:          id,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Alarm",
		DeviceClass: DEVICE_CLASS_PROBLEM,
		UniqueId:    uniqueId(controllerDevice.Id, id),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func sensorId(slug, id string) string {
	return fmt.Sprintf("%s_%s", slug, id)
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
