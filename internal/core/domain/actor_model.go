package domain

import "github.com/berfenger/brager2mqtt/pkg/bragerconnect"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_BRAGER       = "brager"
	ACTOR_ID_TELEMETRY    = "telemetry"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetDevicesRequest struct {
	ActorRequestMixIn
}

type GetDevicesResponse struct {
	ActorResponseMixIn
	Devices []*bragerconnect.Device
}

type RefreshDevicesRequest struct {
	ActorRequestMixIn
}

type RefreshDevicesResponse struct {
	ActorResponseMixIn
	Devices []*bragerconnect.Device
}

type RefreshDeviceRequest struct {
	ActorRequestMixIn
	DeviceId string
}

type RefreshDeviceResponse struct {
	ActorResponseMixIn
	Device *bragerconnect.Device
}

type GetSessionStateRequest struct {
	ActorRequestMixIn
}

type GetSessionStateResponse struct {
	ActorResponseMixIn
	Connected    bool
	LoggedIn     bool
	ActiveDevice string
}

type SetUserVariableRequest struct {
	ActorRequestMixIn
	Name  string
	Value string
}

type SetUserVariableResponse struct {
	ActorResponseMixIn
}

// PollNowRequest asks the telemetry actor to refresh all devices outside
// the regular poll schedule.
type PollNowRequest struct {
	ActorRequestMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
