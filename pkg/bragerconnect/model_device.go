package bragerconnect

import (
	"encoding/json"
	"strconv"
)

// Info is the per-device account record returned by the device list.
type Info struct {
	Username             string
	SharedFromName       string
	DevID                string
	DistrGroup           string
	IDPermGroup          int
	PermissionsEnabled   bool
	PermissionsTimeStart string
	PermissionsTimeEnd   string
	Accepted             bool
	Verified             bool
	Name                 string
	Description          string
	ProducerPermissions  int
	ProducerCode         int
	WarrantyVoid         *bool
	LastActivityTime     int
	Alert                bool
}

// ParseInfo builds an Info from one device list entry. Username and
// devid are mandatory, everything else is best effort since the
// service is loose about types here.
func ParseInfo(data map[string]any) (*Info, error) {
	if len(data) == 0 {
		return nil, &DataError{Reason: "device info is empty"}
	}
	username := asString(data["username"])
	devid := asString(data["devid"])
	if username == "" || devid == "" {
		return nil, &DataError{Reason: "device info lacks username or devid"}
	}

	info := &Info{
		Username:             username,
		SharedFromName:       asString(data["sharedfrom_name"]),
		DevID:                devid,
		DistrGroup:           asString(data["distr_group"]),
		IDPermGroup:          asInt(data["id_perm_group"]),
		PermissionsEnabled:   asBool(data["permissions_enabled"]),
		PermissionsTimeStart: asString(data["permissions_time_start"]),
		PermissionsTimeEnd:   asString(data["permissions_time_end"]),
		Accepted:             asBool(data["accepted"]),
		Verified:             asBool(data["verified"]),
		Name:                 asString(data["name"]),
		Description:          asString(data["description"]),
		ProducerPermissions:  asInt(data["producer_permissions"]),
		ProducerCode:         asInt(data["producer_code"]),
		LastActivityTime:     asInt(data["last_activity_time"]),
		Alert:                asBool(data["alert"]),
	}
	if v, ok := data["warranty_void"]; ok && v != nil {
		wv := asBool(v)
		info.WarrantyVoid = &wv
	}
	return info, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt tolerates the service sending numbers both as JSON numbers and
// as strings (producer_code does the latter).
func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}

// asBool tolerates boolean flags encoded as numbers.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	}
	return false
}

// Task is one entry of the device task queue.
type Task struct {
	ID              int64  `json:"id"`
	ModuleID        int    `json:"module_id"`
	Type            string `json:"type"`
	State           int    `json:"state"`
	ResultSent      int    `json:"result_sent"`
	UserOwner       string `json:"user_owner"`
	ProducerApp     int    `json:"producerApp"`
	CreateTimestamp int64  `json:"create_timestamp"`
	StartTimestamp  int64  `json:"start_timestamp"`
	EndTimestamp    int64  `json:"end_timestamp"`
	EndCause        int    `json:"end_cause"`
	Nr              int    `json:"nr"`
	Value           int    `json:"value"`
	Name            string `json:"name"`
	StartedAt       string `json:"started_at"`
	FinishedAt      string `json:"finished_at"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ParseTasks parses an s_getTaskQueue reply. An empty reply is a valid
// empty queue.
func ParseTasks(raw json.RawMessage) ([]Task, error) {
	if emptyReply(raw) {
		return nil, nil
	}
	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, &DataError{Reason: "parsing task queue", Err: err}
	}
	return tasks, nil
}

// Alarm is one active device alarm, e.g. ERROR_BRAK_PALIWA.
type Alarm struct {
	Name      string `json:"name"`
	Value     bool   `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// ParseAlarms parses an s_getAlarmListExtended reply. An empty reply
// means no alarms.
func ParseAlarms(raw json.RawMessage) ([]Alarm, error) {
	if emptyReply(raw) {
		return nil, nil
	}
	var alarms []Alarm
	if err := json.Unmarshal(raw, &alarms); err != nil {
		return nil, &DataError{Reason: "parsing alarm list", Err: err}
	}
	return alarms, nil
}

// Device is the client-side view of one heating controller: its
// account record, register pools, task queue, alarms and the status
// decoded from the pools.
type Device struct {
	Info   *Info
	Pool   *Pool
	Tasks  []Task
	Alarms []Alarm
	Status Status
}

func (d *Device) ID() string {
	if d.Info == nil {
		return ""
	}
	return d.Info.DevID
}

// RefreshStatus recomputes the decoded status from the current pools.
func (d *Device) RefreshStatus() error {
	status, err := DecodeStatus(d.Pool)
	if err != nil {
		return err
	}
	d.Status = status
	return nil
}
