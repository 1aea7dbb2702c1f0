package bragerconnect

import (
	"encoding/json"

	"go.uber.org/zap"
)

// listDevices fetches the raw device list for the account.
func (c *WebSocketClient) listDevices() ([]map[string]any, error) {
	resp, err := c.Execute("s_getMyDevIdList")
	if err != nil {
		return nil, err
	}
	var list []map[string]any
	if !emptyReply(resp) {
		if err := json.Unmarshal(resp, &list); err != nil {
			return nil, &DataError{Reason: "parsing device list", Err: err}
		}
	}
	return list, nil
}

// UpdateAll refreshes every device on the account, creating roster
// entries for devices seen for the first time.
func (c *WebSocketClient) UpdateAll() ([]*Device, error) {
	list, err := c.listDevices()
	if err != nil {
		return nil, err
	}
	var devices []*Device
	for _, entry := range list {
		info, err := ParseInfo(entry)
		if err != nil {
			return nil, err
		}
		dev, err := c.UpdateDevice(info.DevID, info)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	if len(devices) == 0 {
		return nil, &SyncError{Reason: "account has no devices"}
	}
	return devices, nil
}

// UpdateDevice refreshes one device. Devices not yet in the roster get
// a full update including their info record; known devices only have
// their pools, tasks and alarms replaced. Each refresh swaps a freshly
// built Device into the roster, so devices handed out earlier are
// never written to again.
func (c *WebSocketClient) UpdateDevice(id string, knownInfo *Info) (*Device, error) {
	c.mu.Lock()
	prev, known := c.devices[id]
	c.mu.Unlock()

	var info *Info
	if known {
		info = prev.Info
	} else {
		var err error
		if info, err = c.resolveInfo(id, knownInfo); err != nil {
			return nil, err
		}
	}
	c.logger.Debug("updating device", zap.String("devid", id), zap.Bool("full", !known))

	if err := c.setActiveDevice(id); err != nil {
		return nil, err
	}

	resp, err := c.Execute("s_getAllPoolData")
	if err != nil {
		return nil, err
	}
	if emptyReply(resp) {
		return nil, &SyncError{Reason: "device " + id + " returned no pool data"}
	}
	pool, err := ParsePool(resp)
	if err != nil {
		return nil, err
	}

	taskResp, err := c.Execute("s_getTaskQueue")
	if err != nil {
		return nil, err
	}
	tasks, err := ParseTasks(taskResp)
	if err != nil {
		return nil, err
	}

	alarmResp, err := c.Execute("s_getAlarmListExtended")
	if err != nil {
		return nil, err
	}
	alarms, err := ParseAlarms(alarmResp)
	if err != nil {
		return nil, err
	}

	dev := &Device{Info: info, Pool: pool, Tasks: tasks, Alarms: alarms}
	if err := dev.RefreshStatus(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, tracked := c.devices[id]; !tracked {
		c.deviceOrder = append(c.deviceOrder, id)
	}
	c.devices[id] = dev
	c.mu.Unlock()
	return dev, nil
}

// resolveInfo picks the info record for a first-time device, listing
// the account when the caller has none at hand.
func (c *WebSocketClient) resolveInfo(id string, knownInfo *Info) (*Info, error) {
	if knownInfo != nil {
		if knownInfo.DevID != id {
			return nil, &SyncError{Reason: "device info is for a different device"}
		}
		return knownInfo, nil
	}
	list, err := c.listDevices()
	if err != nil {
		return nil, err
	}
	for _, entry := range list {
		if asString(entry["devid"]) != id {
			continue
		}
		return ParseInfo(entry)
	}
	return nil, &SyncError{Reason: "device " + id + " is not on the account"}
}

// Devices returns the roster in first-seen order.
func (c *WebSocketClient) Devices() []*Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	devices := make([]*Device, 0, len(c.deviceOrder))
	for _, id := range c.deviceOrder {
		devices = append(devices, c.devices[id])
	}
	return devices
}

// Device returns one tracked device by id.
func (c *WebSocketClient) Device(id string) (*Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, ok := c.devices[id]
	return dev, ok
}
