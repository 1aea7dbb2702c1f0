package bragerconnect

import "encoding/json"

const testDeviceID = "FTTCTBSLCE"

// testPoolData mimics an s_getAllPoolData reply of a pellet boiler
// with boiler, burner, DHW and pump circuits active.
const testPoolData = `{
	"P4": {
		"s0": 1, "v0": 61.5, "u0": 1,
		"s3": 1, "v3": 55,
		"v4": -2.5, "u4": 1,
		"s1": 2,
		"s2": 1, "v2": 45,
		"s6": 2,
		"s14": 1, "v14": 120,
		"s61": 1, "v61": -500, "v62": 2,
		"s28": 1, "v28": 70,
		"s25": 2
	},
	"P5": {
		"s0": 1,
		"s5": 256,
		"s11": 2,
		"s39": 1
	},
	"P6": {
		"s0": 0,
		"v34": 78.5,
		"s152": 1
	}
}`

func CreateTestClient() (Client, error) {
	return &TestClient{}, nil
}

var _ Client = (*TestClient)(nil)

// TestClient is a static in-memory Client serving one canned device.
type TestClient struct {
	connected bool
	loggedIn  bool
	device    *Device
	vars      map[string]string
}

func (c *TestClient) Connect() error {
	if c.device == nil {
		dev, err := buildTestDevice()
		if err != nil {
			return err
		}
		c.device = dev
	}
	c.connected = true
	c.loggedIn = true
	return nil
}

func (c *TestClient) Disconnect() error {
	c.connected = false
	c.loggedIn = false
	return nil
}

func (c *TestClient) Connected() bool {
	return c.connected
}

func (c *TestClient) LoggedIn() bool {
	return c.loggedIn
}

func (c *TestClient) ActiveDeviceID() string {
	return testDeviceID
}

func (c *TestClient) GetUserVariable(name string) (string, error) {
	if !c.connected {
		return "", &ConnectionError{Reason: "not connected"}
	}
	return c.vars[name], nil
}

func (c *TestClient) SetUserVariable(name string, value string) error {
	if !c.connected {
		return &ConnectionError{Reason: "not connected"}
	}
	if c.vars == nil {
		c.vars = map[string]string{}
	}
	c.vars[name] = value
	return nil
}

func (c *TestClient) UpdateAll() ([]*Device, error) {
	if !c.connected {
		return nil, &ConnectionError{Reason: "not connected"}
	}
	return []*Device{c.device}, nil
}

func (c *TestClient) UpdateDevice(id string, _ *Info) (*Device, error) {
	if !c.connected {
		return nil, &ConnectionError{Reason: "not connected"}
	}
	if id != testDeviceID {
		return nil, &SyncError{Reason: "device " + id + " is not on the account"}
	}
	return c.device, nil
}

func (c *TestClient) Devices() []*Device {
	if c.device == nil {
		return nil
	}
	return []*Device{c.device}
}

func (c *TestClient) Device(id string) (*Device, bool) {
	if c.device == nil || id != testDeviceID {
		return nil, false
	}
	return c.device, true
}

func buildTestDevice() (*Device, error) {
	pool, err := ParsePool(json.RawMessage(testPoolData))
	if err != nil {
		return nil, err
	}
	dev := &Device{
		Info: &Info{
			Username:           "brager2mqtt",
			DevID:              testDeviceID,
			DistrGroup:         "ht",
			IDPermGroup:        1,
			PermissionsEnabled: true,
			Accepted:           true,
			Verified:           true,
			ProducerCode:       67,
		},
		Pool: pool,
		Tasks: []Task{
			{ID: 1, Type: "A", State: 2, Nr: 0, Value: 1, Name: "test task"},
		},
		Alarms: []Alarm{
			{Name: "ERROR_BRAK_PALIWA", Value: false, Timestamp: 1661866800},
		},
	}
	if err := dev.RefreshStatus(); err != nil {
		return nil, err
	}
	return dev, nil
}
