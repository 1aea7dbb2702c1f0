package bragerconnect

// Presence is the tri-state result of probing a feature gate field.
type Presence int

const (
	PresenceAbsent   Presence = 0
	PresenceActive   Presence = 1
	PresenceInactive Presence = 3
)

// PresenceOf classifies a gate status word. Bit 1 marks the feature as
// not installed, bit 2 as installed but switched off.
func PresenceOf(status int) Presence {
	if status&(1<<1) != 0 {
		return PresenceAbsent
	}
	if status&(1<<2) != 0 {
		return PresenceInactive
	}
	return PresenceActive
}

// BoilerType discriminates how fuel reaches the boiler.
type BoilerType int

const (
	BoilerOther BoilerType = iota
	BoilerFeeder
	BoilerPellet
)

func (t BoilerType) String() string {
	switch t {
	case BoilerFeeder:
		return "FEEDER"
	case BoilerPellet:
		return "PELLET"
	default:
		return "OTHER"
	}
}

// BoilerTypeOf reads the type discriminator fields from the pool.
// Pellet wins over feeder when both bits are set.
func BoilerTypeOf(pool *Pool) BoilerType {
	if s, ok := pool.Int(5, 39, FieldStatus); ok && s&1 == 1 {
		return BoilerPellet
	}
	if s, ok := pool.Int(5, 13, FieldStatus); ok && s&1 == 1 {
		return BoilerFeeder
	}
	return BoilerOther
}

// BoilerStatus is the decoded boiler state word.
type BoilerStatus int

const (
	BoilerStopped BoilerStatus = iota
	BoilerWorking
	BoilerManual
	BoilerError
	BoilerLighting
	BoilerDHWPriority
	BoilerTest
	BoilerDHWPreparation
	BoilerNoStatus
	BoilerDHWDisinfection
	BoilerNoFuel
)

func (s BoilerStatus) String() string {
	switch s {
	case BoilerStopped:
		return "STOPPED"
	case BoilerWorking:
		return "WORKING"
	case BoilerManual:
		return "MANUAL"
	case BoilerError:
		return "ERROR"
	case BoilerLighting:
		return "LIGHTING"
	case BoilerDHWPriority:
		return "DHW_PRIORITY"
	case BoilerTest:
		return "TEST"
	case BoilerDHWPreparation:
		return "DHW_PREPARATION"
	case BoilerNoStatus:
		return "NO_STATUS"
	case BoilerDHWDisinfection:
		return "DHW_DISINFECTION"
	case BoilerNoFuel:
		return "NO_FUEL"
	default:
		return "UNKNOWN"
	}
}

// boilerStatusBits maps status word bits to states in priority order:
// the first set bit wins.
var boilerStatusBits = []struct {
	bit    int
	status BoilerStatus
}{
	{0, BoilerWorking},
	{1, BoilerManual},
	{2, BoilerError},
	{3, BoilerLighting},
	{4, BoilerDHWPriority},
	{5, BoilerTest},
	{6, BoilerDHWPreparation},
	{7, BoilerNoStatus},
	{9, BoilerDHWDisinfection},
	{10, BoilerNoFuel},
}

// BoilerStatusOf classifies a boiler status word. Unrecognized words
// report false.
func BoilerStatusOf(status int) (BoilerStatus, bool) {
	if status == 0 {
		return BoilerStopped, true
	}
	for _, entry := range boilerStatusBits {
		if status&(1<<entry.bit) != 0 {
			return entry.status, true
		}
	}
	return 0, false
}

// PelletStatus is the feeding cycle state of a pellet burner.
type PelletStatus int

const (
	PelletStopped PelletStatus = iota
	PelletCleaning
	PelletLighting
	PelletWorking
	PelletPuttingOut
	PelletStop
	PelletSustaining
)

func (s PelletStatus) String() string {
	switch s {
	case PelletStopped:
		return "STOPPED"
	case PelletCleaning:
		return "CLEANING"
	case PelletLighting:
		return "LIGHTING"
	case PelletWorking:
		return "WORKING"
	case PelletPuttingOut:
		return "PUTTING_OUT"
	case PelletStop:
		return "STOP"
	case PelletSustaining:
		return "SUSTAINING"
	default:
		return "UNKNOWN"
	}
}

// PelletStatusOf extracts the three-bit cycle state starting at bit 8
// of the status word. A zero word or zero cycle state means stopped.
func PelletStatusOf(status int) (PelletStatus, bool) {
	sub := (status >> 8) & 0x7
	if status == 0 || sub == 0 {
		return PelletStopped, true
	}
	if sub >= 1 && sub <= 6 {
		return PelletStatus(sub), true
	}
	return 0, false
}

// TestStatus is the state of a switchable output (pump, feeder, fan,
// valve actuator).
type TestStatus int

const (
	TestOff       TestStatus = 0
	TestOn        TestStatus = 1
	TestAvailable TestStatus = 3
	TestClosing   TestStatus = 4
	TestError     TestStatus = 5
	TestZones     TestStatus = 6
	TestNoStatus  TestStatus = 7
)

func (s TestStatus) String() string {
	switch s {
	case TestOff:
		return "OFF"
	case TestOn:
		return "ON"
	case TestAvailable:
		return "AVAILABLE"
	case TestClosing:
		return "CLOSING"
	case TestError:
		return "ERROR"
	case TestZones:
		return "ZONES"
	case TestNoStatus:
		return "NO_STATUS"
	default:
		return "UNKNOWN"
	}
}

// testStatusBits maps output status bits to states in priority order.
var testStatusBits = []struct {
	bit    int
	status TestStatus
}{
	{2, TestClosing},
	{1, TestOn},
	{3, TestOn},
	{0, TestAvailable},
	{4, TestClosing},
	{5, TestError},
	{6, TestZones},
	{7, TestNoStatus},
}

// TestStatusOf classifies an output status word. Unrecognized words
// report false.
func TestStatusOf(status int) (TestStatus, bool) {
	if status == 0 {
		return TestOff, true
	}
	for _, entry := range testStatusBits {
		if status&(1<<entry.bit) != 0 {
			return entry.status, true
		}
	}
	return 0, false
}

// PumpRunning reports whether an output status word indicates that the
// attached pump is currently driven.
func PumpRunning(status int) bool {
	return status&(1<<1) != 0 || status&(1<<3) != 0
}

// RemoteEnabled reports whether the remote on/off bit is set in a
// status word.
func RemoteEnabled(status int) bool {
	return status&(1<<4) != 0
}

// SettingsAccess describes whether device settings may be changed
// through the service.
type SettingsAccess int

const (
	SettingsBlocked SettingsAccess = 0
	SettingsEnabled SettingsAccess = 1
	SettingsHidden  SettingsAccess = 2
)

func (a SettingsAccess) String() string {
	switch a {
	case SettingsBlocked:
		return "BLOCKED"
	case SettingsEnabled:
		return "ENABLED"
	case SettingsHidden:
		return "HIDDEN"
	default:
		return "UNKNOWN"
	}
}

// SettingsAccessOf reads the settings lock word from the pool.
func SettingsAccessOf(pool *Pool) SettingsAccess {
	status, _ := pool.Int(6, 0, FieldStatus)
	if status&(1<<0) != 0 {
		return SettingsHidden
	}
	if status&(1<<1) != 0 {
		return SettingsBlocked
	}
	return SettingsEnabled
}

// ParamAccessOf classifies a single parameter's access word: hidden
// beats blocked beats available.
func ParamAccessOf(status int) SettingsAccess {
	if status&(1<<0) != 0 {
		return SettingsHidden
	}
	if status&(1<<1) != 0 {
		return SettingsBlocked
	}
	return SettingsEnabled
}

// FuelLevelOf reads the measured fuel level from the pool. Devices
// without the sensor report false.
func FuelLevelOf(pool *Pool) (float64, bool) {
	return pool.Float(6, 34, FieldValue)
}
