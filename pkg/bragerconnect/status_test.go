package bragerconnect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func poolFromJSON(t *testing.T, data string) *Pool {
	t.Helper()
	pool, err := ParsePool(json.RawMessage(data))
	if err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestPresenceOf(t *testing.T) {
	assert.Equal(t, PresenceActive, PresenceOf(0))
	assert.Equal(t, PresenceActive, PresenceOf(1))
	assert.Equal(t, PresenceAbsent, PresenceOf(1<<1))
	assert.Equal(t, PresenceInactive, PresenceOf(1<<2))
	// The absent bit wins over the inactive bit.
	assert.Equal(t, PresenceAbsent, PresenceOf(1<<1|1<<2))
}

func TestBoilerStatusOf(t *testing.T) {
	status, ok := BoilerStatusOf(0)
	assert.True(t, ok)
	assert.Equal(t, BoilerStopped, status)

	status, ok = BoilerStatusOf(1)
	assert.True(t, ok)
	assert.Equal(t, BoilerWorking, status)

	// Lower bits win when several are set.
	status, ok = BoilerStatusOf(1 | 1<<4)
	assert.True(t, ok)
	assert.Equal(t, BoilerWorking, status)

	status, ok = BoilerStatusOf(1 << 10)
	assert.True(t, ok)
	assert.Equal(t, BoilerNoFuel, status)

	// Bit 8 carries no state.
	_, ok = BoilerStatusOf(1 << 8)
	assert.False(t, ok)
}

func TestTestStatusOf(t *testing.T) {
	status, ok := TestStatusOf(0)
	assert.True(t, ok)
	assert.Equal(t, TestOff, status)

	// Bit 2 outranks bit 1.
	status, ok = TestStatusOf(1<<2 | 1<<1)
	assert.True(t, ok)
	assert.Equal(t, TestClosing, status)

	status, ok = TestStatusOf(1 << 1)
	assert.True(t, ok)
	assert.Equal(t, TestOn, status)

	status, ok = TestStatusOf(1 << 0)
	assert.True(t, ok)
	assert.Equal(t, TestAvailable, status)

	status, ok = TestStatusOf(1 << 6)
	assert.True(t, ok)
	assert.Equal(t, TestZones, status)

	_, ok = TestStatusOf(1 << 8)
	assert.False(t, ok)
}

func TestPelletStatusOf(t *testing.T) {
	status, ok := PelletStatusOf(0)
	assert.True(t, ok)
	assert.Equal(t, PelletStopped, status)

	// A nonzero word with a zero cycle state is still stopped.
	status, ok = PelletStatusOf(1)
	assert.True(t, ok)
	assert.Equal(t, PelletStopped, status)

	status, ok = PelletStatusOf(1 << 8)
	assert.True(t, ok)
	assert.Equal(t, PelletCleaning, status)

	status, ok = PelletStatusOf(3 << 8)
	assert.True(t, ok)
	assert.Equal(t, PelletWorking, status)

	status, ok = PelletStatusOf(6 << 8)
	assert.True(t, ok)
	assert.Equal(t, PelletSustaining, status)

	_, ok = PelletStatusOf(7 << 8)
	assert.False(t, ok)
}

func TestBoilerTypeOf(t *testing.T) {
	pellet := poolFromJSON(t, `{"P5":{"s39":1,"s13":1}}`)
	assert.Equal(t, BoilerPellet, BoilerTypeOf(pellet))

	feeder := poolFromJSON(t, `{"P5":{"s13":1}}`)
	assert.Equal(t, BoilerFeeder, BoilerTypeOf(feeder))

	other := poolFromJSON(t, `{"P5":{"s13":2}}`)
	assert.Equal(t, BoilerOther, BoilerTypeOf(other))
}

func TestSettingsAccessOf(t *testing.T) {
	assert.Equal(t, SettingsEnabled, SettingsAccessOf(poolFromJSON(t, `{"P6":{"s0":0}}`)))
	assert.Equal(t, SettingsHidden, SettingsAccessOf(poolFromJSON(t, `{"P6":{"s0":1}}`)))
	assert.Equal(t, SettingsBlocked, SettingsAccessOf(poolFromJSON(t, `{"P6":{"s0":2}}`)))
}

func TestFuelLevelOf(t *testing.T) {
	level, ok := FuelLevelOf(poolFromJSON(t, `{"P6":{"v34":78.5}}`))
	assert.True(t, ok)
	assert.Equal(t, 78.5, level)

	_, ok = FuelLevelOf(poolFromJSON(t, `{"P6":{"s0":0}}`))
	assert.False(t, ok)
}

func TestDecodeStatusRequiresCorePools(t *testing.T) {
	_, err := DecodeStatus(poolFromJSON(t, `{"P4":{"v0":61}}`))
	var dataErr *DataError
	assert.ErrorAs(t, err, &dataErr)

	_, err = DecodeStatus(nil)
	assert.ErrorAs(t, err, &dataErr)
}

func TestDecodeStatusGating(t *testing.T) {
	pool := poolFromJSON(t, `{
		"P4": {
			"s0": 1, "v0": 61.5,
			"s1": 2, "v1": 40,
			"s2": 4, "v2": 45,
			"s28": 1, "v28": 70,
			"s25": 4, "v25": 30
		},
		"P5": {"s0": 1}
	}`)
	status, err := DecodeStatus(pool)
	assert.NoError(t, err)

	// Active boiler gate exposes the temperature.
	field, ok := status.Field(4, 0)
	assert.True(t, ok)
	assert.Equal(t, 61.5, field.Value)

	// Absent return circuit stays hidden.
	_, ok = status.Field(4, 1)
	assert.False(t, ok)

	// Installed but inactive DHW stays hidden too.
	_, ok = status.Field(4, 2)
	assert.False(t, ok)

	// Pump is active, its inactive sub-gate is not.
	_, ok = status.Field(4, 28)
	assert.True(t, ok)
	_, ok = status.Field(4, 25)
	assert.False(t, ok)

	// Active boiler decodes the boiler state word.
	field, ok = status.Field(5, 0)
	assert.True(t, ok)
	assert.Equal(t, BoilerWorking, field.Value)
}

func TestDecodeStatusExternalTemperature(t *testing.T) {
	numeric := poolFromJSON(t, `{"P4":{"v4":-2.5},"P5":{"s0":0}}`)
	status, err := DecodeStatus(numeric)
	assert.NoError(t, err)
	field, ok := status.Field(4, 4)
	assert.True(t, ok)
	assert.Equal(t, -2.5, field.Value)

	// Non-numeric sensor readings are skipped.
	text := poolFromJSON(t, `{"P4":{"v4":"n/a"},"P5":{"s0":0}}`)
	status, err = DecodeStatus(text)
	assert.NoError(t, err)
	_, ok = status.Field(4, 4)
	assert.False(t, ok)
}

func TestDecodeStatusBoilerPower(t *testing.T) {
	// Old firmware reports tenths of kW.
	old := poolFromJSON(t, `{"P4":{"s14":1,"v14":123},"P5":{"s0":0}}`)
	status, err := DecodeStatus(old)
	assert.NoError(t, err)
	field, ok := status.Field(4, 14)
	assert.True(t, ok)
	assert.Equal(t, 12.3, field.Value)
	assert.Equal(t, "kW", field.Unit)

	// The P6.152 marker switches to whole kW.
	marked := poolFromJSON(t, `{"P4":{"s14":1,"v14":123},"P5":{"s0":0},"P6":{"s152":1}}`)
	status, err = DecodeStatus(marked)
	assert.NoError(t, err)
	field, ok = status.Field(4, 14)
	assert.True(t, ok)
	assert.Equal(t, float64(123), field.Value)
}

func TestDecodeStatusFuelConsumed(t *testing.T) {
	pool := poolFromJSON(t, `{
		"P4": {"s14": 1, "s61": 1, "v61": -500, "v62": 2},
		"P5": {"s0": 0}
	}`)
	status, err := DecodeStatus(pool)
	assert.NoError(t, err)

	// Low half rebased from -500 to 65036, plus two high wraps.
	field, ok := status.Field(4, 61)
	assert.True(t, ok)
	assert.Equal(t, 196.108, field.Value)
}

func TestDecodeStatusPelletCycle(t *testing.T) {
	pool := poolFromJSON(t, `{
		"P4": {"s0": 1, "v0": 61.5},
		"P5": {"s0": 1, "s5": 768, "s39": 1}
	}`)
	status, err := DecodeStatus(pool)
	assert.NoError(t, err)

	field, ok := status.Field(5, 5)
	assert.True(t, ok)
	assert.Equal(t, PelletWorking, field.Value)
}

func TestDecodeStatusValveBanks(t *testing.T) {
	pool := poolFromJSON(t, `{
		"P4": {"s5": 1, "v5": 38.5, "s9": 2},
		"P5": {"s0": 0, "s20": 2, "s21": 0}
	}`)
	status, err := DecodeStatus(pool)
	assert.NoError(t, err)

	// First valve bank is active.
	field, ok := status.Field(4, 5)
	assert.True(t, ok)
	assert.Equal(t, 38.5, field.Value)

	field, ok = status.Field(5, 20)
	assert.True(t, ok)
	assert.Equal(t, TestOn, field.Value)

	field, ok = status.Field(5, 21)
	assert.True(t, ok)
	assert.Equal(t, TestOff, field.Value)

	// Second bank's gate is absent.
	_, ok = status.Field(4, 9)
	assert.False(t, ok)
}

func TestDecodeStatusNamesAndUnits(t *testing.T) {
	pool := poolFromJSON(t, `{"P4":{"s0":1,"v0":61.5,"u0":1},"P5":{"s0":0}}`)
	pool.Units = map[int]string{1: "°C"}
	pool.Names = map[int]map[int]string{4: {0: "Boiler temperature"}}

	status, err := DecodeStatus(pool)
	assert.NoError(t, err)

	field, ok := status.Field(4, 0)
	assert.True(t, ok)
	assert.Equal(t, "Boiler temperature", field.Name)
	assert.Equal(t, "°C", field.Unit)
}
