package bragerconnect

import "math"

// StatusField is one decoded datapoint: a measured value or a
// classified state, with the display name and unit resolved from the
// pool's language tables when available.
type StatusField struct {
	Name  string
	Value any
	Unit  string
}

// Status maps pool number and field number to decoded datapoints. Only
// fields whose feature gates are active are present.
type Status map[int]map[int]StatusField

func (s Status) put(poolNo int, fieldNo int, field StatusField) {
	fields, ok := s[poolNo]
	if !ok {
		fields = map[int]StatusField{}
		s[poolNo] = fields
	}
	fields[fieldNo] = field
}

// Field returns one decoded datapoint.
func (s Status) Field(poolNo int, fieldNo int) (StatusField, bool) {
	field, ok := s[poolNo][fieldNo]
	return field, ok
}

// miscOutputs are P5 output fields always probed regardless of any
// feature gate.
var miscOutputs = []int{1, 2, 3, 4, 5, 6, 14, 15, 16, 22, 24, 37, 38, 40, 49}

// burnerParams are the P4 value fields exposed while the burner gate
// is active, each behind its own gate.
var burnerParams = []int{3, 4, 8, 13, 14, 15, 16, 39, 40, 41, 42, 43, 56, 61}

// valveBanks lists the pool fields of each mixing valve circuit. The
// last bank is the extension module's first valve, which has no time
// zone block.
var valveBanks = []struct {
	mode         int // P6 working mode
	valve        int // P5 actuator output
	valvePump    int // P5 circuit pump output
	hysteresis   int // P6 setpoint hysteresis
	temperature  int // P4 measured temperature
	tempSetup    int // P6 setpoint, normal mode
	weatherSetup int // P6 setpoint, weather mode
	zonesStart   int // P12 first time zone field, -1 when absent
}{
	{52, 20, 21, 54, 5, 53, 130, 8},
	{79, 25, 26, 81, 9, 80, 131, 12},
	{91, 28, 29, 93, 10, 92, 132, 16},
	{103, 31, 32, 105, 11, 104, 133, 20},
	{115, 34, 35, 117, 12, 116, 134, 24},
	{305, 51, 52, 307, 46, 306, 318, -1},
}

// DecodeStatus walks the register pools and extracts the datapoints of
// every installed and active feature. Pools P4 and P5 must be present.
func DecodeStatus(pool *Pool) (Status, error) {
	if pool == nil || !pool.HasPool(4) || !pool.HasPool(5) {
		return nil, &DataError{Reason: "pool data lacks P4 or P5, cannot decode status"}
	}

	st := Status{}

	value := func(poolNo int, fieldNo int) {
		v, _ := pool.Field(poolNo, fieldNo, FieldValue)
		st.put(poolNo, fieldNo, StatusField{
			Name:  pool.Name(poolNo, fieldNo),
			Value: v,
			Unit:  pool.Unit(poolNo, fieldNo),
		})
	}
	// output probes an output status word and records its state when
	// the word classifies.
	output := func(poolNo int, fieldNo int) {
		s, ok := pool.Int(poolNo, fieldNo, FieldStatus)
		if !ok {
			return
		}
		ts, ok := TestStatusOf(s)
		if !ok {
			return
		}
		st.put(poolNo, fieldNo, StatusField{Name: pool.Name(poolNo, fieldNo), Value: ts})
	}
	// active probes a feature gate. Installed-but-inactive features
	// keep their fields hidden.
	active := func(poolNo int, fieldNo int) bool {
		s, ok := pool.Int(poolNo, fieldNo, FieldStatus)
		if !ok {
			return false
		}
		return PresenceOf(s) == PresenceActive
	}

	// external temperature sensor
	if _, ok := pool.Float(4, 4, FieldValue); ok {
		value(4, 4)
	}

	// external I/O module outputs
	for fieldNo := 72; fieldNo <= 76; fieldNo++ {
		output(5, fieldNo)
	}
	for _, fieldNo := range miscOutputs {
		output(5, fieldNo)
	}

	// boiler
	if active(4, 0) {
		value(4, 0)
		if active(4, 3) {
			value(4, 3)
		}
		if s, ok := pool.Int(5, 0, FieldStatus); ok {
			if bs, ok := BoilerStatusOf(s); ok {
				st.put(5, 0, StatusField{Name: pool.Name(5, 0), Value: bs})
			}
		}
		switch BoilerTypeOf(pool) {
		case BoilerPellet:
			if s, ok := pool.Int(5, 5, FieldStatus); ok {
				if ps, ok := PelletStatusOf(s); ok {
					st.put(5, 5, StatusField{Name: pool.Name(5, 5), Value: ps})
				}
			}
		case BoilerFeeder:
			output(5, 10)
			output(5, 13)
		}
		output(5, 11)
	}

	// burner
	if active(4, 14) {
		for _, par := range burnerParams {
			if !active(4, par) {
				continue
			}
			value(4, par)
			switch par {
			case 14:
				decodeBoilerPower(pool, st)
			case 61:
				decodeFuelConsumed(pool, st)
			}
		}
		output(5, 10)
	}

	// return circuit
	if active(4, 1) {
		value(4, 1)
		output(5, 12)
	}

	// buffer
	if active(4, 6) {
		value(4, 6)
		if active(4, 30) {
			value(4, 30)
		}
		output(5, 23)
	}

	// domestic hot water
	if active(4, 2) {
		value(4, 2)
		output(5, 11)
	}

	// mixing valves
	for _, bank := range valveBanks {
		if !active(4, bank.temperature) {
			continue
		}
		value(4, bank.temperature)
		output(5, bank.valve)
		output(5, bank.valvePump)
	}

	// circulation pump
	if active(4, 28) {
		value(4, 28)
		if active(4, 25) {
			value(4, 25)
		}
	}

	// room thermostat
	if active(17, 0) {
		value(17, 0)
	}

	return st, nil
}

// decodeBoilerPower rescales the raw P4.14 power reading. Newer
// firmware (gate word 31, or the P6.152 marker set) reports whole
// kilowatts, older firmware tenths.
func decodeBoilerPower(pool *Pool, st Status) {
	raw, ok := pool.Float(4, 14, FieldValue)
	if !ok {
		return
	}
	multiplier := 0.1
	gate, _ := pool.Int(4, 14, FieldStatus)
	marker, _ := pool.Int(6, 152, FieldStatus)
	if gate == 31 || marker != 0 {
		multiplier = 1.0
	}
	st.put(4, 14, StatusField{
		Name:  pool.Name(4, 14),
		Value: math.Round(raw*multiplier*10) / 10,
		Unit:  "kW",
	})
}

// decodeFuelConsumed combines the 16-bit counter halves P4.61/P4.62
// into total fuel burnt in tonnes. The low half is a signed register,
// negative readings wrapped and need rebasing.
func decodeFuelConsumed(pool *Pool, st Status) {
	low, ok := pool.Float(4, 61, FieldValue)
	if !ok {
		return
	}
	high, _ := pool.Float(4, 62, FieldValue)
	if low < 0 {
		low += 65536
	}
	total := (low + 65536*high) / 1000
	st.put(4, 61, StatusField{
		Name:  pool.Name(4, 61),
		Value: math.Round(total*1000) / 1000,
		Unit:  pool.Unit(4, 61),
	})
}
