package bragerconnect

import (
	"encoding/json"
	"strconv"
)

// Field kinds as they appear on the wire: every pool field key is a
// single kind letter followed by the field number, e.g. "v0", "s14".
const (
	FieldValue  byte = 'v'
	FieldStatus byte = 's'
	FieldUnit   byte = 'u'
	FieldMin    byte = 'n'
	FieldMax    byte = 'x'
)

// Pool holds one device's register pools, indexed by pool number,
// field number and kind letter. Values are kept as decoded JSON
// (float64, string or nil).
type Pool struct {
	data map[int]map[int]map[byte]any

	// Units maps the service's numeric unit ids to display symbols.
	// The service ships these as per-language assets; callers that
	// have them can attach the table here, lookups fall back to the
	// empty string otherwise.
	Units map[int]string

	// Names maps pool number and field number to a display name, same
	// per-language provenance as Units.
	Names map[int]map[int]string
}

// PoolParam is one incremental pool change as delivered by the
// service, e.g. {"pool":"P4","field":"v0","value":61}.
type PoolParam struct {
	Pool  string `json:"pool"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ParsePool builds a Pool from an s_getAllPoolData reply, shaped as
// {"P4":{"v0":61,"s0":5,...},...}.
func ParsePool(raw json.RawMessage) (*Pool, error) {
	var pools map[string]map[string]any
	if err := json.Unmarshal(raw, &pools); err != nil {
		return nil, &DataError{Reason: "parsing pool data", Err: err}
	}
	if len(pools) == 0 {
		return nil, &DataError{Reason: "pool data is empty"}
	}

	p := &Pool{data: map[int]map[int]map[byte]any{}}
	for poolKey, fields := range pools {
		poolNo, err := parsePoolKey(poolKey)
		if err != nil {
			return nil, err
		}
		for fieldKey, value := range fields {
			kind, fieldNo, err := parseFieldKey(fieldKey)
			if err != nil {
				return nil, err
			}
			p.set(poolNo, fieldNo, kind, value)
		}
	}
	return p, nil
}

// parsePoolKey parses a pool key like "P4".
func parsePoolKey(key string) (int, error) {
	if len(key) < 2 {
		return 0, &DataError{Reason: "invalid pool key " + strconv.Quote(key)}
	}
	no, err := strconv.Atoi(key[1:])
	if err != nil {
		return 0, &DataError{Reason: "invalid pool key " + strconv.Quote(key), Err: err}
	}
	return no, nil
}

// parseFieldKey parses a field key like "v0" into its kind letter and
// field number.
func parseFieldKey(key string) (byte, int, error) {
	if len(key) < 2 {
		return 0, 0, &DataError{Reason: "invalid field key " + strconv.Quote(key)}
	}
	no, err := strconv.Atoi(key[1:])
	if err != nil {
		return 0, 0, &DataError{Reason: "invalid field key " + strconv.Quote(key), Err: err}
	}
	return key[0], no, nil
}

func (p *Pool) set(poolNo int, fieldNo int, kind byte, value any) {
	fields, ok := p.data[poolNo]
	if !ok {
		fields = map[int]map[byte]any{}
		p.data[poolNo] = fields
	}
	kinds, ok := fields[fieldNo]
	if !ok {
		kinds = map[byte]any{}
		fields[fieldNo] = kinds
	}
	kinds[kind] = value
}

// Merge applies incremental parameter changes on top of the pool.
func (p *Pool) Merge(params []PoolParam) error {
	if len(params) == 0 {
		return &DataError{Reason: "pool update is empty"}
	}
	for _, param := range params {
		if param.Pool == "" || param.Field == "" {
			return &DataError{Reason: "pool update entry is incomplete"}
		}
		poolNo, err := parsePoolKey(param.Pool)
		if err != nil {
			return err
		}
		kind, fieldNo, err := parseFieldKey(param.Field)
		if err != nil {
			return err
		}
		p.set(poolNo, fieldNo, kind, param.Value)
	}
	return nil
}

// Field returns the raw value of one pool field, or false when unset.
func (p *Pool) Field(poolNo int, fieldNo int, kind byte) (any, bool) {
	v, ok := p.data[poolNo][fieldNo][kind]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Int returns a pool field as an integer. Non-numeric and absent
// fields report false.
func (p *Pool) Int(poolNo int, fieldNo int, kind byte) (int, bool) {
	v, ok := p.Field(poolNo, fieldNo, kind)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Float returns a pool field as a float. Non-numeric and absent
// fields report false.
func (p *Pool) Float(poolNo int, fieldNo int, kind byte) (float64, bool) {
	v, ok := p.Field(poolNo, fieldNo, kind)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return f, true
}

// HasPool reports whether the given pool number is present at all.
func (p *Pool) HasPool(poolNo int) bool {
	return len(p.data[poolNo]) > 0
}

// Unit resolves the display symbol for a field's unit id via the
// attached Units table.
func (p *Pool) Unit(poolNo int, fieldNo int) string {
	no, ok := p.Int(poolNo, fieldNo, FieldUnit)
	if !ok {
		return ""
	}
	return p.Units[no]
}

// Name resolves a field's display name via the attached Names table.
func (p *Pool) Name(poolNo int, fieldNo int) string {
	return p.Names[poolNo][fieldNo]
}
