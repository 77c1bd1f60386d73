package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ProgramTypes is stored as a JSON text column.
type ProgramTypes []ProgramType

// Packages is stored as a JSON text column.
type Packages []ClassPackage

// ProgressHistory is stored as a JSON text column.
type ProgressHistory []SkillProgress

// StudentStatuses is stored as a JSON text column.
type StudentStatuses []StudentSessionStatus

// StringList is stored as a JSON text column.
type StringList []string

func (p ProgramTypes) Value() (driver.Value, error)    { return jsonValue(p) }
func (p *ProgramTypes) Scan(src interface{}) error     { return jsonScan(src, p) }
func (p Packages) Value() (driver.Value, error)        { return jsonValue(p) }
func (p *Packages) Scan(src interface{}) error         { return jsonScan(src, p) }
func (p ProgressHistory) Value() (driver.Value, error) { return jsonValue(p) }
func (p *ProgressHistory) Scan(src interface{}) error  { return jsonScan(src, p) }
func (s StudentStatuses) Value() (driver.Value, error) { return jsonValue(s) }
func (s *StudentStatuses) Scan(src interface{}) error  { return jsonScan(src, s) }
func (s StringList) Value() (driver.Value, error)      { return jsonValue(s) }
func (s *StringList) Scan(src interface{}) error       { return jsonScan(src, s) }

// jsonValue always writes an array so that empty collections never become NULL.
func jsonValue[T any](v []T) (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func jsonScan(src interface{}, dest interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
