package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonColumn marshals/unmarshals an arbitrary Go value through a JSONB
// column. The table stores currently marshal their raw/payload/metadata
// blobs with json.Marshal at each call site and do not use it.
type jsonColumn struct {
	dst any
}

func (j jsonColumn) Value() (driver.Value, error) {
	if j.dst == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j.dst)
}

func (j *jsonColumn) Scan(src any) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonColumn: unsupported scan source %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, j.dst)
}

func jsonOf(v any) jsonColumn { return jsonColumn{dst: v} }
