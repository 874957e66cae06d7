package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// TimeLayout 接口和备份文件中使用的时间格式
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp 以 "2006-01-02 15:04:05" 格式序列化的时间类型
type Timestamp time.Time

// Now 当前时间
func Now() Timestamp {
	return Timestamp(time.Now().Truncate(time.Second))
}

// MarshalJSON 实现了自定义时间类型的 JSON 编组
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return sonic.Marshal(time.Time(t).Format(TimeLayout))
}

// UnmarshalJSON 接受 "2006-01-02 15:04:05"、RFC3339 或 null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*t = Timestamp(v)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp: %q", s)
}

// Value 实现 driver.Valuer
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return time.Time(t), nil
}

// Scan 实现了 sql.Scanner 接口，用于从数据库读取数据到 Timestamp
func (t *Timestamp) Scan(v interface{}) error {
	if v == nil {
		*t = Timestamp{}
		return nil
	}
	switch vt := v.(type) {
	case time.Time:
		*t = Timestamp(vt)
	case string:
		return t.scanString(vt)
	case []byte:
		return t.scanString(string(vt))
	default:
		return fmt.Errorf("invalid type for timestamp: %T", v)
	}
	return nil
}

func (t *Timestamp) scanString(s string) error {
	v, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return err
	}
	*t = Timestamp(v)
	return nil
}

func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
