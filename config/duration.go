package config

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Duration 是支持 JSON 字符串解析的 time.Duration 包装类型
//
// 支持字符串形式（"15s", "250ms"）和数字形式。
// 数字按秒解释，可以带小数，与旧版配置文件中以秒为单位的 *_interval 字段兼容。
//
//	{"keepalive_interval": "15s"}
//	{"keepalive_interval": 15}
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		duration, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(duration)
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err == nil {
		if seconds < 0 || seconds > math.MaxInt64/float64(time.Second) {
			return fmt.Errorf("duration out of range: %v seconds", seconds)
		}
		*d = Duration(seconds * float64(time.Second))
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"15s\") or number of seconds")
}

// MarshalJSON 实现 json.Marshaler 接口，输出为人类可读的字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
