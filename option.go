package racer

import (
	"os"
	"time"

	"github.com/yaoapp/kun/log"
	"gopkg.in/yaml.v3"
)

// Option runtime option
type Option struct {
	Mode            string        `json:"mode,omitempty" yaml:"mode,omitempty"`                       // production or development, controls console.log output
	MonitorInterval time.Duration `json:"monitorInterval,omitempty" yaml:"monitorInterval,omitempty"` // heap watchdog sample interval, the default value is 10ms
	ScriptCacheSize int           `json:"scriptCacheSize,omitempty" yaml:"scriptCacheSize,omitempty"` // compiled script cache entries per context, the default value is 128
}

// LoadOption read an option from a YAML file
func LoadOption(file string) (*Option, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	option := &Option{}
	if err := yaml.Unmarshal(data, option); err != nil {
		return nil, err
	}

	option.Validate()
	return option, nil
}

// Validate the option
func (option *Option) Validate() {

	if option.Mode == "" || option.Mode != "development" {
		option.Mode = "production"
	}

	if option.MonitorInterval == 0 {
		option.MonitorInterval = 10 * time.Millisecond
	}

	if option.MonitorInterval < time.Millisecond {
		log.Warn("[racer] the minimum monitor interval is 1ms")
		option.MonitorInterval = time.Millisecond
	}

	if option.ScriptCacheSize <= 0 {
		option.ScriptCacheSize = 128
	}

	if option.ScriptCacheSize > 4096 {
		log.Warn("[racer] the maximum script cache size is 4096")
		option.ScriptCacheSize = 4096
	}
}
