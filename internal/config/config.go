// Package config loads the scheduler configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Recognized scheduler policies.
const (
	PolicyClassic      = "classic"
	PolicyChoreography = "choreography"
)

// DefaultSchedName names the config file used when none is given.
const DefaultSchedName = "default"

// EnvPrefix prefixes environment overrides, e.g. CYBER_SCHEDULER_CONF_POLICY.
const EnvPrefix = "CYBER"

// Config is the root of a scheduler config file.
type Config struct {
	SchedulerConf SchedulerConf `mapstructure:"scheduler_conf" yaml:"scheduler_conf"`
}

// SchedulerConf selects the policy and sizes the processor pool.
type SchedulerConf struct {
	// Policy is "classic" or "choreography". Anything else means classic.
	Policy string `mapstructure:"policy" yaml:"policy"`
	// ProcessorNum is the fixed number of processors.
	ProcessorNum int `mapstructure:"processor_num" yaml:"processor_num"`
	// Tasks carries per-task placement hints, looked up by task name.
	Tasks []TaskConf `mapstructure:"tasks" yaml:"tasks,omitempty"`
}

// TaskConf holds placement hints for one named task.
type TaskConf struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Prio orders routines inside a processor; higher runs first.
	Prio uint32 `mapstructure:"prio" yaml:"prio,omitempty"`
	// Processor pins the task under the choreography policy.
	Processor *int `mapstructure:"processor" yaml:"processor,omitempty"`
}

// Task returns the hints for name.
func (c SchedulerConf) Task(name string) (TaskConf, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskConf{}, false
}

// Default returns the configuration used when no file can be read.
func Default() *Config {
	return &Config{
		SchedulerConf: SchedulerConf{
			Policy:       PolicyClassic,
			ProcessorNum: runtime.NumCPU(),
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("scheduler_conf.policy", defaults.SchedulerConf.Policy)
	v.SetDefault("scheduler_conf.processor_num", defaults.SchedulerConf.ProcessorNum)
}

// WorkRoot returns $CYBER_PATH, or the current directory.
func WorkRoot() string {
	if root := os.Getenv("CYBER_PATH"); root != "" {
		return root
	}
	return "."
}

// Path returns the config file for schedName under workRoot.
func Path(workRoot, schedName string) string {
	if schedName == "" {
		schedName = DefaultSchedName
	}
	return filepath.Join(workRoot, "conf", schedName+".yaml")
}

// Load reads <workRoot>/conf/<schedName>.yaml. Environment variables with the
// CYBER_ prefix override file values.
func Load(workRoot, schedName string) (*Config, error) {
	return LoadFile(Path(workRoot, schedName))
}

// LoadFile reads the config at path; the format follows the file extension.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scheduler config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse scheduler config %s: %w", path, err)
	}
	return &cfg, nil
}

// Dump writes cfg as YAML.
func Dump(cfg *Config, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
