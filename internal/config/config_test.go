package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConf(t *testing.T, root, name, body string) {
	t.Helper()
	dir := filepath.Join(root, "conf")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeConf(t, root, "planning", `
scheduler_conf:
  policy: choreography
  processor_num: 3
  tasks:
    - name: control
      prio: 10
      processor: 2
    - name: perception
      prio: 5
`)

	cfg, err := Load(root, "planning")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc := cfg.SchedulerConf
	if sc.Policy != PolicyChoreography {
		t.Errorf("Policy = %q, want %q", sc.Policy, PolicyChoreography)
	}
	if sc.ProcessorNum != 3 {
		t.Errorf("ProcessorNum = %d, want 3", sc.ProcessorNum)
	}

	control, ok := sc.Task("control")
	if !ok {
		t.Fatal("task control not found")
	}
	if control.Prio != 10 {
		t.Errorf("control.Prio = %d, want 10", control.Prio)
	}
	if control.Processor == nil || *control.Processor != 2 {
		t.Errorf("control.Processor = %v, want 2", control.Processor)
	}

	perception, ok := sc.Task("perception")
	if !ok {
		t.Fatal("task perception not found")
	}
	if perception.Processor != nil {
		t.Errorf("perception.Processor = %d, want unset", *perception.Processor)
	}

	if _, ok := sc.Task("planning"); ok {
		t.Error("unexpected hints for task planning")
	}
}

func TestLoad_DefaultsFillMissingKeys(t *testing.T) {
	root := t.TempDir()
	writeConf(t, root, DefaultSchedName, "scheduler_conf:\n  tasks: []\n")

	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default().SchedulerConf
	if cfg.SchedulerConf.Policy != want.Policy {
		t.Errorf("Policy = %q, want %q", cfg.SchedulerConf.Policy, want.Policy)
	}
	if cfg.SchedulerConf.ProcessorNum != want.ProcessorNum {
		t.Errorf("ProcessorNum = %d, want %d", cfg.SchedulerConf.ProcessorNum, want.ProcessorNum)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	root := t.TempDir()
	writeConf(t, root, DefaultSchedName, "scheduler_conf:\n  policy: classic\n")
	t.Setenv("CYBER_SCHEDULER_CONF_POLICY", PolicyChoreography)

	cfg, err := Load(root, DefaultSchedName)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SchedulerConf.Policy != PolicyChoreography {
		t.Errorf("Policy = %q, want env override %q", cfg.SchedulerConf.Policy, PolicyChoreography)
	}
}

func TestLoad_Errors(t *testing.T) {
	root := t.TempDir()
	if _, err := Load(root, "missing"); err == nil {
		t.Error("expected error for missing config")
	}

	writeConf(t, root, "broken", "scheduler_conf: [\n")
	if _, err := Load(root, "broken"); err == nil {
		t.Error("expected error for unparsable config")
	}
}

func TestWorkRoot(t *testing.T) {
	t.Setenv("CYBER_PATH", "/opt/cyber")
	if got := WorkRoot(); got != "/opt/cyber" {
		t.Errorf("WorkRoot() = %q, want /opt/cyber", got)
	}
	t.Setenv("CYBER_PATH", "")
	if got := WorkRoot(); got != "." {
		t.Errorf("WorkRoot() = %q, want .", got)
	}
}

func TestResolvePolicy(t *testing.T) {
	withPolicy := func(p string) *Config {
		cfg := Default()
		cfg.SchedulerConf.Policy = p
		return cfg
	}

	tests := []struct {
		name    string
		cfg     *Config
		loadErr error
		want    string
		warns   bool
	}{
		{"classic", withPolicy("classic"), nil, PolicyClassic, false},
		{"choreography", withPolicy("choreography"), nil, PolicyChoreography, false},
		{"unrecognized", withPolicy("fifo"), nil, PolicyClassic, true},
		{"case sensitive", withPolicy("Choreography"), nil, PolicyClassic, true},
		{"empty", withPolicy(""), nil, PolicyClassic, true},
		{"missing", nil, os.ErrNotExist, PolicyClassic, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			if got := ResolvePolicy(tt.cfg, tt.loadErr, logger); got != tt.want {
				t.Errorf("ResolvePolicy = %q, want %q", got, tt.want)
			}
			if warned := strings.Contains(buf.String(), "level=WARN"); warned != tt.warns {
				t.Errorf("warned = %v, want %v (log: %s)", warned, tt.warns, buf.String())
			}
		})
	}
}

func TestDump(t *testing.T) {
	p := 1
	cfg := &Config{SchedulerConf: SchedulerConf{
		Policy:       PolicyChoreography,
		ProcessorNum: 2,
		Tasks:        []TaskConf{{Name: "control", Prio: 3, Processor: &p}},
	}}

	var buf bytes.Buffer
	if err := Dump(cfg, &buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"scheduler_conf:", "policy: choreography", "processor_num: 2", "name: control", "processor: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump output missing %q:\n%s", want, out)
		}
	}

	// Round trip through the loader.
	root := t.TempDir()
	writeConf(t, root, "dumped", out)
	got, err := Load(root, "dumped")
	if err != nil {
		t.Fatalf("Load dumped: %v", err)
	}
	if got.SchedulerConf.Policy != PolicyChoreography || got.SchedulerConf.ProcessorNum != 2 {
		t.Errorf("round trip = %+v", got.SchedulerConf)
	}
}
