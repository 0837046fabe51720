package config

import (
	"strings"
	"testing"
)

func TestLoadBytesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(""))
	if err != nil {
		t.Fatalf("LoadBytes() error: %v", err)
	}
	if cfg.Bind != DefaultBind {
		t.Errorf("Bind = %q, want %q", cfg.Bind, DefaultBind)
	}
	if cfg.LoopIntervalMS != DefaultLoopIntervalMS {
		t.Errorf("LoopIntervalMS = %d, want %d", cfg.LoopIntervalMS, DefaultLoopIntervalMS)
	}
	if cfg.Workspace != "." {
		t.Errorf("Workspace = %q, want .", cfg.Workspace)
	}
	if cfg.Journal.Driver != "sqlite" {
		t.Errorf("Journal.Driver = %q, want sqlite", cfg.Journal.Driver)
	}
	if cfg.Journal.Database == "" {
		t.Error("Journal.Database should default to the home journal path")
	}
}

func TestLoadBytesFullConfig(t *testing.T) {
	yaml := `
workspace: /tmp/agent
bind: 0.0.0.0:9000
log_level: debug
loop_interval_ms: 50
plugin_routing: true
sensors:
  - name: inbox
    sensitivity_score: 95
    ingress: directory
    directory: /tmp/inbox
actuators:
  - name: shell
    kind: internal
    action_kind: shell
    policy:
      denylist: [shell]
      rate_limit:
        max: 3
        period: hour
`
	cfg, err := LoadBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadBytes() error: %v", err)
	}
	if cfg.Bind != "0.0.0.0:9000" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.LoopIntervalMS != 50 {
		t.Errorf("LoopIntervalMS = %d, want 50", cfg.LoopIntervalMS)
	}
	if !cfg.PluginRouting {
		t.Error("PluginRouting should be true")
	}

	if len(cfg.Sensors) != 1 {
		t.Fatalf("got %d sensors, want 1", len(cfg.Sensors))
	}
	s, err := cfg.Sensors[0].ToSensor()
	if err != nil {
		t.Fatalf("ToSensor() error: %v", err)
	}
	if s.SensitivityScore != 95 {
		t.Errorf("SensitivityScore = %d, want 95", s.SensitivityScore)
	}
	if string(s.Ingress.Mode) != "directory" || s.Ingress.Directory != "/tmp/inbox" {
		t.Errorf("Ingress = %+v", s.Ingress)
	}

	if len(cfg.Actuators) != 1 {
		t.Fatalf("got %d actuators, want 1", len(cfg.Actuators))
	}
	a, err := cfg.Actuators[0].ToActuator()
	if err != nil {
		t.Fatalf("ToActuator() error: %v", err)
	}
	if !a.Policy.Denies("shell") {
		t.Error("denylist not carried over")
	}
	if a.Policy.RateLimit == nil || a.Policy.RateLimit.Max != 3 {
		t.Errorf("RateLimit = %+v", a.Policy.RateLimit)
	}
}

func TestLoadBytesEnvExpansion(t *testing.T) {
	t.Setenv("LOOPER_TEST_BIND", "10.0.0.1:8000")

	cfg, err := LoadBytes([]byte("bind: ${LOOPER_TEST_BIND:-127.0.0.1:1}\nworkspace: ${LOOPER_TEST_MISSING:-/fallback}\n"))
	if err != nil {
		t.Fatalf("LoadBytes() error: %v", err)
	}
	if cfg.Bind != "10.0.0.1:8000" {
		t.Errorf("Bind = %q, want env value", cfg.Bind)
	}
	if cfg.Workspace != "/fallback" {
		t.Errorf("Workspace = %q, want default fallback", cfg.Workspace)
	}
}

func TestLoadBytesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "conflicting policy lists",
			yaml: "actuators:\n  - name: shell\n    kind: internal\n    action_kind: shell\n    policy:\n      allowlist: [shell]\n      denylist: [chat]\n",
			want: "allowlist and denylist",
		},
		{
			name: "bad rate period",
			yaml: "actuators:\n  - name: shell\n    kind: internal\n    action_kind: shell\n    policy:\n      rate_limit:\n        max: 1\n        period: decade\n",
			want: "period",
		},
		{
			name: "sensor out of range sensitivity",
			yaml: "sensors:\n  - name: inbox\n    sensitivity_score: 250\n",
			want: "sensitivity",
		},
		{
			name: "unknown actuator kind",
			yaml: "actuators:\n  - name: x\n    kind: quantum\n",
			want: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "sqlite path",
			cfg:  DatabaseConfig{Driver: "sqlite", Database: "/tmp/looper.db"},
			want: "/tmp/looper.db",
		},
		{
			name: "postgres with credentials",
			cfg: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432, Database: "looper",
				Username: "agent", Password: "secret", SSLMode: "disable",
			},
			want: "host=db port=5432 dbname=looper user=agent password=secret sslmode=disable",
		},
		{
			name: "mysql without credentials",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Database: "looper"},
			want: "tcp(db:3306)/looper",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDatabaseConfigDriverNameAndDialect(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite"}
	if got := cfg.DriverName(); got != "sqlite3" {
		t.Errorf("DriverName() = %q, want sqlite3", got)
	}
	cfg = DatabaseConfig{Driver: "sqlite3"}
	if got := cfg.Dialect(); got != "sqlite" {
		t.Errorf("Dialect() = %q, want sqlite", got)
	}
}
