package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
opdate: "2024 06 10"
startime: 0
restart_weekday: sun
stagger: 10s
engine:
  dir: /opt/mohid
  executable: MohidWater.exe
  required_files: [MohidWater.exe]
tools:
  extractor: {dir: /opt/tools/extract, executable: HDF5Extractor.exe}
  merger: {dir: /opt/tools/merge, executable: Convert2Hdf5.exe}
  time_index: {program: h5times}
notify:
  mailto: [ops@example.org]
  from: sms@example.org
  host: smtp.example.org
forcing:
  keep: 5
  sources:
    - name: gfs
      publish_hour: 5.5
      dest_dir: /data/forcing
      forecast: 3
      urls: ["https://example.org/gfs/{{.Date.Format \"20060102\"}}.nc"]
forecast:
  hindcast: [2, 3]
  forecast: [1]
  domains: [/models/tagus/level1, /models/tagus/level2]
  domdts: [[60, 60, 60], [30, 30, 30]]
  generaldata: /models/tagus/GeneralData
  outdir: /srv/sms/forecast
  fsrch: [/data/forcing/gfs-*.nc]
  keepres: 7
  postops: true
  extdisk: [/mnt/nas, s3://archive/tagus]
`

func now() time.Time {
	return time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)
}

func TestParseAndValidate(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if err := cfg.Validate(now()); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if cfg.Stagger != 10*time.Second {
		t.Fatalf("Stagger=%v, want 10s", cfg.Stagger)
	}
	if cfg.Engine.CompletionPhrase != DefaultCompletionPhrase || cfg.Engine.Executable != "MohidWater.exe" {
		t.Fatalf("engine=%+v", cfg.Engine)
	}
	if cfg.Forecast.Name != "forecast" || !cfg.Forecast.UseLastFins() {
		t.Fatalf("forecast defaults not applied: %+v", cfg.Forecast)
	}
	if cfg.Forcing.Sources[0].Ext != ".nc" {
		t.Fatalf("source ext default=%q", cfg.Forcing.Sources[0].Ext)
	}
	opdate, err := cfg.OperationDate(now())
	if err != nil || !opdate.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("OperationDate()=%v err=%v", opdate, err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("engine:\n  dri: x\n")); err == nil {
		t.Fatalf("Parse() expected error for unknown key")
	}
}

func TestValidateAggregatesIssues(t *testing.T) {
	cfg, err := Parse([]byte(`
opdate: "2030 01 01"
forecast:
  domains: [/a/level1, /b/level1]
  postops: true
`))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	err = cfg.Validate(now())
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Validate() err=%T %v, want *ValidationError", err, err)
	}
	want := []string{"in the future", "engine.dir", "outdir is required", "duplicate domain", "tools.extractor"}
	joined := verr.Error()
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Fatalf("Validate() missing issue %q in %s", w, joined)
		}
	}
}

func TestOperationDateDefaultsToToday(t *testing.T) {
	got, err := Config{}.OperationDate(now())
	if err != nil {
		t.Fatalf("OperationDate() err=%v", err)
	}
	if !got.Equal(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("OperationDate()=%v", got)
	}
}

func TestRunRestart(t *testing.T) {
	cfg := Config{Restart: &PipelineConfig{Name: "restart"}, RestartWeekday: "Sunday"}
	sunday := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	if !cfg.RunRestart(sunday) || cfg.RunRestart(sunday.AddDate(0, 0, 1)) {
		t.Fatalf("RunRestart() weekday gating broken")
	}
	cfg.RestartWeekday = ""
	if !cfg.RunRestart(sunday.AddDate(0, 0, 1)) {
		t.Fatalf("RunRestart() should run every day without weekday")
	}
	if (Config{}).RunRestart(sunday) {
		t.Fatalf("RunRestart() without restart section")
	}
}

func TestLoadAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sms.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SMSC_OPDATE", "2024 06 11")
	t.Setenv("SMSC_SMTP_PASSWORD", "secret")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.OpDate != "2024 06 11" || cfg.Notify.Password != "secret" {
		t.Fatalf("env overrides not applied: opdate=%q", cfg.OpDate)
	}
}
