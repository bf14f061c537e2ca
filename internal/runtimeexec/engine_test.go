package runtimeexec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/animus-labs/smsc-go/internal/descriptor"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

func script(t *testing.T, dir, name, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func TestProgramExecutor_Success(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	script(t, dir, "engine.sh", `pwd > ran_in.txt; echo "Program Mohid Water successfully terminated"`)

	e, err := NewProgramExecutor("engine", Program{Dir: dir, Executable: "engine.sh"})
	if err != nil {
		t.Fatalf("NewProgramExecutor() err=%v", err)
	}
	obs, err := e.Run(context.Background(), work)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if obs.Status != StatusSucceeded {
		t.Fatalf("Status=%q", obs.Status)
	}
	if _, err := os.Stat(filepath.Join(work, "ran_in.txt")); err != nil {
		t.Fatalf("engine did not run in work dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, defaultLogName)); err != nil {
		t.Fatalf("log not captured: %v", err)
	}
}

func TestProgramExecutor_ExitZeroWithoutPhraseFails(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "engine.sh", `echo "stopped early"; exit 0`)

	e, _ := NewProgramExecutor("engine", Program{Dir: dir, Executable: "engine.sh"})
	obs, err := e.Run(context.Background(), dir)
	if simerr.KindOf(err) != simerr.KindEngineFailure {
		t.Fatalf("Run() err=%v, want engine failure", err)
	}
	if obs.Status != StatusFailed || obs.Details["exit_code"] != 0 {
		t.Fatalf("obs=%+v", obs)
	}
}

func TestProgramExecutor_AbsentLogFails(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "engine.sh", `echo "Program Mohid Water successfully terminated"; rm -f `+defaultLogName)

	e, _ := NewProgramExecutor("engine", Program{Dir: dir, Executable: "engine.sh"})
	obs, err := e.Run(context.Background(), dir)
	if simerr.KindOf(err) != simerr.KindEngineFailure {
		t.Fatalf("Run() err=%v, want engine failure", err)
	}
	if obs.Status != StatusFailed || !strings.Contains(obs.Message, "log absent") {
		t.Fatalf("obs=%+v", obs)
	}
}

func TestProgramExecutor_NonZeroExitWithPhraseSucceeds(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "engine.sh", `echo "successfully terminated"; exit 3`)

	e, _ := NewProgramExecutor("engine", Program{Dir: dir, Executable: "engine.sh"})
	obs, err := e.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if obs.Details["exit_code"] != 3 {
		t.Fatalf("exit_code=%v, want 3", obs.Details["exit_code"])
	}
}

func TestProgramExecutor_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "engine.sh", `echo successfully terminated`)

	e, _ := NewProgramExecutor("engine", Program{Dir: dir, Executable: "engine.sh", RequiredFiles: []string{"zlib1.dll"}})
	_, err := e.Run(context.Background(), dir)
	if simerr.InputOf(err) != simerr.InputEngine {
		t.Fatalf("Run() err=%v, want missing engine input", err)
	}
}

func TestProgramExecutor_CancelledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "engine.sh", `touch started`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := NewProgramExecutor("engine", Program{Dir: dir, Executable: "engine.sh"})
	if _, err := e.Run(ctx, dir); err == nil {
		t.Fatalf("Run() expected context error")
	}
	if _, err := os.Stat(filepath.Join(dir, "started")); err == nil {
		t.Fatalf("engine launched despite cancelled context")
	}
}

func TestToolRunner_WritesActionFiles(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "tool.sh", `cat ConvertToHDF5Action.dat; echo successfully terminated`)

	e, _ := NewProgramExecutor("merger", Program{Dir: dir, Executable: "tool.sh"})
	action := descriptor.GlueAction("/out/level1-20240610T0000.hdf5", "/in/HD.hdf5", "/in/WP.hdf5")
	if err := NewToolRunner(e).Apply(context.Background(), action); err != nil {
		t.Fatalf("Apply() err=%v", err)
	}
	nomfich, err := descriptor.ReadFile(filepath.Join(dir, "nomfich.dat"))
	if err != nil {
		t.Fatalf("read nomfich: %v", err)
	}
	if v, _ := descriptor.Lookup(nomfich, "IN_MODEL"); v != descriptor.ActionFileName {
		t.Fatalf("IN_MODEL=%q", v)
	}
	log, _ := os.ReadFile(filepath.Join(dir, defaultLogName))
	if !strings.Contains(string(log), "GLUES HDF5 FILES") {
		t.Fatalf("tool did not see action file:\n%s", log)
	}
}

func TestParseInventory(t *testing.T) {
	raw := []byte("field temperature\ntime 2024 06 10 01 00 00\ntime 2024 06 10 00 00 00\n\nfield salinity\n")
	inv, err := ParseInventory(raw)
	if err != nil {
		t.Fatalf("ParseInventory() err=%v", err)
	}
	if len(inv.Instants) != 2 || inv.Instants[0].Hour() != 0 || inv.Instants[1].Hour() != 1 {
		t.Fatalf("instants=%v", inv.Instants)
	}
	if strings.Join(inv.Fields, ",") != "temperature,salinity" {
		t.Fatalf("fields=%v", inv.Fields)
	}
	if _, err := ParseInventory([]byte("depth 3\n")); err == nil {
		t.Fatalf("ParseInventory() expected error on unknown kind")
	}
}

func TestCommandInventory(t *testing.T) {
	dir := t.TempDir()
	script(t, dir, "inv.sh", `echo "time 2024 06 10 00 00 00"; echo "field $1"`)

	inv, err := NewCommandInventory(filepath.Join(dir, "inv.sh"))
	if err != nil {
		t.Fatalf("NewCommandInventory() err=%v", err)
	}
	got, err := inv.Inventory(context.Background(), "velocity")
	if err != nil {
		t.Fatalf("Inventory() err=%v", err)
	}
	if len(got.Instants) != 1 || len(got.Fields) != 1 || got.Fields[0] != "velocity" {
		t.Fatalf("Inventory()=%+v", got)
	}
}
