// Package runtimeexec launches the numerical engine and its conversion
// tools and judges their outcome from the captured log.
package runtimeexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/animus-labs/smsc-go/internal/simerr"
)

const (
	defaultLogName          = "mohid_stdout.dat"
	defaultCompletionPhrase = "successfully terminated"
)

// ProgramExecutor runs a Program and succeeds only when its log contains
// the completion phrase. The exit status is recorded but not trusted.
type ProgramExecutor struct {
	kind    string
	program Program
}

func NewProgramExecutor(kind string, program Program) (*ProgramExecutor, error) {
	program.Dir = strings.TrimSpace(program.Dir)
	program.Executable = strings.TrimSpace(program.Executable)
	if program.Dir == "" {
		return nil, errors.New("program dir is required")
	}
	if program.Executable == "" {
		return nil, errors.New("program executable is required")
	}
	if program.LogName == "" {
		program.LogName = defaultLogName
	}
	if program.CompletionPhrase == "" {
		program.CompletionPhrase = defaultCompletionPhrase
	}
	return &ProgramExecutor{kind: kind, program: program}, nil
}

func (e *ProgramExecutor) Kind() string {
	return e.kind
}

func (e *ProgramExecutor) Program() Program {
	return e.program
}

// CheckFiles verifies the executable and its required files exist.
func (e *ProgramExecutor) CheckFiles() error {
	files := append([]string{e.program.Executable}, e.program.RequiredFiles...)
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(e.program.Dir, f)
		}
		if _, err := os.Stat(path); err != nil {
			return simerr.MissingInput(simerr.InputEngine, "%s file missing: %s", e.kind, path)
		}
	}
	return nil
}

// Run blocks until the program exits. ctx is only consulted before the
// launch; a started run is never interrupted.
func (e *ProgramExecutor) Run(ctx context.Context, workDir string) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	if err := e.CheckFiles(); err != nil {
		return Observation{Status: StatusFailed, Message: err.Error()}, err
	}

	logPath := filepath.Join(workDir, e.program.LogName)
	logFile, err := os.Create(logPath)
	if err != nil {
		return Observation{}, simerr.IO("create "+e.kind+" log", err)
	}

	bin := e.program.Executable
	if !filepath.IsAbs(bin) {
		bin = filepath.Join(e.program.Dir, bin)
	}
	cmd := exec.Command(bin)
	cmd.Dir = workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	start := time.Now()
	runErr := cmd.Run()
	_ = logFile.Close()
	obs := Observation{
		Duration: time.Since(start),
		Details: map[string]any{
			"log":       logPath,
			"exit_code": exitCode(cmd, runErr),
		},
	}

	ok, scanErr := LogContains(logPath, e.program.CompletionPhrase)
	if errors.Is(scanErr, fs.ErrNotExist) {
		obs.Status = StatusFailed
		obs.Message = fmt.Sprintf("%s log absent: %s", e.kind, logPath)
		return obs, simerr.Engine(e.kind, "%s", obs.Message)
	}
	if scanErr != nil {
		return obs, simerr.IO("read "+e.kind+" log", scanErr)
	}
	if !ok {
		obs.Status = StatusFailed
		obs.Message = fmt.Sprintf("%q not found in %s", e.program.CompletionPhrase, logPath)
		if runErr != nil {
			obs.Message += ": " + runErr.Error()
		}
		return obs, simerr.Engine(e.kind, "%s", obs.Message)
	}
	obs.Status = StatusSucceeded
	obs.Message = "completed"
	return obs, nil
}

// LogContains scans path line by line for phrase.
func LogContains(path, phrase string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.Contains(sc.Text(), phrase) {
			return true, nil
		}
	}
	return false, sc.Err()
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil || cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
