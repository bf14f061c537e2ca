package runtimeexec

import (
	"context"
	"time"
)

// Executor runs an external program to completion inside a work directory.
type Executor interface {
	Kind() string
	Run(ctx context.Context, workDir string) (Observation, error)
}

// Observation describes a finished run.
type Observation struct {
	Status   string
	Message  string
	Duration time.Duration
	Details  map[string]any
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Program is an executable living in Dir together with the files it needs.
type Program struct {
	Dir              string
	Executable       string
	RequiredFiles    []string
	LogName          string
	CompletionPhrase string
}

// Inventory lists what a gridded output file contains.
type Inventory struct {
	Instants []time.Time
	Fields   []string
}

// Inventorier reads the inventory of an output file.
type Inventorier interface {
	Inventory(ctx context.Context, path string) (Inventory, error)
}
