package runtimeexec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/animus-labs/smsc-go/internal/descriptor"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

// ToolRunner drives a conversion tool through its nomfich/action files.
// Calls are serialized since the tool directory is shared state.
type ToolRunner struct {
	mu   sync.Mutex
	exec *ProgramExecutor
}

func NewToolRunner(exec *ProgramExecutor) *ToolRunner {
	return &ToolRunner{exec: exec}
}

// Apply writes action into the tool directory and runs the tool there.
func (t *ToolRunner) Apply(ctx context.Context, action []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	dir := t.exec.Program().Dir
	if err := descriptor.WriteFile(filepath.Join(dir, "nomfich.dat"), descriptor.ToolNomfich(descriptor.ActionFileName)); err != nil {
		return simerr.IO("write tool nomfich", err)
	}
	if err := os.WriteFile(filepath.Join(dir, descriptor.ActionFileName), action, 0o644); err != nil {
		return simerr.IO("write tool action", err)
	}
	if _, err := t.exec.Run(ctx, dir); err != nil {
		return fmt.Errorf("%s: %w", t.exec.Kind(), err)
	}
	return nil
}
