package runtimeexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/animus-labs/smsc-go/internal/descriptor"
)

// CommandInventory asks an external program for the inventory of a file.
// The program prints "time YYYY MM DD hh mm ss" and "field <name>" lines.
type CommandInventory struct {
	program string
	args    []string
}

func NewCommandInventory(program string, args ...string) (*CommandInventory, error) {
	program = strings.TrimSpace(program)
	if program == "" {
		return nil, errors.New("inventory program is required")
	}
	return &CommandInventory{program: program, args: args}, nil
}

func (c *CommandInventory) Inventory(ctx context.Context, path string) (Inventory, error) {
	args := append(append([]string{}, c.args...), path)
	cmd := exec.CommandContext(ctx, c.program, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Inventory{}, fmt.Errorf("inventory %s failed: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Inventory{}, fmt.Errorf("inventory %s failed: %w", path, err)
	}
	return ParseInventory(out)
}

// ParseInventory reads inventory output. Instants are returned sorted.
func ParseInventory(raw []byte) (Inventory, error) {
	var inv Inventory
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		kind, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		switch kind {
		case "time":
			t, err := time.ParseInLocation(descriptor.TimeLayout, value, time.UTC)
			if err != nil {
				return Inventory{}, fmt.Errorf("inventory time %q: %w", value, err)
			}
			inv.Instants = append(inv.Instants, t)
		case "field":
			if value != "" {
				inv.Fields = append(inv.Fields, value)
			}
		default:
			return Inventory{}, fmt.Errorf("inventory line %q: unknown kind", line)
		}
	}
	if err := sc.Err(); err != nil {
		return Inventory{}, err
	}
	sort.Slice(inv.Instants, func(i, j int) bool { return inv.Instants[i].Before(inv.Instants[j]) })
	return inv, nil
}
