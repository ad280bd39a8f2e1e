package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"screencatch/screenshot"
)

// StdioMode controls where a spawned process's stdout/stderr go.
type StdioMode int

const (
	// StdioDiscard drops the child's output (default).
	StdioDiscard StdioMode = iota
	// StdioInherit forwards the child's output to this process's streams.
	StdioInherit
)

// LaunchError means the external process could not be started at all,
// typically a missing executable.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// MalformedResultError means the result file existed but did not parse as one
// of the documented schemas. Distinct from user cancellation, which leaves no
// file at all.
type MalformedResultError struct {
	Path string
	Err  error
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("malformed result file %s: %v", e.Path, e.Err)
}

func (e *MalformedResultError) Unwrap() error { return e.Err }

// Kind discriminates the two result schemas an overlay can write.
type Kind int

const (
	KindSingle Kind = iota
	KindMulti
)

// SingleResult is the single-region schema: {"region": {...}|null, "cancelled": bool}.
type SingleResult struct {
	Region    *screenshot.Region `json:"region"`
	Cancelled bool               `json:"cancelled"`
}

// MultiResult is the multi-region schema:
// {"captures": [...], "count": int, "cancelled": bool, "description": string|null}.
type MultiResult struct {
	Captures    []screenshot.Region `json:"captures"`
	Count       int                 `json:"count"`
	Cancelled   bool                `json:"cancelled"`
	Description string              `json:"description"`
}

// Result is the tagged variant decoded from a result file. The field matching
// Kind is the one that carries the payload.
type Result struct {
	Kind   Kind
	Single SingleResult
	Multi  MultiResult
}

// Cancelled reports whether the exchange ended without a trustworthy
// selection.
func (r Result) Cancelled() bool {
	if r.Kind == KindMulti {
		return r.Multi.Cancelled
	}
	return r.Single.Cancelled
}

// Regions returns the selected regions in capture order. A cancelled result
// reports no regions regardless of any payload present.
func (r Result) Regions() []screenshot.Region {
	if r.Cancelled() {
		return nil
	}
	if r.Kind == KindMulti {
		return r.Multi.Captures
	}
	if r.Single.Region == nil {
		return nil
	}
	return []screenshot.Region{*r.Single.Region}
}

// Description returns the free-text description, if the overlay gathered one.
func (r Result) Description() string {
	if r.Kind == KindMulti && !r.Multi.Cancelled {
		return r.Multi.Description
	}
	return ""
}

// cancelledResult stands in for a missing result file: the overlay window was
// closed without an explicit action.
func cancelledResult() Result {
	return Result{Kind: KindMulti, Multi: MultiResult{Cancelled: true}}
}

// Channel performs one request/response exchange per Invoke with an external
// interactive process. The process receives a unique result-file path as its
// final argument and is solely responsible for writing one of the documented
// JSON schemas there before exiting, cancellation included.
type Channel struct {
	// Dir is where result files are created. Empty means os.TempDir().
	Dir string
	// Stdio controls the spawned process's stdout/stderr.
	Stdio StdioMode
}

// resultPath generates a collision-free path for one exchange so rapid or
// concurrent invocations never share a file.
func (c *Channel) resultPath() string {
	dir := c.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("screencatch-ipc-%s-%s.json",
		time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	return filepath.Join(dir, name)
}

// Invoke runs exactly one exchange: spawn, await exit, read the result file.
// No retries are attempted; a failed or cancelled exchange is reported upward
// and the caller decides whether to re-invoke.
func (c *Channel) Invoke(ctx context.Context, executable string, args []string) (Result, error) {
	path := c.resultPath()
	full := append(append([]string{}, args...), path)

	cmd := exec.CommandContext(ctx, executable, full...)
	if c.Stdio == StdioInherit {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return Result{}, &LaunchError{Executable: executable, Err: err}
	}
	if err := cmd.Wait(); err != nil {
		// The overlay owns its exit status; cancellation is signalled
		// through the result file, not the exit code.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("waiting for %s: %w", executable, err)
		}
		log.Printf("IPC: %s exited with %v", executable, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("IPC: no result file from %s, treating as cancellation", executable)
			return cancelledResult(), nil
		}
		return Result{}, fmt.Errorf("reading result file %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		log.Printf("IPC: could not delete result file %s: %v", path, err)
	}
	return decode(path, data)
}

// decode resolves the schema ambiguity with an explicit discriminant: a
// "captures" key selects the multi-region schema, anything else decodes as
// single-region.
func decode(path string, data []byte) (Result, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Result{}, &MalformedResultError{Path: path, Err: err}
	}
	if _, ok := probe["captures"]; ok {
		var multi MultiResult
		if err := json.Unmarshal(data, &multi); err != nil {
			return Result{}, &MalformedResultError{Path: path, Err: err}
		}
		return Result{Kind: KindMulti, Multi: multi}, nil
	}
	var single SingleResult
	if err := json.Unmarshal(data, &single); err != nil {
		return Result{}, &MalformedResultError{Path: path, Err: err}
	}
	return Result{Kind: KindSingle, Single: single}, nil
}

// Confirm runs the preview/confirm exchange. Exit code 1 means the user asked
// to recapture; any other outcome, including a failed launch, keeps the saved
// artifact (fail-safe toward not discarding work).
func (c *Channel) Confirm(ctx context.Context, executable string, args []string) bool {
	cmd := exec.CommandContext(ctx, executable, args...)
	if c.Stdio == StdioInherit {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode() == 1
		}
		log.Printf("IPC: confirm exchange could not run (%v), keeping artifact", err)
		return false
	}
	return false
}
