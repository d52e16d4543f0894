// Package version provides build version information and runtime metadata.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// These are set via ldflags at build time
	Version = ""
	Commit  = ""
	Date    = ""

	execCommand = exec.CommandContext

	mu       sync.Mutex
	once     sync.Once
	resolved struct {
		version, commit, date string
	}
)

const gitTimeout = 2 * time.Second

func ensureInitialized() {
	mu.Lock()
	o := &once
	mu.Unlock()

	o.Do(func() {
		v, c, d := Version, Commit, Date
		if d == "" {
			d = time.Now().Format("2006-01-02")
		}
		if c == "" {
			c = getGitCommit()
		}
		if v == "" {
			v = getGitVersion()
		}

		mu.Lock()
		resolved.version, resolved.commit, resolved.date = v, c, d
		mu.Unlock()
	})
}

// Reset clears resolved values so the next accessor call resolves them again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	resolved.version, resolved.commit, resolved.date = "", "", ""
}

func runGit(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := execCommand(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func getGitCommit() string {
	out, err := runGit("describe", "--always", "--dirty")
	if err != nil || out == "" {
		return "unknown"
	}
	return out
}

func getGitVersion() string {
	out, err := runGit("describe", "--tags", "--abbrev=0")
	if err != nil || out == "" {
		return "dev"
	}
	return strings.TrimPrefix(out, "v")
}

// GetVersion returns the release version without a leading "v".
func GetVersion() string {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	return resolved.version
}

func GetCommit() string {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	return resolved.commit
}

func GetDate() string {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	return resolved.date
}

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("rfid-console %s (commit: %s, built: %s, %s/%s)",
		GetVersion(), GetCommit(), GetDate(), runtime.GOOS, runtime.GOARCH)
}
