//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Collect builds the CLI and runs a collection pass.
func Collect() error {
	mg.Deps(Build)
	return runStage("collect")
}

// Dedupe builds the CLI and runs a deduplication pass.
func Dedupe() error {
	mg.Deps(Build)
	return runStage("dedupe")
}

// Standardize builds the CLI and runs a standardization pass.
func Standardize() error {
	mg.Deps(Build)
	return runStage("standardize")
}

func runStage(stage string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), stage)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
