//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// runBinary executes the built CLI with the given arguments.
func runBinary(args ...string) error {
	bin := filepath.Join(binDir, binName)
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("%s not found, run 'mage build' first", bin)
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Leads runs the lead acquisition stage using queries from the config file.
func Leads() error {
	return runBinary("leads")
}

// Compose drafts outreach emails for every lead missing an up-to-date draft.
func Compose() error {
	return runBinary("compose")
}

// SendTest delivers the first outbox draft to the configured test recipient.
func SendTest() error {
	return runBinary("send", "--test")
}

// Ingest indexes leads and drafts into the campaign database.
func Ingest() error {
	return runBinary("campaign", "ingest")
}
