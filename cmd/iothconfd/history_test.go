package main

import (
	"bytes"
	"testing"
)

func TestHistoryCommandWithNoAuditSucceeds(t *testing.T) {
	resetRuntime()
	auditPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"history"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
}

func TestHistoryCommandRecordsConfigureRun(t *testing.T) {
	resetRuntime()
	auditPath = t.TempDir() + "/audit.db"
	defer func() { auditPath = "" }()

	rootCmd.SetArgs([]string{"configure", "eth", "--iface", "eth6", "--audit", auditPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	rootCmd.SetArgs([]string{"history", "--audit", auditPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
}
