package main

import "testing"

func TestCleanCommandBringsInterfaceDown(t *testing.T) {
	resetRuntime()

	rootCmd.SetArgs([]string{"configure", "eth", "--iface", "eth4"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	ifindex, err := stack.InterfaceByName("eth4")
	if err != nil {
		t.Fatalf("interface not registered: %v", err)
	}
	if !stack.Up[ifindex] {
		t.Fatal("expected eth4 to be up after configure")
	}

	rootCmd.SetArgs([]string{"clean", "eth", "--iface", "eth4"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if stack.Up[ifindex] {
		t.Error("expected eth4 to be down after clean")
	}
}

func TestCleanCommandDefaultsToAllSections(t *testing.T) {
	resetRuntime()

	rootCmd.SetArgs([]string{"configure", "eth,ip=192.0.2.1/24", "--iface", "eth5"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	rootCmd.SetArgs([]string{"clean", "--iface", "eth5"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("clean failed: %v", err)
	}

	ifindex, _ := stack.InterfaceByName("eth5")
	if stack.Up[ifindex] {
		t.Error("expected eth5 to be down after full clean")
	}
}
