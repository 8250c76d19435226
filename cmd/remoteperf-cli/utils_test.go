package main

import "testing"

func TestSplitSchemeExplicit(t *testing.T) {
	scheme, rest := splitScheme("adb:emulator-5554", "linux")
	if scheme != "adb" || rest != "emulator-5554" {
		t.Fatalf("got %q, %q", scheme, rest)
	}
}

func TestSplitSchemeDefaultsByFamily(t *testing.T) {
	scheme, rest := splitScheme("10.0.0.5:22", "linux")
	if scheme != "ssh" || rest != "10.0.0.5:22" {
		t.Fatalf("got %q, %q", scheme, rest)
	}

	scheme, rest = splitScheme("emulator-5554", "android")
	if scheme != "adb" || rest != "emulator-5554" {
		t.Fatalf("got %q, %q", scheme, rest)
	}
}

func TestParseSSHHostWithUserAndPort(t *testing.T) {
	target, err := parseSSHHost("pi@10.0.0.5:2222", "/key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Username != "pi" || target.Host != "10.0.0.5" || target.Port != 2222 {
		t.Fatalf("unexpected target: %+v", target)
	}
}

func TestParseSSHHostDefaultsPort(t *testing.T) {
	target, err := parseSSHHost("10.0.0.5", "", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Port != 22 || target.Password != "secret" {
		t.Fatalf("unexpected target: %+v", target)
	}
}

func TestParseSSHHostInvalidPort(t *testing.T) {
	if _, err := parseSSHHost("host:notaport", "", ""); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
