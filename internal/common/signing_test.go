package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSigningFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signing.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write signing file: %v", err)
	}
	return path
}

func TestLoadSigningConfig(t *testing.T) {
	path := writeSigningFile(t, `
signing:
  protocol: streampay
  version: "1"
  ledger_id: ledger-main
payee: "0x90F79bf6EB2c4f870365E785982E1f101E93b906"
`)

	sc, payee, err := LoadSigningConfig(path)
	if err != nil {
		t.Fatalf("LoadSigningConfig failed: %v", err)
	}
	if sc.String() != "streampay/1/ledger-main" {
		t.Errorf("Unexpected signing context: %s", sc.String())
	}
	// Payee is normalized to lower case.
	if payee != "0x90f79bf6eb2c4f870365e785982e1f101e93b906" {
		t.Errorf("Unexpected payee: %s", payee)
	}
}

func TestLoadSigningConfig_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing ledger id", "signing:\n  protocol: streampay\n  version: \"1\"\npayee: \"0x90f79bf6eb2c4f870365e785982e1f101e93b906\"\n"},
		{"missing payee", "signing:\n  protocol: streampay\n  version: \"1\"\n  ledger_id: ledger-main\n"},
		{"bad payee", "signing:\n  protocol: streampay\n  version: \"1\"\n  ledger_id: ledger-main\npayee: \"bogus\"\n"},
		{"not yaml", "{{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSigningFile(t, tc.content)
			if _, _, err := LoadSigningConfig(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	if _, _, err := LoadSigningConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
