package devicecode

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/wrale/oauth2-device-store/validation"
)

func TestGenerateDeviceCode(t *testing.T) {
	code, err := GenerateDeviceCode()
	if err != nil {
		t.Fatalf("GenerateDeviceCode: %v", err)
	}

	if len(code) != 2*DeviceCodeBytes {
		t.Errorf("expected %d hex characters, got %d", 2*DeviceCodeBytes, len(code))
	}
	if _, err := hex.DecodeString(code); err != nil {
		t.Errorf("expected hex encoding, got %q: %v", code, err)
	}

	other, err := GenerateDeviceCode()
	if err != nil {
		t.Fatalf("GenerateDeviceCode: %v", err)
	}
	if code == other {
		t.Error("two generated device codes collided")
	}
}

func TestGenerateUserCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		code, err := GenerateUserCode()
		if err != nil {
			t.Fatalf("GenerateUserCode: %v", err)
		}

		if err := validation.ValidateUserCode(code); err != nil {
			t.Errorf("generated code %q failed validation: %v", code, err)
		}

		for _, char := range strings.ReplaceAll(code, "-", "") {
			if !strings.ContainsRune(validation.Charset, char) {
				t.Errorf("code %q contains %q outside the charset", code, char)
			}
		}

		seen[code] = true
	}

	// 50 draws from a 20^8 space should never repeat.
	if len(seen) != 50 {
		t.Errorf("expected 50 distinct codes, got %d", len(seen))
	}
}
