package devicecode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wrale/oauth2-device-store/validation"
)

// DeviceCodeBytes is the entropy of a generated device code; hex encoding
// doubles it on the wire.
const DeviceCodeBytes = 32

// GenerateDeviceCode returns a cryptographically random device code
// identifier.
func GenerateDeviceCode() (string, error) {
	bytes := make([]byte, DeviceCodeBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating device code: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateUserCode returns a user code in XXXX-XXXX display format using the
// RFC 8628 section 6.1 charset, with no character appearing more than twice.
func GenerateUserCode() (string, error) {
	charset := []rune(validation.Charset)

	var builder strings.Builder
	freqs := make(map[rune]int)

	for group := 0; group < 2; group++ {
		if group > 0 {
			builder.WriteRune('-')
		}
		for i := 0; i < validation.GroupSize; i++ {
			var available []rune
			for _, c := range charset {
				if freqs[c] < 2 {
					available = append(available, c)
				}
			}
			char, err := selectRandomRune(available)
			if err != nil {
				return "", err
			}
			builder.WriteRune(char)
			freqs[char]++
		}
	}

	code := builder.String()
	if err := validation.ValidateUserCode(code); err != nil {
		return "", fmt.Errorf("generated code failed validation: %w", err)
	}
	return code, nil
}

// selectRandomRune picks a uniformly random rune from the set, rejecting
// random bytes that would introduce modulo bias.
func selectRandomRune(available []rune) (rune, error) {
	availLen := len(available)
	maxNeeded := 256 - (256 % availLen)

	for {
		b := make([]byte, 1)
		if _, err := rand.Read(b); err != nil {
			return 0, fmt.Errorf("generating random byte: %w", err)
		}
		if int(b[0]) >= maxNeeded {
			continue
		}
		return available[int(b[0])%availLen], nil
	}
}
