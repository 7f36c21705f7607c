// Command device-login is an example client for the device authorization
// grant. It requests a device code from an engine, shows the user code and
// verification URI, then polls the token endpoint until the user approves
// the session on a second device.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/oauth2"
)

// Config holds client configuration loaded from environment variables.
type Config struct {
	ClientID      string `envconfig:"CLIENT_ID" required:"true"`
	DeviceAuthURL string `envconfig:"DEVICE_AUTH_URL" required:"true"`
	TokenURL      string `envconfig:"TOKEN_URL" required:"true"`
	Scopes        string `envconfig:"SCOPES"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	conf := &oauth2.Config{
		ClientID: cfg.ClientID,
		Scopes:   strings.Fields(cfg.Scopes),
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: cfg.DeviceAuthURL,
			TokenURL:      cfg.TokenURL,
		},
	}

	ctx := context.Background()

	resp, err := conf.DeviceAuth(ctx)
	if err != nil {
		log.Fatalf("Error requesting device code: %v", err)
	}

	if resp.VerificationURIComplete != "" {
		fmt.Printf("Visit %s to approve this device\n", resp.VerificationURIComplete)
	} else {
		fmt.Printf("Visit %s and enter code %s\n", resp.VerificationURI, resp.UserCode)
	}

	// Blocks, polling at the server's interval, until approval or expiry.
	token, err := conf.DeviceAccessToken(ctx, resp)
	if err != nil {
		log.Fatalf("Error waiting for approval: %v", err)
	}

	fmt.Printf("Access token: %s\n", token.AccessToken)
	if token.RefreshToken != "" {
		fmt.Printf("Refresh token: %s\n", token.RefreshToken)
	}
}
