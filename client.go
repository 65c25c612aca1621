// Package apic is the entry point of the fabric controller client.
//
// Most programs only need Connect, which builds a fabric.APIClient and logs
// in. The full API lives in the api/fabric package.
package apic

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-apic/api/fabric"
)

// Connect creates a client for cfg and authenticates with username and
// password. A nil cfg is not allowed; ControllerURL is required.
//
// Example:
//
//	client, err := apic.Connect(ctx, &fabric.ClientConfig{
//	    ControllerURL:      "https://apic.example.net",
//	    InsecureSkipVerify: true,
//	}, "admin", password)
func Connect(ctx context.Context, cfg *fabric.ClientConfig, username, password string) (*fabric.APIClient, error) {
	client, err := fabric.NewWithConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fabric client")
	}

	if _, err := client.Login(ctx, username, password); err != nil {
		return nil, errors.Wrap(err, "failed to log in")
	}

	return client, nil
}
