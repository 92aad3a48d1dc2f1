// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package provider

import (
	"context"

	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Config holds what a concrete client needs: a resolved provider name,
// credentials, and a model. BaseURL is optional and mainly useful for
// pointing a client at a mock server in tests.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// Factory builds a Client for a concrete provider name. The provider
// subpackages register themselves here from cmd wiring so this package
// stays free of SDK imports.
type Factory func(cfg Config) (Client, error)

var factories = map[string]Factory{}

// RegisterFactory installs the constructor for a provider name.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// New constructs a client for cfg.Provider. The "auto" token is rejected
// outright: resolution happens at configuration time, never here.
func New(cfg Config) (Client, error) {
	if cfg.Provider == "auto" {
		return nil, runeerr.New(runeerr.CodeProviderRequestInvalid,
			`provider "auto" must be resolved before constructing a client`,
			runeerr.FieldProvider(cfg.Provider))
	}

	factory, ok := factories[cfg.Provider]
	if !ok {
		return nil, runeerr.Errorf(runeerr.CodeProviderRequestInvalid,
			"unsupported llm provider %q", cfg.Provider)
	}

	return factory(cfg)
}

// Unavailable is the degenerate client returned when no API key is
// configured. Generate always fails; Available is false.
type Unavailable struct {
	Provider string
}

func (u Unavailable) Name() string    { return u.Provider }
func (u Unavailable) Available() bool { return false }

func (u Unavailable) Generate(_ context.Context, _ GenerateRequest) (string, error) {
	return "", runeerr.New(runeerr.CodeProviderUnavailable, "llm client is not available",
		runeerr.FieldProvider(u.Provider))
}

// CallContext derives the per-request context honoring the request
// timeout. The returned cancel must always be called.
func CallContext(ctx context.Context, req GenerateRequest) (context.Context, context.CancelFunc) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
