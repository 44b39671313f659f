package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults mirror a small private network deployment. Every value can be
// overridden through a GRIDNET_* environment variable.
const (
	defaultNetworkName = "gridnet"

	defaultSessionDuration = 7 * 24 * time.Hour
	defaultSessionAbandon  = 24 * time.Hour
	defaultTokenDuration   = 10 * time.Minute
	defaultTokenAbandon    = 24 * time.Hour

	defaultAdminUserGroups   = "network|service|user|super|admin|hero"
	defaultDefaultUserGroups = "user"

	defaultHTTPAddr   = ":8080"
	defaultAuthnMode  = "always"
	defaultServerName = "gridnet-server"
)

// Config carries everything the server needs at startup: network identity,
// the signing key for network tokens, the session/token validity windows,
// bootstrap group assignments, and transport endpoints.
type Config struct {
	NetworkName string
	NetworkKey  string
	ServerName  string

	// AuthnMode selects the email-strategy authenticator: always, static,
	// or clerk.
	AuthnMode      string
	AuthnUsersFile string
	ClerkDomain    string

	SessionDuration time.Duration
	SessionAbandon  time.Duration
	TokenDuration   time.Duration
	TokenAbandon    time.Duration

	AdminUserGroups   string
	DefaultUserGroups string

	HTTPAddr string
	AMQPURL  string
	PGDSN    string
}

// FromEnv builds a Config from GRIDNET_* environment variables, applying
// defaults for everything except the network key, which has no safe default.
func FromEnv() (Config, error) {
	cfg := Config{
		NetworkName:       getenv("GRIDNET_NETWORK_NAME", defaultNetworkName),
		NetworkKey:        strings.TrimSpace(os.Getenv("GRIDNET_NETWORK_KEY")),
		ServerName:        getenv("GRIDNET_SERVER_NAME", defaultServerName),
		AuthnMode:         getenv("GRIDNET_AUTHN", defaultAuthnMode),
		AuthnUsersFile:    strings.TrimSpace(os.Getenv("GRIDNET_AUTHN_USERS")),
		ClerkDomain:       strings.TrimSpace(os.Getenv("GRIDNET_CLERK_DOMAIN")),
		SessionDuration:   defaultSessionDuration,
		SessionAbandon:    defaultSessionAbandon,
		TokenDuration:     defaultTokenDuration,
		TokenAbandon:      defaultTokenAbandon,
		AdminUserGroups:   getenv("GRIDNET_ADMIN_USER_GROUPS", defaultAdminUserGroups),
		DefaultUserGroups: getenv("GRIDNET_DEFAULT_USER_GROUPS", defaultDefaultUserGroups),
		HTTPAddr:          getenv("GRIDNET_HTTP_ADDR", defaultHTTPAddr),
		AMQPURL:           strings.TrimSpace(os.Getenv("GRIDNET_AMQP_URL")),
		PGDSN:             strings.TrimSpace(os.Getenv("GRIDNET_PG_DSN")),
	}
	if cfg.NetworkKey == "" {
		return Config{}, fmt.Errorf("GRIDNET_NETWORK_KEY is not configured")
	}

	var err error
	if cfg.SessionDuration, err = getdur("GRIDNET_SESSION_DURATION", cfg.SessionDuration); err != nil {
		return Config{}, err
	}
	if cfg.SessionAbandon, err = getdur("GRIDNET_SESSION_ABANDON", cfg.SessionAbandon); err != nil {
		return Config{}, err
	}
	if cfg.TokenDuration, err = getdur("GRIDNET_TOKEN_DURATION", cfg.TokenDuration); err != nil {
		return Config{}, err
	}
	if cfg.TokenAbandon, err = getdur("GRIDNET_TOKEN_ABANDON", cfg.TokenAbandon); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getdur accepts either a Go duration string ("10m") or a bare number of
// milliseconds, which is what older deployment manifests carry.
func getdur(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
