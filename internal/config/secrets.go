package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SecretPrefix marks a value to be fetched from Vault.
const SecretPrefix = "vault:"

// SecretGetter reads one key of a KV secret.  *vault.Client implements it.
type SecretGetter interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// HasSecrets reports whether any field still holds a vault: reference.
func (c *Config) HasSecrets() bool {
	for _, s := range c.secretFields() {
		if strings.HasPrefix(*s, SecretPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every `vault:<mount>/<path>#<key>` value with
// the secret it names.
func (c *Config) ResolveSecrets(ctx context.Context, g SecretGetter) error {
	for _, s := range c.secretFields() {
		ref, ok := strings.CutPrefix(*s, SecretPrefix)
		if !ok {
			continue
		}
		path, key, ok := strings.Cut(ref, "#")
		if !ok || path == "" || key == "" {
			return fmt.Errorf("config: malformed secret reference %q", *s)
		}
		val, err := g.GetKV(ctx, path, key, 0)
		if err != nil {
			return fmt.Errorf("config: resolve %s#%s: %w", path, key, err)
		}
		*s = val
	}
	return nil
}

func (c *Config) secretFields() []*string {
	return []*string{&c.Database.DSN, &c.Database.Password}
}
