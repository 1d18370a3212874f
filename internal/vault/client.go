// Package vault mediates access to tenant provider credentials held in
// HashiCorp Vault. Secret values only ever leave this package wrapped in
// a SecretHandle, which redacts itself on serialization.
package vault

import (
	"context"
	"errors"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/vitoflow/metering-api/internal/config"
	"go.uber.org/zap"
)

var ErrSecretValueMissing = errors.New("vault secret has no value field")

// secretValueField is the data key each tenant credential is written
// under in the KV v2 engine.
const secretValueField = "value"

type Client struct {
	kv     *vaultapi.KVv2
	client *vaultapi.Client
	logger *zap.Logger
}

func NewClient(cfg *config.VaultConfig, logger *zap.Logger) (*Client, error) {
	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = cfg.Timeout

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	logger.Info("Vault client initialized",
		zap.String("address", cfg.Address),
		zap.String("mount_point", cfg.MountPoint),
	)

	return &Client{
		kv:     client.KVv2(cfg.MountPoint),
		client: client,
		logger: logger.Named("VaultClient"),
	}, nil
}

// ReadSecretValue fetches the credential stored at path and wraps it in a
// handle. The raw value is not logged and does not appear in errors.
func (c *Client) ReadSecretValue(ctx context.Context, path string) (string, error) {
	secret, err := c.kv.Get(ctx, path)
	if err != nil {
		c.logger.Error("Vault read failed", zap.String("vault_path", path), zap.Error(err))
		return "", fmt.Errorf("vault read failed for path %s: %w", path, err)
	}

	raw, ok := secret.Data[secretValueField]
	if !ok {
		return "", fmt.Errorf("%w: path %s", ErrSecretValueMissing, path)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: path %s", ErrSecretValueMissing, path)
	}

	return value, nil
}

// WriteSecretValue stores a credential at path, creating or replacing the
// current version.
func (c *Client) WriteSecretValue(ctx context.Context, path string, value string) error {
	_, err := c.kv.Put(ctx, path, map[string]interface{}{secretValueField: value})
	if err != nil {
		c.logger.Error("Vault write failed", zap.String("vault_path", path), zap.Error(err))
		return fmt.Errorf("vault write failed for path %s: %w", path, err)
	}
	return nil
}

// Health pings the vault server.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if !resp.Initialized || resp.Sealed {
		return fmt.Errorf("vault not ready: initialized=%t sealed=%t", resp.Initialized, resp.Sealed)
	}
	return nil
}
