// Package secrets resolves database credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Config describes how to reach Secrets Manager.
type Config struct {
	Region          string
	Endpoint        string // optional, e.g. LocalStack
	AccessKeyID     string // optional static credentials
	SecretAccessKey string
	HTTPClient      *http.Client
}

// Credentials is the username/password pair stored in a database secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Manager lazily builds one Secrets Manager client and reuses it for the
// lifetime of the process.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	client *secretsmanager.Client
}

// NewManager returns a Manager. No AWS calls happen until first use.
func NewManager(cfg Config) *Manager {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return &Manager{cfg: cfg}
}

func (m *Manager) getClient(ctx context.Context) (*secretsmanager.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client, nil
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(m.cfg.Region)}
	if m.cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(m.cfg.AccessKeyID, m.cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	m.client = secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if m.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(m.cfg.Endpoint)
		}
		if m.cfg.HTTPClient != nil {
			o.HTTPClient = m.cfg.HTTPClient
		}
	})
	return m.client, nil
}

// SecretString returns the string payload of secretID.
func (m *Manager) SecretString(ctx context.Context, secretID string) (string, error) {
	if secretID == "" {
		return "", errors.New("secret id required")
	}
	client, err := m.getClient(ctx)
	if err != nil {
		return "", err
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}
	return *out.SecretString, nil
}

// DatabaseCredentials decodes a {"username","password"} secret.
func (m *Manager) DatabaseCredentials(ctx context.Context, secretID string) (Credentials, error) {
	raw, err := m.SecretString(ctx, secretID)
	if err != nil {
		return Credentials{}, err
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode secret %s: %w", secretID, err)
	}
	if creds.Username == "" {
		return Credentials{}, fmt.Errorf("secret %s missing username", secretID)
	}
	return creds, nil
}
