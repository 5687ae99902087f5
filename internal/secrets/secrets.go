// Package secrets loads the payment processor key at startup.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// JSONKey is the field read when the stored secret is a JSON object.
const JSONKey = "stripe_secret_key"

var (
	// ErrMissing is returned when no key is configured anywhere.
	ErrMissing = errors.New("secrets: processor secret key not configured")
	// ErrPublishable is returned for publishable keys, which cannot create intents.
	ErrPublishable = errors.New("secrets: publishable key supplied where a secret key is required")
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Source describes where the key lives. SecretID wins over EnvValue.
type Source struct {
	SecretID string
	EnvValue string
	Client   SecretsManagerAPI
}

// NewSecretsManagerClient builds a client from the default AWS credential chain.
func NewSecretsManagerClient(ctx context.Context) (*secretsmanager.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// Resolve returns the processor secret key. It never falls back to a literal.
func Resolve(ctx context.Context, src Source) (string, error) {
	id := strings.TrimSpace(src.SecretID)
	if id == "" {
		return checkKey(src.EnvValue)
	}
	if src.Client == nil {
		return "", errors.New("secrets: secret id configured without a secrets manager client")
	}
	out, err := src.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		return "", fmt.Errorf("secrets: get %s: %w", id, err)
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" && len(out.SecretBinary) > 0 {
		raw = string(out.SecretBinary)
	}
	key, err := extract(raw)
	if err != nil {
		return "", fmt.Errorf("secrets: %s: %w", id, err)
	}
	return checkKey(key)
}

func extract(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return "", fmt.Errorf("decode secret json: %w", err)
	}
	key, _ := doc[JSONKey].(string)
	return key, nil
}

func checkKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "", ErrMissing
	case strings.HasPrefix(key, "pk_"):
		return "", ErrPublishable
	}
	return key, nil
}
