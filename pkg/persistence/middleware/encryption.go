package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/ports"
)

const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the session
// context and the step log at rest using AES-GCM. The session head stays in
// plaintext: IDs, status, and timestamps carry no health data and operators
// need them for monitoring. Reads fail closed: a stored record without an
// envelope is an error, not a passthrough.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			SessionStore: next,
			config:       config,
		}
	}
}

// MergeContext merges in plaintext and persists the whole context as one
// opaque envelope. The envelope replaces itself on every merge, which is
// exactly the scalar last-write-wins the merge semantics give us.
func (m *encryptionMiddleware) MergeContext(ctx context.Context, sessionID string, patch map[string]any) (map[string]any, error) {
	existing, err := m.LoadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged := domain.MergeContext(existing, patch)
	blob, err := sealJSON(merged, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt context: %w", err)
	}

	if _, err := m.SessionStore.MergeContext(ctx, sessionID, map[string]any{envelopeKey: blob}); err != nil {
		return nil, err
	}
	return merged, nil
}

func (m *encryptionMiddleware) LoadContext(ctx context.Context, sessionID string) (map[string]any, error) {
	raw, err := m.SessionStore.LoadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	blob, ok := raw[envelopeKey].(string)
	if !ok {
		return nil, errors.New("stored context is missing its encryption envelope")
	}

	out := map[string]any{}
	if err := openJSON(blob, m.config, &out); err != nil {
		return nil, fmt.Errorf("failed to decrypt context: %w", err)
	}
	return out, nil
}

// AppendStep stores the full step as an envelope, keeping only node ID and
// timestamp in plaintext for operational queries.
func (m *encryptionMiddleware) AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error {
	blob, err := sealJSON(step, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt step: %w", err)
	}

	envelope := &domain.SessionStep{
		NodeID:         step.NodeID,
		Timestamp:      step.Timestamp,
		ControllerData: map[string]any{envelopeKey: blob},
	}
	return m.SessionStore.AppendStep(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) LoadSteps(ctx context.Context, sessionID string) ([]domain.SessionStep, error) {
	envelopes, err := m.SessionStore.LoadSteps(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	steps := make([]domain.SessionStep, 0, len(envelopes))
	for _, env := range envelopes {
		blob, ok := env.ControllerData[envelopeKey].(string)
		if !ok {
			return nil, errors.New("stored step is missing its encryption envelope")
		}
		var step domain.SessionStep
		if err := openJSON(blob, m.config, &step); err != nil {
			return nil, fmt.Errorf("failed to decrypt step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Helpers

func sealJSON(v any, key []byte) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func openJSON(blob string, config EncryptionConfig, out any) error {
	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plaintext, err := decryptWithRotation(ciphertext, config.ActiveKey, config.FallbackKeys)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, out)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
