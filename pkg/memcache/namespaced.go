package memcache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// NamespacedStorage scopes every key under account/<accountID>/.
//
// All operations are no-ops when accountID is empty or no backend is configured.
// Backend and decoding failures are logged and reported as absence.
type NamespacedStorage struct {
	backend Store
	logger  *zap.Logger
}

func NewNamespacedStorage(backend Store, logger *zap.Logger) *NamespacedStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NamespacedStorage{backend: backend, logger: logger}
}

func NamespacedKey(accountID, key string) string {
	return "account/" + accountID + "/" + key
}

func (s *NamespacedStorage) usable(accountID string) bool {
	return s != nil && s.backend != nil && accountID != ""
}

func (s *NamespacedStorage) Get(ctx context.Context, accountID, key string) (string, bool) {
	if !s.usable(accountID) {
		return "", false
	}
	v, ok, err := s.backend.Get(ctx, NamespacedKey(accountID, key))
	if err != nil {
		s.logger.Warn("storage get failed", zap.String("account_id", accountID), zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}

func (s *NamespacedStorage) Set(ctx context.Context, accountID, key, value string) {
	if !s.usable(accountID) {
		return
	}
	if err := s.backend.Set(ctx, NamespacedKey(accountID, key), value); err != nil {
		s.logger.Warn("storage set failed", zap.String("account_id", accountID), zap.String("key", key), zap.Error(err))
	}
}

func (s *NamespacedStorage) Remove(ctx context.Context, accountID, key string) {
	if !s.usable(accountID) {
		return
	}
	if err := s.backend.Delete(ctx, NamespacedKey(accountID, key)); err != nil {
		s.logger.Warn("storage remove failed", zap.String("account_id", accountID), zap.String("key", key), zap.Error(err))
	}
}

// GetJSON decodes the stored value into dst and reports whether it succeeded.
// Corrupt values are treated as missing.
func (s *NamespacedStorage) GetJSON(ctx context.Context, accountID, key string, dst any) bool {
	raw, ok := s.Get(ctx, accountID, key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("discarding corrupt stored value", zap.String("account_id", accountID), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *NamespacedStorage) SetJSON(ctx context.Context, accountID, key string, v any) {
	if !s.usable(accountID) {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("storage encode failed", zap.String("account_id", accountID), zap.String("key", key), zap.Error(err))
		return
	}
	s.Set(ctx, accountID, key, string(raw))
}
