package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gappy/internal/models/db_models"
	"gappy/internal/models/request_models"
	"gappy/internal/models/response_models"
	"gappy/internal/repositories"
	"gappy/pkg/utils"
)

const (
	accountTokenBytes = 24

	// verifiedCredentialTTL bounds how long a bcrypt check is reused.
	verifiedCredentialTTL = 5 * time.Minute

	// verifiedPruneFloor is the cache size at which expired entries are first pruned.
	verifiedPruneFloor = 256
)

type AccountServiceInterface interface {
	Register(ctx context.Context, req request_models.RegisterAccountRequest) (response_models.AccountResponse, error)
	VerifyAccount(ctx context.Context, accountID, accountToken string) (*db_models.Account, error)
}

type verifiedCredential struct {
	digest    [sha256.Size]byte
	expiresAt time.Time
}

type AccountService struct {
	accountRepo repositories.AccountRepository
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	verified map[string]verifiedCredential
	pruneAt  int
}

func NewAccountService(accountRepo repositories.AccountRepository, logger *zap.Logger) AccountServiceInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accountRepo: accountRepo,
		logger:      logger,
		now:         time.Now,
		verified:    make(map[string]verifiedCredential),
		pruneAt:     verifiedPruneFloor,
	}
}

// Register creates an anonymous device account. The plain token is only returned here.
func (a *AccountService) Register(ctx context.Context, req request_models.RegisterAccountRequest) (response_models.AccountResponse, error) {
	token, err := utils.GenerateSecureToken(accountTokenBytes)
	if err != nil {
		return response_models.AccountResponse{}, fmt.Errorf("generate account token: %w", err)
	}
	hashed, err := utils.HashSecret(token)
	if err != nil {
		return response_models.AccountResponse{}, fmt.Errorf("hash account token: %w", err)
	}

	account := &db_models.Account{
		DisplayName:      req.DisplayName,
		AccountTokenHash: hashed,
	}
	if err := a.accountRepo.Insert(ctx, account); err != nil {
		return response_models.AccountResponse{}, fmt.Errorf("%w: insert account: %v", utils.ErrDatabaseError, err)
	}

	a.logger.Info("account registered", zap.String("account_id", account.ID.String()))
	return response_models.AccountResponse{AccountID: account.ID.String(), AccountToken: token}, nil
}

func (a *AccountService) VerifyAccount(ctx context.Context, accountID, accountToken string) (*db_models.Account, error) {
	if accountToken == "" {
		return nil, utils.ErrInvalidCredentials
	}
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	digest := sha256.Sum256([]byte(accountToken))
	recentlyVerified := a.recentlyVerified(accountID, digest)

	account, err := a.accountRepo.FindById(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: find account: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	if recentlyVerified {
		return account, nil
	}
	if err := utils.CompareSecret(account.AccountTokenHash, accountToken); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	a.rememberVerified(accountID, digest)

	if err := a.accountRepo.TouchLastSeen(ctx, accountID); err != nil {
		a.logger.Warn("touch account last seen", zap.String("account_id", accountID), zap.Error(err))
	}
	return account, nil
}

// rememberVerified caches a successful check. Expired entries are pruned once the cache reaches pruneAt.
func (a *AccountService) rememberVerified(accountID string, digest [sha256.Size]byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.verified[accountID] = verifiedCredential{digest: digest, expiresAt: now.Add(verifiedCredentialTTL)}
	if len(a.verified) < a.pruneAt {
		return
	}
	for id, entry := range a.verified {
		if now.After(entry.expiresAt) {
			delete(a.verified, id)
		}
	}
	a.pruneAt = max(2*len(a.verified), verifiedPruneFloor)
}

func (a *AccountService) recentlyVerified(accountID string, digest [sha256.Size]byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.verified[accountID]
	if !ok {
		return false
	}
	if a.now().After(entry.expiresAt) {
		delete(a.verified, accountID)
		return false
	}
	return entry.digest == digest
}
