package oss

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// CredentialsFetcher issues temporary storage keys.
type CredentialsFetcher interface {
	GetStorageCredentials(ctx context.Context) (aws.Credentials, error)
}

// Broker caches the temporary storage key and refetches it once it has
// expired. It implements aws.CredentialsProvider.
type Broker struct {
	creds   *models.Credentials
	fetcher CredentialsFetcher
	clock   clock.Clock
	log     logging.Logger

	mu     sync.Mutex
	cached aws.Credentials
	loaded bool
}

var _ aws.CredentialsProvider = (*Broker)(nil)

// NewBroker returns a Broker issuing keys on behalf of creds.
func NewBroker(creds *models.Credentials, fetcher CredentialsFetcher, clk clock.Clock, log logging.Logger) *Broker {
	if clk == nil {
		clk = clock.Real()
	}
	return &Broker{creds: creds, fetcher: fetcher, clock: clk, log: log}
}

// Get returns a key that has not expired at the time of the call. A fetch
// happens when forceRefresh is set, nothing is cached yet, or the cached key
// is expired. A failed fetch is returned as is; the previous key is kept.
// A fetched key that is already expired, or carries no expiry, is rejected
// with common.ErrCredentialsUnavailable.
func (b *Broker) Get(ctx context.Context, forceRefresh bool) (aws.Credentials, error) {
	if !b.creds.HasModelToken() {
		return aws.Credentials{}, common.ErrNoModelToken
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded && !forceRefresh && !b.expired(b.cached) {
		return b.cached, nil
	}

	key, err := b.fetcher.GetStorageCredentials(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("fetch storage credentials: %w", err)
	}
	if !key.HasKeys() {
		return aws.Credentials{}, common.ErrCredentialsUnavailable
	}
	if b.expired(key) {
		b.log.Warn(ctx, "storage key issued already expired", "expires", key.Expires)
		return aws.Credentials{}, fmt.Errorf("storage key expired at %s: %w", key.Expires, common.ErrCredentialsUnavailable)
	}

	b.cached = key
	b.loaded = true
	b.log.Debug(ctx, "storage key refreshed", "access_key_id", key.AccessKeyID, "expires", key.Expires)
	return key, nil
}

// Retrieve implements aws.CredentialsProvider.
func (b *Broker) Retrieve(ctx context.Context) (aws.Credentials, error) {
	return b.Get(ctx, false)
}

// Invalidate drops the cached key.
func (b *Broker) Invalidate() {
	b.mu.Lock()
	b.loaded = false
	b.cached = aws.Credentials{}
	b.mu.Unlock()
}

func (b *Broker) expired(key aws.Credentials) bool {
	return !key.CanExpire || !b.clock.Now().Before(key.Expires)
}
