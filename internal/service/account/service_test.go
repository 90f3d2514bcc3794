package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/internal/auth"
	"commerce-backend/internal/domain"
	"commerce-backend/internal/events"
	"commerce-backend/internal/service/account"
	"commerce-backend/internal/store"
)

// fakeRepo is an in-memory account.Repository.
type fakeRepo struct {
	clients            map[int64]*domain.Client
	addresses          map[int64]*domain.Address
	verificationTokens map[string]*domain.EmailVerificationToken
	refreshTokens      map[string]*domain.RefreshToken
	nextID             int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clients:            make(map[int64]*domain.Client),
		addresses:          make(map[int64]*domain.Address),
		verificationTokens: make(map[string]*domain.EmailVerificationToken),
		refreshTokens:      make(map[string]*domain.RefreshToken),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) CreateClient(_ context.Context, client *domain.Client) (*domain.Client, error) {
	for _, existing := range f.clients {
		if existing.Email == client.Email {
			return nil, store.ErrEmailExists
		}
	}
	c := *client
	c.ID = f.id()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	f.clients[c.ID] = &c
	return &c, nil
}

func (f *fakeRepo) GetClientByID(_ context.Context, id int64) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) GetClientByEmail(_ context.Context, email string) (*domain.Client, error) {
	for _, c := range f.clients {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrClientNotFound
}

func (f *fakeRepo) MarkClientVerified(_ context.Context, clientID int64, at time.Time) error {
	c, ok := f.clients[clientID]
	if !ok {
		return store.ErrClientNotFound
	}
	c.MarkVerified(at)
	return nil
}

func (f *fakeRepo) CreateAddress(_ context.Context, address *domain.Address) (*domain.Address, error) {
	a := *address
	a.ID = f.id()
	f.addresses[a.ID] = &a
	cp := a
	return &cp, nil
}

func (f *fakeRepo) GetAddressByID(_ context.Context, id int64) (*domain.Address, error) {
	a, ok := f.addresses[id]
	if !ok {
		return nil, store.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListAddressesByClient(_ context.Context, clientID int64) ([]domain.Address, error) {
	var out []domain.Address
	for _, a := range f.addresses {
		if a.ClientID == clientID && a.IsActive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateAddress(_ context.Context, address *domain.Address) (*domain.Address, error) {
	if _, ok := f.addresses[address.ID]; !ok {
		return nil, store.ErrAddressNotFound
	}
	a := *address
	f.addresses[a.ID] = &a
	cp := a
	return &cp, nil
}

func (f *fakeRepo) CreateVerificationToken(_ context.Context, token *domain.EmailVerificationToken) (*domain.EmailVerificationToken, error) {
	tk := *token
	tk.ID = f.id()
	f.verificationTokens[tk.TokenHash] = &tk
	cp := tk
	return &cp, nil
}

func (f *fakeRepo) GetVerificationTokenByHash(_ context.Context, hash string) (*domain.EmailVerificationToken, error) {
	tk, ok := f.verificationTokens[hash]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	cp := *tk
	return &cp, nil
}

func (f *fakeRepo) DeleteVerificationToken(_ context.Context, id int64) error {
	for hash, tk := range f.verificationTokens {
		if tk.ID == id {
			delete(f.verificationTokens, hash)
			return nil
		}
	}
	return store.ErrTokenNotFound
}

func (f *fakeRepo) CreateRefreshToken(_ context.Context, token *domain.RefreshToken) (*domain.RefreshToken, error) {
	tk := *token
	tk.ID = f.id()
	f.refreshTokens[tk.TokenHash] = &tk
	cp := tk
	return &cp, nil
}

func (f *fakeRepo) GetRefreshTokenByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	tk, ok := f.refreshTokens[hash]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	cp := *tk
	return &cp, nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, id int64, at time.Time) error {
	for _, tk := range f.refreshTokens {
		if tk.ID == id && tk.RevokedAt == nil {
			tk.RevokedAt = &at
			return nil
		}
	}
	return store.ErrTokenNotFound
}

// fakeTx reuses the repo's methods; operations the account service never
// runs in a transaction stay on the embedded nil interface.
type fakeTx struct {
	store.Tx
	repo *fakeRepo
	done bool
}

func (f *fakeRepo) Begin(_ context.Context) (store.Tx, error) {
	return &fakeTx{repo: f}, nil
}

func (t *fakeTx) CreateClient(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	return t.repo.CreateClient(ctx, c)
}

func (t *fakeTx) MarkClientVerified(ctx context.Context, id int64, at time.Time) error {
	return t.repo.MarkClientVerified(ctx, id, at)
}

func (t *fakeTx) CreateVerificationToken(ctx context.Context, tk *domain.EmailVerificationToken) (*domain.EmailVerificationToken, error) {
	return t.repo.CreateVerificationToken(ctx, tk)
}

func (t *fakeTx) GetVerificationTokenByHash(ctx context.Context, hash string) (*domain.EmailVerificationToken, error) {
	return t.repo.GetVerificationTokenByHash(ctx, hash)
}

func (t *fakeTx) DeleteVerificationToken(ctx context.Context, id int64) error {
	return t.repo.DeleteVerificationToken(ctx, id)
}

func (t *fakeTx) Commit() error {
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.done = true
	return nil
}

func (t *fakeTx) HasActiveTransaction() bool { return !t.done }

type testEnv struct {
	repo        *fakeRepo
	svc         *account.Service
	publisher   *events.Publisher
	revocations *auth.RevocationStore
	tokens      *auth.Manager
	mr          *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeRepo()
	tokens := auth.NewManager("test-secret", "commerce-backend", 15*time.Minute)
	revocations := auth.NewRevocationStore(client)
	publisher := events.NewPublisher()
	svc := account.NewService(repo, tokens, revocations, publisher, 24*time.Hour, 7*24*time.Hour)
	return &testEnv{repo: repo, svc: svc, publisher: publisher, revocations: revocations, tokens: tokens, mr: mr}
}

func validInput() account.RegisterInput {
	return account.RegisterInput{
		FirstName: "Maria",
		LastName:  "Silva",
		Email:     "maria@example.com",
		Password:  "s3cret!",
	}
}

func TestRegister_CreatesClientAndPublishesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var published events.ClientCreated
	env.publisher.Register("client.created", func(_ context.Context, e events.Event) {
		published = e.(events.ClientCreated)
	})

	client, err := env.svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.False(t, client.IsVerified())
	assert.NotEqual(t, "s3cret!", client.PasswordHash, "password must be stored hashed")

	require.NotNil(t, published.Client)
	require.NotEmpty(t, published.VerificationToken)
	// Only the hash is stored; the event carries the plain token.
	_, ok := env.repo.verificationTokens[domain.HashToken(published.VerificationToken)]
	assert.True(t, ok)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, validInput())
	assert.ErrorIs(t, err, account.ErrEmailInUse)
}

func TestRegister_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	input := validInput()
	input.Email = "not-an-email"
	_, err := env.svc.Register(context.Background(), input)
	require.Error(t, err)
}

func registerAndGetToken(t *testing.T, env *testEnv) (*domain.Client, string) {
	t.Helper()
	var published events.ClientCreated
	env.publisher.Register("client.created", func(_ context.Context, e events.Event) {
		published = e.(events.ClientCreated)
	})
	client, err := env.svc.Register(context.Background(), validInput())
	require.NoError(t, err)
	return client, published.VerificationToken
}

func TestVerifyEmail_IsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, token := registerAndGetToken(t, env)

	require.NoError(t, env.svc.VerifyEmail(ctx, token))

	stored, err := env.repo.GetClientByID(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())

	// Redeeming again must fail: the token row is gone.
	err = env.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, account.ErrVerificationTokenInvalid)
}

func TestVerifyEmail_ExpiredTokenIsConsumed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, token := registerAndGetToken(t, env)

	// Age the stored token past its expiry.
	for _, tk := range env.repo.verificationTokens {
		tk.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}

	err := env.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, account.ErrVerificationTokenExpired)

	// The expired token was deleted, so a retry reports it as invalid.
	err = env.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, account.ErrVerificationTokenInvalid)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, token := registerAndGetToken(t, env)

	t.Run("unverified client is rejected", func(t *testing.T) {
		_, err := env.svc.Login(ctx, "maria@example.com", "s3cret!")
		assert.ErrorIs(t, err, account.ErrEmailNotVerified)
	})

	require.NoError(t, env.svc.VerifyEmail(ctx, token))

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.svc.Login(ctx, "maria@example.com", "wrong")
		assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.svc.Login(ctx, "nobody@example.com", "s3cret!")
		assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		pair, err := env.svc.Login(ctx, "maria@example.com", "s3cret!")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

		claims, err := env.tokens.ParseToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "maria@example.com", claims.Email)
	})
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, token := registerAndGetToken(t, env)
	require.NoError(t, env.svc.VerifyEmail(ctx, token))

	pair, err := env.svc.Login(ctx, "maria@example.com", "s3cret!")
	require.NoError(t, err)

	rotated, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old refresh token was consumed by the rotation.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, account.ErrRefreshTokenInvalid)

	// The new one works.
	_, err = env.svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Refresh(context.Background(), "bogus")
	assert.ErrorIs(t, err, account.ErrRefreshTokenInvalid)
}

func TestLogout_RevokesAccessAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, token := registerAndGetToken(t, env)
	require.NoError(t, env.svc.VerifyEmail(ctx, token))

	pair, err := env.svc.Login(ctx, "maria@example.com", "s3cret!")
	require.NoError(t, err)
	claims, err := env.tokens.ParseToken(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, claims, pair.RefreshToken))

	revoked, err := env.revocations.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, account.ErrRefreshTokenInvalid)

	// Logging out twice is not an error.
	require.NoError(t, env.svc.Logout(ctx, claims, pair.RefreshToken))
}

func TestAddressLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _ := registerAndGetToken(t, env)

	input := account.AddressInput{
		Label:      "home",
		Street:     "Rua A",
		Number:     "100",
		District:   "Centro",
		City:       "São Paulo",
		State:      "SP",
		PostalCode: "01000-000",
		Country:    "BR",
	}

	created, err := env.svc.CreateAddress(ctx, client.ID, input)
	require.NoError(t, err)
	assert.True(t, created.IsActive())

	listed, err := env.svc.ListAddresses(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	input.City = "Campinas"
	updated, err := env.svc.UpdateAddress(ctx, client.ID, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Campinas", updated.City)

	// Another client cannot touch it.
	_, err = env.svc.UpdateAddress(ctx, client.ID+999, created.ID, input)
	assert.ErrorIs(t, err, account.ErrAddressNotFound)

	require.NoError(t, env.svc.DeleteAddress(ctx, client.ID, created.ID))

	listed, err = env.svc.ListAddresses(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, listed, "deleted addresses leave the listing")

	// The row survives for order history.
	raw, err := env.repo.GetAddressByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, raw.IsActive())

	err = env.svc.DeleteAddress(ctx, client.ID, created.ID)
	assert.ErrorIs(t, err, account.ErrAddressNotFound)
}

func TestCreateAddress_Invalid(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateAddress(context.Background(), 1, account.AddressInput{Label: "home"})
	require.Error(t, err)
}
