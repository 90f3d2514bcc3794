package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"commerce-backend/internal/auth"
	"commerce-backend/internal/domain"
	"commerce-backend/internal/events"
	"commerce-backend/internal/store"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	store.ClientStorer
	store.AddressStorer
	store.TokenStorer
	store.UnitOfWork
}

// Service implements the account use-cases.
type Service struct {
	repo            Repository
	tokens          *auth.Manager
	revocations     *auth.RevocationStore
	publisher       *events.Publisher
	verificationTTL time.Duration
	refreshTTL      time.Duration
}

// NewService wires the account service.
func NewService(repo Repository, tokens *auth.Manager, revocations *auth.RevocationStore, publisher *events.Publisher, verificationTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:            repo,
		tokens:          tokens,
		revocations:     revocations,
		publisher:       publisher,
		verificationTTL: verificationTTL,
		refreshTTL:      refreshTTL,
	}
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	Phone           *string
	NewsletterOptIn bool
}

// Register creates an unverified client and its verification token in one
// transaction, then publishes the created event so the verification email
// goes out.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Client, error) {
	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	client := &domain.Client{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           input.Email,
		PasswordHash:    passwordHash,
		Phone:           input.Phone,
		NewsletterOptIn: input.NewsletterOptIn,
	}
	n := domain.NewNotification()
	client.Validate(n)
	if n.HasErrors() {
		return nil, n.ErrOrNil()
	}

	plainToken, tokenHash, err := domain.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created, err := tx.CreateClient(ctx, client)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	_, err = tx.CreateVerificationToken(ctx, &domain.EmailVerificationToken{
		ClientID:  created.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().UTC().Add(s.verificationTTL),
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.ClientCreated{Client: created, VerificationToken: plainToken})
	log.Printf("INFO: client %d registered, verification pending", created.ID)
	return created, nil
}

// VerifyEmail redeems a verification token. The token is single use: the row
// is deleted on success, and also on detected expiry so it cannot be retried.
func (s *Service) VerifyEmail(ctx context.Context, plainToken string) error {
	hash := domain.HashToken(plainToken)

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	token, err := tx.GetVerificationTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return ErrVerificationTokenInvalid
		}
		return err
	}

	now := time.Now().UTC()
	if token.IsExpired(now) {
		if err := tx.DeleteVerificationToken(ctx, token.ID); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		return ErrVerificationTokenExpired
	}

	if err := tx.MarkClientVerified(ctx, token.ClientID, now); err != nil {
		return err
	}
	if err := tx.DeleteVerificationToken(ctx, token.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// TokenPair is the credential set returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// Login authenticates a verified client and returns a fresh token pair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	client, err := s.repo.GetClientByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrClientNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(client.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !client.IsVerified() {
		return nil, ErrEmailNotVerified
	}
	return s.issueTokenPair(ctx, client)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A revoked or expired token is rejected.
func (s *Service) Refresh(ctx context.Context, refreshPlain string) (*TokenPair, error) {
	hash := domain.HashToken(refreshPlain)

	token, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}
	now := time.Now().UTC()
	if !token.IsUsable(now) {
		return nil, ErrRefreshTokenInvalid
	}

	client, err := s.repo.GetClientByID(ctx, token.ClientID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, token.ID, now); err != nil {
		return nil, err
	}
	return s.issueTokenPair(ctx, client)
}

func (s *Service) issueTokenPair(ctx context.Context, client *domain.Client) (*TokenPair, error) {
	now := time.Now().UTC()
	access, err := s.tokens.IssueAccessToken(client, now)
	if err != nil {
		return nil, err
	}

	refreshPlain, refreshHash, err := domain.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	_, err = s.repo.CreateRefreshToken(ctx, &domain.RefreshToken{
		ClientID:  client.ID,
		TokenHash: refreshHash,
		ExpiresAt: now.Add(s.refreshTTL),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshPlain,
		ExpiresIn:    int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout puts the access token's jti on the revocation list and, when a
// refresh token is presented, revokes it too. Logging out twice is not an
// error.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims, refreshPlain string) error {
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	if refreshPlain == "" {
		return nil
	}
	token, err := s.repo.GetRefreshTokenByHash(ctx, domain.HashToken(refreshPlain))
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return nil
		}
		return err
	}
	if token.RevokedAt != nil {
		return nil
	}
	if err := s.repo.RevokeRefreshToken(ctx, token.ID, time.Now().UTC()); err != nil && !errors.Is(err, store.ErrTokenNotFound) {
		return err
	}
	return nil
}

// GetProfile returns the client's account data.
func (s *Service) GetProfile(ctx context.Context, clientID int64) (*domain.Client, error) {
	client, err := s.repo.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrClientNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

// AddressInput carries the address form fields.
type AddressInput struct {
	Label      string
	Street     string
	Number     string
	Complement *string
	District   string
	City       string
	State      string
	PostalCode string
	Country    string
}

// CreateAddress adds an active address to the client's address book.
func (s *Service) CreateAddress(ctx context.Context, clientID int64, input AddressInput) (*domain.Address, error) {
	address := &domain.Address{
		ClientID:   clientID,
		Label:      input.Label,
		Street:     input.Street,
		Number:     input.Number,
		Complement: input.Complement,
		District:   input.District,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    input.Country,
		Status:     domain.AddressActive,
	}
	n := domain.NewNotification()
	address.Validate(n)
	if n.HasErrors() {
		return nil, n.ErrOrNil()
	}
	return s.repo.CreateAddress(ctx, address)
}

// ListAddresses returns the client's active addresses.
func (s *Service) ListAddresses(ctx context.Context, clientID int64) ([]domain.Address, error) {
	return s.repo.ListAddressesByClient(ctx, clientID)
}

// UpdateAddress edits one of the client's active addresses. An address owned
// by another client is reported as not found.
func (s *Service) UpdateAddress(ctx context.Context, clientID, addressID int64, input AddressInput) (*domain.Address, error) {
	address, err := s.ownedActiveAddress(ctx, clientID, addressID)
	if err != nil {
		return nil, err
	}

	address.Label = input.Label
	address.Street = input.Street
	address.Number = input.Number
	address.Complement = input.Complement
	address.District = input.District
	address.City = input.City
	address.State = input.State
	address.PostalCode = input.PostalCode
	address.Country = input.Country

	n := domain.NewNotification()
	address.Validate(n)
	if n.HasErrors() {
		return nil, n.ErrOrNil()
	}
	return s.repo.UpdateAddress(ctx, address)
}

// DeleteAddress soft-deletes an address. The row survives so orders that
// snapshotted it keep their history.
func (s *Service) DeleteAddress(ctx context.Context, clientID, addressID int64) error {
	address, err := s.ownedActiveAddress(ctx, clientID, addressID)
	if err != nil {
		return err
	}
	address.MarkDeleted()
	if _, err := s.repo.UpdateAddress(ctx, address); err != nil {
		return fmt.Errorf("account: failed to delete address: %w", err)
	}
	return nil
}

func (s *Service) ownedActiveAddress(ctx context.Context, clientID, addressID int64) (*domain.Address, error) {
	address, err := s.repo.GetAddressByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, store.ErrAddressNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	if address.ClientID != clientID || !address.IsActive() {
		return nil, ErrAddressNotFound
	}
	return address, nil
}
