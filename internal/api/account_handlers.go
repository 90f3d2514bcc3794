package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"commerce-backend/internal/service/account"
)

// --- Client Handlers ---

// RegisterClientInput defines the expected input for registration.
type RegisterClientInput struct {
	FirstName       string  `json:"first_name" validate:"required,max=100"`
	LastName        string  `json:"last_name" validate:"required,max=100"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	Password        string  `json:"password" validate:"required,min=8,max=72"`
	Phone           *string `json:"phone" validate:"omitempty,max=30"`
	NewsletterOptIn bool    `json:"newsletter_opt_in"`
}

func (h *HTTPHandler) RegisterClient(w http.ResponseWriter, r *http.Request) {
	var input RegisterClientInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	client, err := h.accounts.Register(r.Context(), account.RegisterInput{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           input.Email,
		Password:        input.Password,
		Phone:           input.Phone,
		NewsletterOptIn: input.NewsletterOptIn,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailInUse) {
			respondWithError(w, http.StatusConflict, account.ErrEmailInUse.Error())
			return
		}
		log.Printf("ERROR: RegisterClient failed: %v", err)
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, client)
}

func (h *HTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "Missing token query parameter")
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, account.ErrVerificationTokenExpired):
			respondWithError(w, http.StatusGone, account.ErrVerificationTokenExpired.Error())
		case errors.Is(err, account.ErrVerificationTokenInvalid):
			respondWithError(w, http.StatusBadRequest, account.ErrVerificationTokenInvalid.Error())
		default:
			log.Printf("ERROR: VerifyEmail failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to verify email")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// LoginInput defines the expected input for login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	pair, err := h.accounts.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			respondWithError(w, http.StatusUnauthorized, account.ErrInvalidCredentials.Error())
		case errors.Is(err, account.ErrEmailNotVerified):
			respondWithError(w, http.StatusForbidden, account.ErrEmailNotVerified.Error())
		default:
			log.Printf("ERROR: Login failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, pair)
}

// RefreshInput carries the refresh token to rotate.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *HTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var input RefreshInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	pair, err := h.accounts.Refresh(r.Context(), input.RefreshToken)
	if err != nil {
		if errors.Is(err, account.ErrRefreshTokenInvalid) {
			respondWithError(w, http.StatusUnauthorized, account.ErrRefreshTokenInvalid.Error())
			return
		}
		log.Printf("ERROR: RefreshToken failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	respondWithJSON(w, http.StatusOK, pair)
}

// LogoutInput optionally carries the refresh token to revoke alongside the
// access token.
type LogoutInput struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout succeeds even without credentials: logging out twice, or with an
// already-expired token, reports success.
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var input LogoutInput
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&input)
		defer r.Body.Close()
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		if claims, err := h.tokens.ParseToken(token); err == nil {
			if err := h.accounts.Logout(r.Context(), claims, input.RefreshToken); err != nil {
				log.Printf("ERROR: Logout failed: %v", err)
				respondWithError(w, http.StatusInternalServerError, "Failed to log out")
				return
			}
		}
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}

	client, err := h.accounts.GetProfile(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, account.ErrClientNotFound) {
			respondWithError(w, http.StatusNotFound, account.ErrClientNotFound.Error())
			return
		}
		log.Printf("ERROR: GetProfile failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	respondWithJSON(w, http.StatusOK, client)
}

// --- Address Handlers ---

// AddressInput defines the expected input for creating or updating an
// address.
type AddressInput struct {
	Label      string  `json:"label" validate:"max=50"`
	Street     string  `json:"street" validate:"required,max=255"`
	Number     string  `json:"number" validate:"required,max=20"`
	Complement *string `json:"complement" validate:"omitempty,max=255"`
	District   string  `json:"district" validate:"max=100"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=50"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,max=2"`
}

func (in AddressInput) toService() account.AddressInput {
	return account.AddressInput{
		Label:      in.Label,
		Street:     in.Street,
		Number:     in.Number,
		Complement: in.Complement,
		District:   in.District,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
	}
}

func (h *HTTPHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	var input AddressInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.accounts.CreateAddress(r.Context(), clientID, input.toService())
	if err != nil {
		log.Printf("ERROR: CreateAddress failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}

	addresses, err := h.accounts.ListAddresses(r.Context(), clientID)
	if err != nil {
		log.Printf("ERROR: ListAddresses failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve addresses")
		return
	}

	respondWithJSON(w, http.StatusOK, addresses)
}

func (h *HTTPHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	addressID, ok := parseIDParam(r, "addressId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid address ID format")
		return
	}
	var input AddressInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	updated, err := h.accounts.UpdateAddress(r.Context(), clientID, addressID, input.toService())
	if err != nil {
		if errors.Is(err, account.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, account.ErrAddressNotFound.Error())
			return
		}
		log.Printf("ERROR: UpdateAddress failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromRequest(w, r)
	if !ok {
		return
	}
	addressID, ok := parseIDParam(r, "addressId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid address ID format")
		return
	}

	if err := h.accounts.DeleteAddress(r.Context(), clientID, addressID); err != nil {
		if errors.Is(err, account.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, account.ErrAddressNotFound.Error())
			return
		}
		log.Printf("ERROR: DeleteAddress failed for client %d: %v", clientID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete address")
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}
