package services

import (
	"context"
	"crypto/rsa"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// AuthSettings carries the shared secrets and lifetimes of the auth provider.
type AuthSettings struct {
	AdminKey           string
	RegistrationSecret string
	CaptchaTTL         time.Duration
	TokenTTL           time.Duration
}

// sessionClaims is the payload of every session token. Role is only ever
// ADMIN for tokens minted by AdminSignIn.
type sessionClaims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	identities ports.IdentityStore
	records    ports.RecordStore
	challenges ports.ChallengeStore
	blacklist  ports.TokenBlacklist
	feed       ports.ChangeFeed
	gate       *Gate
	validator  *Validator
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	settings   AuthSettings
	now        func() time.Time
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	identities ports.IdentityStore,
	records ports.RecordStore,
	challenges ports.ChallengeStore,
	blacklist ports.TokenBlacklist,
	feed ports.ChangeFeed,
	gate *Gate,
	validator *Validator,
	privateKey *rsa.PrivateKey,
	settings AuthSettings,
) *AuthService {
	if settings.CaptchaTTL <= 0 {
		settings.CaptchaTTL = 5 * time.Minute
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 24 * time.Hour
	}
	return &AuthService{
		identities: identities,
		records:    records,
		challenges: challenges,
		blacklist:  blacklist,
		feed:       feed,
		gate:       gate,
		validator:  validator,
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		settings:   settings,
		now:        time.Now,
	}
}

// NewCaptcha issues a single-use challenge valid for the configured TTL.
func (s *AuthService) NewCaptcha(ctx context.Context) (domain.Challenge, error) {
	text, err := newCaptchaText()
	if err != nil {
		return domain.Challenge{}, errors.Wrap(err, "generate captcha")
	}
	c := domain.Challenge{ID: uuid.NewString(), Text: text}
	if err := s.challenges.SaveChallenge(ctx, c.ID, c.Text, s.settings.CaptchaTTL); err != nil {
		return domain.Challenge{}, errors.Wrap(err, "store captcha")
	}
	return c, nil
}

// SignUp creates the resident's credentials and a pending registration
// keyed by the new UID.
func (s *AuthService) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.Identity, error) {
	if err := s.checkCaptcha(ctx, req.CaptchaID, req.Captcha); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, domain.NewValidationError(domain.FieldError{Field: "confirm_password", Error: "passwords do not match"})
	}
	if req.SecretKey != s.settings.RegistrationSecret {
		return nil, domain.NewAuthError("invalid secret key")
	}

	email := normalizeEmail(req.Email)
	if s.gate.IsAdminEmail(email) {
		return nil, domain.NewAuthError("this address cannot be registered")
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	creds := domain.Credentials{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.identities.CreateIdentity(ctx, creds); err != nil {
		return nil, errors.Wrap(err, "create identity")
	}

	reg, err := s.records.Create(ctx, domain.Record{
		ID:         creds.UID,
		Kind:       domain.KindRegistration,
		OwnerID:    creds.UID,
		OwnerEmail: email,
		Status:     domain.StatusPending,
		Fields:     map[string]string{"email": email},
	})
	if err != nil {
		s.dropIdentity(ctx, creds.UID)
		return nil, errors.Wrap(err, "create registration")
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, domain.ChangeEvent{Kind: domain.KindRegistration, RecordID: reg.ID, OwnerID: reg.OwnerID, Op: domain.OpCreated}); err != nil {
			log.Printf("auth: change notification for registration %s dropped: %v", reg.ID, err)
		}
	}

	log.Printf("auth: registered %s, awaiting approval", email)
	return &domain.Identity{UID: creds.UID, Email: email, Role: domain.RoleResident}, nil
}

// ensureEmailFree fails when email already belongs to a resident. Credentials
// left without a registration by an interrupted sign-up are removed so the
// address can register again.
func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	creds, err := s.identities.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "sign up")
	}

	_, err = s.records.Get(ctx, domain.KindRegistration, creds.UID)
	switch {
	case err == nil:
		return domain.NewAuthError("email already registered")
	case errors.Is(err, domain.ErrNotFound):
		log.Printf("auth: removing orphaned credentials for %s", email)
		if err := s.identities.DeleteIdentity(ctx, creds.UID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return errors.Wrap(err, "sign up")
		}
		return nil
	default:
		return errors.Wrap(err, "sign up")
	}
}

func (s *AuthService) dropIdentity(ctx context.Context, uid string) {
	if err := s.identities.DeleteIdentity(ctx, uid); err != nil {
		log.Printf("auth: could not roll back credentials %s: %v", uid, err)
	}
}

// SignIn authenticates a resident. Only approved registrations may sign in.
func (s *AuthService) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.Session, error) {
	if err := s.checkCaptcha(ctx, req.CaptchaID, req.Captcha); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	creds, err := s.identities.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewAuthError("invalid credentials")
	}
	if err != nil {
		return nil, errors.Wrap(err, "sign in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.NewAuthError("invalid credentials")
	}

	reg, err := s.records.Get(ctx, domain.KindRegistration, creds.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewAuthError("user record not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "sign in")
	}
	switch reg.Status {
	case domain.StatusApproved:
	case domain.StatusRejected:
		return nil, domain.NewAuthError("your registration was rejected")
	default:
		return nil, domain.NewAuthError("your registration is awaiting approval")
	}

	return s.issue(domain.Identity{UID: creds.UID, Email: creds.Email, Role: domain.RoleResident})
}

// AdminSignIn accepts the configured administrator address together with the
// admin key. There are no stored administrator credentials.
func (s *AuthService) AdminSignIn(ctx context.Context, req domain.AdminSignInRequest) (*domain.Session, error) {
	if err := s.checkCaptcha(ctx, req.CaptchaID, req.Captcha); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if !s.gate.IsAdminEmail(req.Email) || req.AdminKey != s.settings.AdminKey {
		log.Printf("auth: rejected administrator sign-in for %s", req.Email)
		return nil, domain.NewAuthError("invalid admin key")
	}

	email := normalizeEmail(req.Email)
	return s.issue(domain.Identity{UID: "admin:" + email, Email: email, Role: domain.RoleAdmin})
}

// SignOut revokes the identity's token until it would have expired anyway.
func (s *AuthService) SignOut(ctx context.Context, identity *domain.Identity) error {
	if !identity.Authenticated() || identity.TokenID == "" {
		return domain.NewAuthError("not signed in")
	}
	if err := s.blacklist.Revoke(ctx, identity.TokenID, s.settings.TokenTTL); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	return nil
}

// CurrentIdentity verifies a session token and rejects revoked ones.
func (s *AuthService) CurrentIdentity(ctx context.Context, token string) (*domain.Identity, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, domain.NewAuthError("invalid token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, domain.NewAuthError("invalid token: missing subject")
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check token")
	}
	if revoked {
		return nil, domain.NewAuthError("token has been revoked")
	}

	return &domain.Identity{
		UID:     claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}, nil
}

func (s *AuthService) issue(identity domain.Identity) (*domain.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.settings.TokenTTL)
	identity.TokenID = uuid.NewString()

	claims := sessionClaims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        identity.TokenID,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &domain.Session{Token: signed, Identity: identity, ExpiresAt: expiresAt}, nil
}

// checkCaptcha consumes the challenge whether or not the answer matches.
func (s *AuthService) checkCaptcha(ctx context.Context, id, answer string) error {
	if id == "" || answer == "" {
		return domain.NewAuthError("invalid captcha")
	}
	want, ok, err := s.challenges.TakeChallenge(ctx, id)
	if err != nil {
		return errors.Wrap(err, "check captcha")
	}
	if !ok || want != answer {
		return domain.NewAuthError("invalid captcha")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
