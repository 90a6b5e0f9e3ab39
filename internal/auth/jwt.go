package auth

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrBadCredentials covers unknown account and wrong password alike.
	ErrBadCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned by SignUp for an already registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// displayNameRx allows letters (including accented Spanish letters) and
// spaces only.
var displayNameRx = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ\s]+$`)

// JWTProvider is a Provider backed by the accounts table, bcrypt password
// hashes and HS256 tokens. It keeps device semantics: one current session,
// observed by everyone through the gate.
type JWTProvider struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	current *Session
	subs    map[*SessionSubscription]struct{}
}

var _ Provider = (*JWTProvider)(nil)

// NewJWTProvider creates the provider. ttl bounds token and session life.
func NewJWTProvider(db *gorm.DB, secret string, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTProvider{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		subs:   make(map[*SessionSubscription]struct{}),
	}
}

func (p *JWTProvider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe registers a new session change-stream. Each subscription
// detaches only itself on Close; other open streams are untouched.
func (p *JWTProvider) Subscribe() *SessionSubscription {
	sub := newSessionSubscription(p.removeSubscription)
	p.mu.Lock()
	p.subs[sub] = struct{}{}
	p.mu.Unlock()
	return sub
}

func (p *JWTProvider) removeSubscription(sub *SessionSubscription) {
	p.mu.Lock()
	delete(p.subs, sub)
	p.mu.Unlock()
}

// publish fans a session change out to every open subscription.
func (p *JWTProvider) publish(sess *Session) {
	p.mu.Lock()
	targets := make([]*SessionSubscription, 0, len(p.subs))
	for sub := range p.subs {
		targets = append(targets, sub)
	}
	p.mu.Unlock()
	for _, sub := range targets {
		sub.deliver(sess)
	}
}

func (p *JWTProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.Wrap(domain.ErrValidationFailed, "email and password are required")
	}

	var account domain.Account
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	} else if err != nil {
		return nil, errors.Wrap(err, "query account")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}

	p.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", account.ID).
		Update("last_login", time.Now())

	sess, err := p.issueSession(&account)
	if err != nil {
		return nil, err
	}
	p.setCurrent(sess)
	zap.L().Info("session opened", zap.String("email", email))
	return sess, nil
}

func (p *JWTProvider) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || password == "" || displayName == "" {
		return nil, errors.Wrap(domain.ErrValidationFailed, "email, password and display name are required")
	}
	if !displayNameRx.MatchString(displayName) {
		return nil, errors.Wrap(domain.ErrValidationFailed, "display name may only contain letters and spaces")
	}
	if !passwordValid(password) {
		return nil, errors.Wrap(domain.ErrValidationFailed,
			"password needs at least 6 characters with an upper case letter, a lower case letter and a digit")
	}

	var exists int64
	p.db.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", email).Count(&exists)
	if exists > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	account := domain.Account{
		Email:       email,
		Password:    string(hash),
		DisplayName: displayName,
		Status:      "enabled",
		LastLogin:   time.Now(),
	}
	if err := p.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, errors.Wrap(err, "create account")
	}

	sess, err := p.issueSession(&account)
	if err != nil {
		return nil, err
	}
	p.setCurrent(sess)
	zap.L().Info("account registered", zap.String("email", email))
	return sess, nil
}

func (p *JWTProvider) SignOut() {
	p.mu.Lock()
	had := p.current != nil
	p.current = nil
	p.mu.Unlock()
	if had {
		p.publish(nil)
		zap.L().Info("session closed")
	}
}

// ValidateProfile runs the profile save checks without writing anything,
// so callers can reject bad input before asking the user to confirm.
func (p *JWTProvider) ValidateProfile(update ProfileUpdate) error {
	name := strings.TrimSpace(update.DisplayName)
	if name == "" && update.AvatarURL == "" && update.NewPassword == "" {
		return errors.Wrap(domain.ErrValidationFailed, "nothing to save")
	}
	if name != "" && !displayNameRx.MatchString(name) {
		return errors.Wrap(domain.ErrValidationFailed, "display name may only contain letters and spaces")
	}
	if update.NewPassword != "" {
		if !passwordValid(update.NewPassword) {
			return errors.Wrap(domain.ErrValidationFailed,
				"password needs at least 6 characters with an upper case letter, a lower case letter and a digit")
		}
		if update.NewPassword != update.ConfirmPassword {
			return errors.Wrap(domain.ErrValidationFailed, "passwords do not match")
		}
	}
	return nil
}

// UpdateProfile applies a profile save for the current session. Validation
// errors surface before anything is written.
func (p *JWTProvider) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	current := p.Current()
	if current == nil {
		return domain.ErrAuthRequired
	}
	if err := p.ValidateProfile(update); err != nil {
		return err
	}
	name := strings.TrimSpace(update.DisplayName)

	changes := map[string]interface{}{"updated_at": time.Now()}
	if name != "" {
		changes["display_name"] = name
	}
	if update.AvatarURL != "" {
		changes["avatar_url"] = strings.TrimSpace(update.AvatarURL)
	}
	if update.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(update.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrap(err, "hash password")
		}
		changes["password"] = string(hash)
	}

	err := p.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", current.UserID).
		Updates(changes).Error
	if err != nil {
		return errors.Wrap(domain.ErrWriteFailed, err.Error())
	}

	p.refreshCurrent(current.UserID, name, strings.TrimSpace(update.AvatarURL))
	return nil
}

// refreshCurrent publishes an updated copy of the current session. The swap
// is copy-on-write: Session pointers handed out earlier stay immutable.
func (p *JWTProvider) refreshCurrent(userID int64, name, avatarURL string) {
	p.mu.Lock()
	if p.current == nil || p.current.UserID != userID {
		p.mu.Unlock()
		return
	}
	refreshed := *p.current
	if name != "" {
		refreshed.DisplayName = name
	}
	if avatarURL != "" {
		refreshed.AvatarURL = avatarURL
	}
	p.current = &refreshed
	p.mu.Unlock()
	p.publish(&refreshed)
}

// ParseToken validates a bearer token and resolves it to a session without
// touching the current-session state. Used by the HTTP middleware.
func (p *JWTProvider) ParseToken(ctx context.Context, tokenString string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrAuthRequired
	}

	// tokens without an expiry are never accepted
	if claims.ExpiresAt == nil {
		return nil, domain.ErrAuthRequired
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.ErrAuthRequired
	}
	var account domain.Account
	if err := p.db.WithContext(ctx).First(&account, userID).Error; err != nil {
		return nil, domain.ErrAuthRequired
	}
	return &Session{
		UserID:      account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Token:       tokenString,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Secret exposes the signing key for the HTTP JWT middleware.
func (p *JWTProvider) Secret() []byte {
	return p.secret
}

// SweepExpired signs the current session out once its token has expired.
// Run periodically from the scheduler; the gate then fires unauthenticated.
func (p *JWTProvider) SweepExpired() {
	p.mu.Lock()
	expired := p.current != nil && time.Now().After(p.current.ExpiresAt)
	p.mu.Unlock()
	if expired {
		zap.L().Info("session expired, signing out")
		p.SignOut()
	}
}

func (p *JWTProvider) issueSession(account *domain.Account) (*Session, error) {
	expires := time.Now().Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(account.ID, 10),
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &Session{
		UserID:      account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Token:       token,
		ExpiresAt:   expires,
	}, nil
}

func (p *JWTProvider) setCurrent(sess *Session) {
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.publish(sess)
}

func passwordValid(password string) bool {
	if len(password) < 6 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
