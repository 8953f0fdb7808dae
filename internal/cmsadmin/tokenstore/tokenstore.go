// Пакет tokenstore хранит токены доступа к API djofo вошедшего сотрудника.
//
// Токены лежат в базе (dao.Credential), копия держится в памяти. Срок жизни берется из claim "exp" токена доступа,
// подпись не проверяется: ключ есть только у сервера djofo.
// Если вход не выполнен, используется токен из конфигурации (DJOFO_API_TOKEN).
package tokenstore

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/djofo/cmsadmin/internal/cmsadmin/dao"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

var (
	ErrTokenExpired = errors.New("access token expired")
	ErrUnauthorized = errors.New("access token mismatch")
)

type Store struct {
	db       *gorm.DB
	fallback string

	mu   sync.Mutex
	cred *dao.Credential

	now func() time.Time
}

var _ apiclient.TokenSource = (*Store)(nil)

// New загружает сохраненные токены, если они есть
func New(db *gorm.DB, fallback string) (*Store, error) {
	s := &Store{db: db, fallback: fallback, now: time.Now}
	cred, err := dao.GetCredential(db)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	s.cred = cred
	return s, nil
}

// Token отдает токен доступа. Пустая строка без ошибки - вход не выполнен.
func (s *Store) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil || s.cred.AccessToken == "" {
		return s.fallback, nil
	}
	if s.cred.ExpiresAt != nil && !s.now().Before(*s.cred.ExpiresAt) {
		return "", ErrTokenExpired
	}
	return s.cred.AccessToken, nil
}

// Authorize сверяет токен клиента панели с текущим токеном API.
// Срок проверяется только для совпавшего токена.
func (s *Store) Authorize(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.fallback
	var expiresAt *time.Time
	if s.cred != nil && s.cred.AccessToken != "" {
		stored = s.cred.AccessToken
		expiresAt = s.cred.ExpiresAt
	}
	if token == "" || stored == "" || subtle.ConstantTimeCompare([]byte(token), []byte(stored)) != 1 {
		return ErrUnauthorized
	}
	if expiresAt != nil && !s.now().Before(*expiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// Save сохраняет токены после входа
func (s *Store) Save(email string, tokens apiclient.Tokens) error {
	cred := &dao.Credential{
		Email:        email,
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
		ExpiresAt:    ExpiresAt(tokens.Access),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := dao.SaveCredential(s.db, cred); err != nil {
		return err
	}
	s.cred = cred
	slog.Info("Djofo API credential saved", "email", email, "expiresAt", cred.ExpiresAt)
	return nil
}

// Clear удаляет токены (выход)
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := dao.DeleteCredential(s.db); err != nil {
		return err
	}
	s.cred = nil
	return nil
}

// Email - адрес вошедшего сотрудника, пустой если вход не выполнен
func (s *Store) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return ""
	}
	return s.cred.Email
}

// ExpiresAt читает exp из токена. Для непрозрачных токенов и токенов без exp возвращает nil.
func ExpiresAt(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
