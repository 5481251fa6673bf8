// Package identity определяет, кто выполняет запрос.
//
// Предъявленный bearer-токен проверяется цепочкой верификаторов: ключом API из
// хранилища или подписанным JWT. Успешная проверка даёт устойчивый ключ
// идентичности, по которому ведётся учёт допуска.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tempizhere/linkpulse/internal/repository"
)

// ErrInvalidCredential возвращается, если токен не принят ни одним верификатором
var ErrInvalidCredential = errors.New("invalid credential")

// Verifier проверяет токен и возвращает ключ идентичности
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// BearerToken извлекает токен из заголовка Authorization
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// APIKeyVerifier принимает ключи API, зарегистрированные в хранилище
type APIKeyVerifier struct {
	repo repository.Repository
}

// NewAPIKeyVerifier создаёт новый экземпляр APIKeyVerifier
func NewAPIKeyVerifier(repo repository.Repository) *APIKeyVerifier {
	return &APIKeyVerifier{repo: repo}
}

// Verify ищет ключ в хранилище
func (v *APIKeyVerifier) Verify(ctx context.Context, token string) (string, error) {
	key, err := v.repo.FindAPIKey(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredential
	}
	if err != nil {
		return "", fmt.Errorf("find api key: %w", err)
	}
	return "apikey:" + key.ID, nil
}

// Claims - содержимое выдаваемого JWT
type Claims struct {
	jwt.RegisteredClaims
}

// JWTVerifier выпускает и проверяет токены, подписанные HS256
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier создаёт новый экземпляр JWTVerifier
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue выпускает токен для subject со сроком действия ttl
func (v *JWTVerifier) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия токена
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.key)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidCredential
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return "", ErrInvalidCredential
	}
	return "jwt:" + claims.Subject, nil
}

func (v *JWTVerifier) key(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

// Chain перебирает верификаторы до первого успешного
type Chain []Verifier

// Verify возвращает ключ первого принявшего токен верификатора.
// Если ни один не принял, возвращается ErrInvalidCredential или первая непредвиденная ошибка.
func (c Chain) Verify(ctx context.Context, token string) (string, error) {
	var firstErr error
	for _, v := range c {
		key, err := v.Verify(ctx, token)
		if err == nil {
			return key, nil
		}
		if firstErr == nil && !errors.Is(err, ErrInvalidCredential) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return "", firstErr
	}
	return "", ErrInvalidCredential
}
