// Package jwt выпускает и проверяет JWT токены, которыми API уведомлений
// определяет владельца запроса.
package jwt

import (
	"time"
)

// Maker описывает генерацию и парсинг JWT токенов.
type Maker interface {
	GenerateToken(userID, username string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены HMAC-ключом и выдаёт их на tokenTTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
