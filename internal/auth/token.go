package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionTTL — время жизни сессии. Фиксированная константа, не конфиг.
	SessionTTL = 7 * 24 * time.Hour

	// SessionCookieName — имя cookie с session token.
	SessionCookieName = "session_token"

	sessionTokenBytes = 32
)

// GenerateSessionToken возвращает opaque bearer credential:
// 32 случайных байта в hex. Сам токен — единственный ключ сессии,
// никакой структуры внутри него нет.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ChallengeClaims — короткоживущий HS256 токен, привязывающий nonce
// к кошельку. Выдаётся вместе с challenge-сообщением и возвращается
// клиентом при логине, чтобы сервер не хранил challenge в сессии.
type ChallengeClaims struct {
	WalletAddress string `json:"wallet_address"`
	Nonce         string `json:"nonce"`
	jwt.RegisteredClaims
}

// GenerateChallengeToken создаёт challenge JWT с заданным временем жизни.
// expiration — время жизни токена. Если <= 0, используется 5 минут.
func GenerateChallengeToken(secret, walletAddress, nonce string, expiration time.Duration) (string, error) {
	if expiration <= 0 {
		expiration = 5 * time.Minute
	}

	claims := ChallengeClaims{
		WalletAddress: walletAddress,
		Nonce:         nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "goongpt",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseChallengeToken(secret string, tokenStr string) (*ChallengeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ChallengeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
