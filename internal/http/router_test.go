package http

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/auth"
	"github.com/goongpt/backend/internal/config"
	"github.com/goongpt/backend/internal/http/handlers"
	"github.com/goongpt/backend/internal/ratelimit"
	"github.com/goongpt/backend/internal/repositories"
	"github.com/goongpt/backend/internal/services"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	app    *fiber.App
	anon   *ratelimit.MemoryLimiter
	wallet string
	priv   ed25519.PrivateKey
}

// newTestEnv поднимает приложение на файловом бэкенде с провайдерами,
// замоканными одним httptest-сервером.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"output":"generated"}`))
	}))
	t.Cleanup(provider.Close)

	cfg := &config.Config{
		StorageBackend:   config.BackendFile,
		ChallengeSecret:  "test-secret",
		ChallengeTTL:     5 * time.Minute,
		SecureCookies:    false,
		ModelsLabBaseURL: provider.URL,
		VeniceBaseURL:    provider.URL,
		ReplicateBaseURL: provider.URL,
		ProviderTimeout:  5 * time.Second,
		DailyTokenCap:    100,
		TokenEarnAmount:  10,
	}

	log := zap.NewNop()

	fs, err := repositories.NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)

	anon := ratelimit.NewMemoryLimiter()
	limiter := ratelimit.NewLimiter(fs, anon, log)
	nonces := auth.NewMemoryNonceStore()

	authService := services.NewAuthService(fs, fs.Sessions(), nonces, fs, cfg, log)
	modelslab := services.NewModelsLabClient(cfg.ModelsLabBaseURL, "", cfg.ProviderTimeout, log)
	venice := services.NewVeniceClient(cfg.VeniceBaseURL, "", cfg.ProviderTimeout, log)
	replicate := services.NewReplicateClient(cfg.ReplicateBaseURL, "", cfg.ProviderTimeout, log)
	generation := services.NewGenerationService(modelslab, venice, replicate, log)

	app := fiber.New()
	SetupRouter(app, log, limiter, fs, authService,
		handlers.NewAuthHandler(authService, cfg, log),
		handlers.NewUserHandler(fs, cfg, log),
		handlers.NewGenerationHandler(generation, log),
	)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return &testEnv{
		app:    app,
		anon:   anon,
		wallet: base58.Encode(pub),
		priv:   priv,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) (*nethttp.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

// signChallenge запрашивает challenge и подписывает его тестовым ключом.
func (e *testEnv) signChallenge(t *testing.T) (message, signed, challengeToken string) {
	t.Helper()
	resp, body := e.request(t, "POST", "/api/v1/auth/challenge", map[string]any{"wallet_address": e.wallet}, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	message, _ = body["message"].(string)
	challengeToken, _ = body["challenge_token"].(string)
	require.NotEmpty(t, message)
	require.NotEmpty(t, challengeToken)

	sig := ed25519.Sign(e.priv, []byte(message))
	return message, base64.StdEncoding.EncodeToString(sig), challengeToken
}

func sessionCookie(resp *nethttp.Response) *nethttp.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthFlow_RegistrationAndLogin(t *testing.T) {
	e := newTestEnv(t)

	// Логин без регистрации: подпись валидна, юзера нет
	message, signed, token := e.signChallenge(t)
	resp, body := e.request(t, "POST", "/api/v1/auth", map[string]any{
		"wallet_address":  e.wallet,
		"signed_message":  signed,
		"message":         message,
		"challenge_token": token,
	}, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, true, body["needs_registration"])
	assert.Nil(t, body["token"])

	// Регистрация выдаёт сессию и cookie
	resp, body = e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "gooner_1",
	}, nil)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, body["token"])
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)

	// Сессия по cookie
	resp, body = e.request(t, "GET", "/api/v1/session", nil, map[string]string{
		"Cookie": auth.SessionCookieName + "=" + cookie.Value,
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	user, _ := body["user"].(map[string]any)
	require.NotNil(t, user)
	assert.Equal(t, "gooner_1", user["username"])

	// Повторный логин зарегистрированного кошелька — сразу сессия
	message, signed, token = e.signChallenge(t)
	resp, body = e.request(t, "POST", "/api/v1/auth", map[string]any{
		"wallet_address":  e.wallet,
		"signed_message":  signed,
		"message":         message,
		"challenge_token": token,
	}, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Nil(t, body["needs_registration"])
	assert.NotEmpty(t, body["token"])
	assert.NotNil(t, body["user"])
}

func TestAuth_InvalidSignature(t *testing.T) {
	e := newTestEnv(t)

	message, _, token := e.signChallenge(t)
	_, otherPriv, _ := ed25519.GenerateKey(nil)
	badSig := base64.StdEncoding.EncodeToString(ed25519.Sign(otherPriv, []byte(message)))

	resp, body := e.request(t, "POST", "/api/v1/auth", map[string]any{
		"wallet_address":  e.wallet,
		"signed_message":  badSig,
		"message":         message,
		"challenge_token": token,
	}, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestAuth_ChallengeReplayRejected(t *testing.T) {
	e := newTestEnv(t)

	// Регистрируем, чтобы логин проходил полностью
	resp, _ := e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "replay_user",
	}, nil)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	message, signed, token := e.signChallenge(t)
	payload := map[string]any{
		"wallet_address":  e.wallet,
		"signed_message":  signed,
		"message":         message,
		"challenge_token": token,
	}

	resp, _ = e.request(t, "POST", "/api/v1/auth", payload, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// Тот же challenge второй раз — nonce уже сгорел
	resp, _ = e.request(t, "POST", "/api/v1/auth", payload, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "x!", // короткий и с недопустимым символом
	}, nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	fields, _ := body["fields"].(map[string]any)
	assert.Contains(t, fields, "username")

	// Кошелёк, не являющийся base58 Ed25519-ключом, не регистрируется
	resp, body = e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": "not-a-solana-wallet!",
		"username":       "valid_name",
	}, nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	fields, _ = body["fields"].(map[string]any)
	assert.Contains(t, fields, "wallet_address")
}

func TestRegister_DuplicateConflict(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "original",
	}, nil)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	// Тот же кошелёк
	resp, _ = e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "different",
	}, nil)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)

	// Тот же username, другой кошелёк
	pub, _, _ := ed25519.GenerateKey(nil)
	resp, _ = e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": base58.Encode(pub),
		"username":       "original",
	}, nil)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
}

func TestLogout_Idempotent(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "bye_user",
	}, nil)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	headers := map[string]string{"Cookie": auth.SessionCookieName + "=" + cookie.Value}

	resp, body := e.request(t, "POST", "/api/v1/logout", nil, headers)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// Второй logout с той же (уже мёртвой) cookie — тоже успех и тоже чистит
	resp, body = e.request(t, "POST", "/api/v1/logout", nil, headers)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, sessionCookie(resp))

	// Сессии больше нет
	resp, body = e.request(t, "GET", "/api/v1/session", nil, headers)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])
}

func TestRateLimit_AnonymousImage(t *testing.T) {
	e := newTestEnv(t)
	headers := map[string]string{"X-Forwarded-For": "9.9.9.9"}
	payload := map[string]any{"prompt": "a painting"}

	// image: 2 анонимных запроса в окно
	for i := 0; i < 2; i++ {
		resp, _ := e.request(t, "POST", "/api/v1/image", payload, headers)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp, body := e.request(t, "POST", "/api/v1/image", payload, headers)
	require.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	assert.EqualValues(t, 0, body["remaining"])
	retryAfter, _ := body["retryAfter"].(float64)
	assert.GreaterOrEqual(t, retryAfter, float64(1))
	assert.LessOrEqual(t, retryAfter, float64(60))

	// Другой IP не задет
	resp, _ = e.request(t, "POST", "/api/v1/image", payload, map[string]string{"X-Forwarded-For": "8.8.8.8"})
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestRateLimit_WalletIdentityFromBody(t *testing.T) {
	e := newTestEnv(t)
	headers := map[string]string{"X-Forwarded-For": "7.7.7.7"}

	// С wallet_address в теле работает авторизованная квота (chat: 15),
	// анонимный потолок в 3 запроса не срабатывает.
	payload := map[string]any{"wallet_address": "W1", "prompt": "hi"}
	for i := 0; i < 15; i++ {
		resp, _ := e.request(t, "POST", "/api/v1/chat", payload, headers)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp, _ := e.request(t, "POST", "/api/v1/chat", payload, headers)
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "15", resp.Header.Get("X-RateLimit-Limit"))
}

func TestProtectedEndpoints(t *testing.T) {
	e := newTestEnv(t)

	// Без сессии — 401
	resp, _ := e.request(t, "GET", "/api/v1/me", nil, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, body := e.request(t, "POST", "/api/v1/register", map[string]any{
		"wallet_address": e.wallet,
		"username":       "profile_user",
	}, nil)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	headers := map[string]string{"Authorization": "Bearer " + token}

	// Bearer-токен работает наравне с cookie
	resp, body = e.request(t, "GET", "/api/v1/me", nil, headers)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	user, _ := body["user"].(map[string]any)
	assert.Equal(t, "profile_user", user["username"])

	// Обновление профиля
	resp, body = e.request(t, "PUT", "/api/v1/profile", map[string]any{
		"username": "renamed_user",
		"email":    "user@example.com",
	}, headers)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	user, _ = body["user"].(map[string]any)
	assert.Equal(t, "renamed_user", user["username"])
	assert.Equal(t, "user@example.com", user["email"])

	// Начисление токенов с дневным потолком: 100 / 10 за запрос
	for i := 0; i < 10; i++ {
		resp, _ = e.request(t, "POST", "/api/v1/me/tokens/earn", nil, headers)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode, "earn %d", i+1)
	}
	resp, _ = e.request(t, "POST", "/api/v1/me/tokens/earn", nil, headers)
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
}

func TestSession_NeverErrorsToClient(t *testing.T) {
	e := newTestEnv(t)

	// Мусорный токен — не ошибка, а authenticated:false
	resp, body := e.request(t, "GET", "/api/v1/session", nil, map[string]string{
		"Cookie": auth.SessionCookieName + "=not-a-real-token",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["user"])
}
