package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/internal/auth"
	"newsroom/internal/domain"
	"newsroom/internal/repository/sqlite"
	"newsroom/internal/service"
)

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenService
	users  service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	articleRepo := sqlite.NewArticleRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, articleRepo.Init(ctx))

	tokens := auth.NewTokenService([]byte("test-secret"), 5*time.Hour, auth.NewMemoryRevoker())
	users := service.NewUserService(userRepo)
	articles := service.NewArticleService(articleRepo)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	router := gin.New()
	NewHandler(users, articles, tokens, nil, logger).RegisterRoutes(router)

	return &testServer{router: router, tokens: tokens, users: users}
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) register(t *testing.T, username, email, password string) string {
	t.Helper()
	rec := s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]string](t, rec)
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}](t, rec)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// promote flips an account to the admin role directly in the store;
// role changes are out of scope for the API itself.
func (s *testServer) createAdmin(t *testing.T) string {
	t.Helper()
	s.register(t, "root", "root@x.com", "rootsecret")

	user, err := s.users.Authenticate(context.Background(), "root@x.com", "rootsecret")
	require.NoError(t, err)

	admin := *user
	admin.Role = domain.RoleAdmin
	token, err := s.tokens.Issue(&admin)
	require.NoError(t, err)
	return token
}

func TestRegisterLoginMeScenario(t *testing.T) {
	s := newTestServer(t)

	// register alice
	rec := s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	registerResp := decode[map[string]string](t, rec)
	assert.Equal(t, "User registered successfully!", registerResp["msg"])
	assert.NotEmpty(t, registerResp["token"])

	// login with the same credentials
	rec = s.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	loginResp := decode[struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}](t, rec)
	assert.Equal(t, "alice", loginResp.User.Username)
	assert.Equal(t, "user", loginResp.User.Role)

	// whoami with the fresh token
	rec = s.request(t, http.MethodGet, "/api/auth/me", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[UserResponse](t, rec)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "user", me.Role)

	// tampered token is rejected
	tampered := loginResp.Token[:len(loginResp.Token)-1]
	if loginResp.Token[len(loginResp.Token)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}
	rec = s.request(t, http.MethodGet, "/api/auth/me", tampered, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterConflictsAndValidation(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "a@x.com", "secret1")

	// duplicate email, different username
	rec := s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "a@x.com", "password": "secret2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// duplicate username, different email
	rec = s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "b@x.com", "password": "secret2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing fields
	rec = s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "a@x.com", "secret1")

	rec := s.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "a@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[map[string]string](t, rec)
	assert.Equal(t, "Invalid Credentials", resp["msg"])
}

func TestArticleOwnershipScenario(t *testing.T) {
	s := newTestServer(t)

	aliceToken := s.register(t, "alice", "a@x.com", "secret1")
	bobToken := s.register(t, "bob", "b@x.com", "secret2")
	adminToken := s.createAdmin(t)

	// alice creates an article; owner and author come from her token
	rec := s.request(t, http.MethodPost, "/api/articles", aliceToken, gin.H{
		"title": "T", "content": "C", "category": "Cat",
		"author": "mallory", // advisory only, must be ignored
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ArticleResponse](t, rec)
	assert.Equal(t, "alice", created.Author)
	assert.NotEmpty(t, created.Owner)

	// bob cannot update it
	rec = s.request(t, http.MethodPut, "/api/articles/"+created.ID, bobToken, gin.H{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// admin can
	rec = s.request(t, http.MethodPut, "/api/articles/"+created.ID, adminToken, gin.H{
		"title": "Moderated",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[ArticleResponse](t, rec)
	assert.Equal(t, "Moderated", updated.Title)
	assert.Equal(t, created.Owner, updated.Owner)

	// bob cannot delete, alice can
	rec = s.request(t, http.MethodDelete, "/api/articles/"+created.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(t, http.MethodDelete, "/api/articles/"+created.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestArticleReadsAreUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	aliceToken := s.register(t, "alice", "a@x.com", "secret1")

	rec := s.request(t, http.MethodPost, "/api/articles", aliceToken, gin.H{
		"title": "Visible To All", "content": "C", "category": "Cat",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[ArticleResponse](t, rec)

	rec = s.request(t, http.MethodGet, "/api/articles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ArticleResponse](t, rec)
	require.Len(t, list, 1)

	rec = s.request(t, http.MethodGet, "/api/articles/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(t, http.MethodGet, "/api/articles/slug/"+created.Slug, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArticleWritesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, http.MethodPost, "/api/articles", "", gin.H{
		"title": "T", "content": "C", "category": "Cat",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestArticleSearchQuery(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice", "a@x.com", "secret1")

	titles := map[string]string{
		"Tech Giant Unveils Chip": "Business",
		"Gadget Roundup":          "Technology",
		"Marathon Recap":          "Sports",
	}
	for title, category := range titles {
		rec := s.request(t, http.MethodPost, "/api/articles", token, gin.H{
			"title": title, "content": "body", "category": category,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.request(t, http.MethodGet, "/api/articles?query=tech", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]ArticleResponse](t, rec)
	require.Len(t, results, 2)
	for _, article := range results {
		assert.NotEqual(t, "Marathon Recap", article.Title)
	}
}

func TestArticleMalformedAndMissingIDs(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, http.MethodGet, "/api/articles/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.request(t, http.MethodGet, "/api/articles/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "a@x.com", "secret1")

	expired := auth.NewTokenService([]byte("test-secret"), -time.Minute, nil)
	user, err := s.users.Authenticate(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	token, err := expired.Issue(user)
	require.NoError(t, err)

	rec := s.request(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice", "a@x.com", "secret1")

	rec := s.request(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// with the revocation list configured the token dies immediately
	rec = s.request(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMediaUploadUnavailableWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice", "a@x.com", "secret1")

	req := httptest.NewRequest(http.MethodPost, "/api/media", bytes.NewReader(nil))
	req.Header.Set(TokenHeader, token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
