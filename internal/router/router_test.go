package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/farmchain/internal/config"
	"github.com/javajoker/farmchain/internal/database"
	"github.com/javajoker/farmchain/internal/i18n"
	"github.com/javajoker/farmchain/internal/registry"
	"github.com/javajoker/farmchain/internal/services"
	"github.com/javajoker/farmchain/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
	Meta    json.RawMessage `json:"meta"`
}

type authData struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Token string `json:"token"`
}

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
	stop   func()
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	require.NoError(suite.T(), i18n.Initialize())

	cfg := &config.Config{
		Environment: "test",
		Database:    config.DatabaseConfig{Driver: "memory"},
		JWT:         config.JWTConfig{SecretKey: "router-test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 2},
		Storage:     config.StorageConfig{LocalPath: suite.T().TempDir(), SnapshotFolder: "snapshots"},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"*"}},
		Registry:    config.RegistryConfig{MaxNameBytes: 64},
	}

	storage, err := services.NewStorageService(cfg)
	require.NoError(suite.T(), err)
	products := services.NewProductService(registry.New(), storage, cfg.Registry.MaxNameBytes, cfg.Storage.SnapshotFolder)

	suite.router, suite.stop = Initialize(cfg, Services{
		Auth:     services.NewAuthService(database.NewMemoryUserStore(), cfg),
		Products: products,
		Payments: services.NewPaymentService(products, cfg),
	})
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.stop()
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(suite.T(), err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (suite *RouterTestSuite) register(username string) authData {
	w, env := suite.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "Harvest#2024",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var data authData
	require.NoError(suite.T(), json.Unmarshal(env.Data, &data))
	return data
}

func (suite *RouterTestSuite) TestHealth() {
	w, _ := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotEmpty(suite.T(), w.Header().Get("X-Request-ID"))
}

func (suite *RouterTestSuite) TestRegisterAndLogin() {
	alice := suite.register("alice")
	assert.NotEmpty(suite.T(), alice.Token)

	w, _ := suite.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "alice",
		"password": "Harvest#2024",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "Wrong#2024",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, env := suite.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "Harvest#2024",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var login authData
	require.NoError(suite.T(), json.Unmarshal(env.Data, &login))
	assert.Equal(suite.T(), alice.User.ID, login.User.ID)

	w, env = suite.do(http.MethodGet, "/v1/auth/me", login.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(env.Data), alice.User.ID)
}

func (suite *RouterTestSuite) TestProductFlow() {
	alice := suite.register("alice")
	bob := suite.register("bob")

	// The owner comes from the token, never from the body.
	w, env := suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{
		"name":  "Apples",
		"price": 250,
		"owner": bob.User.ID,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Product services.ProductView `json:"product"`
	}
	require.NoError(suite.T(), json.Unmarshal(env.Data, &created))
	assert.Equal(suite.T(), uint64(1), created.Product.ID)
	assert.Equal(suite.T(), alice.User.ID, created.Product.Owner)

	w, env = suite.do(http.MethodPost, "/v1/products", bob.Token, map[string]interface{}{
		"name":  "Oranges",
		"price": 180,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	require.NoError(suite.T(), json.Unmarshal(env.Data, &created))
	assert.Equal(suite.T(), uint64(2), created.Product.ID)
	assert.Equal(suite.T(), bob.User.ID, created.Product.Owner)

	w, env = suite.do(http.MethodGet, "/v1/products/1", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var apples services.ProductView
	require.NoError(suite.T(), json.Unmarshal(env.Data, &apples))
	assert.Equal(suite.T(), "Apples", apples.Name)
	assert.Equal(suite.T(), uint64(250), apples.Price)
	assert.Equal(suite.T(), alice.User.ID, apples.Owner)

	w, env = suite.do(http.MethodGet, "/v1/products/3", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", env.Error.Code)

	w, _ = suite.do(http.MethodGet, "/v1/products/apples", "", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, env = suite.do(http.MethodGet, "/v1/products", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var list []services.ProductView
	require.NoError(suite.T(), json.Unmarshal(env.Data, &list))
	require.Len(suite.T(), list, 2)
	assert.Equal(suite.T(), uint64(1), list[0].ID)
	assert.Equal(suite.T(), uint64(2), list[1].ID)
	assert.JSONEq(suite.T(), `{"count":2}`, string(env.Meta))
}

func (suite *RouterTestSuite) TestCreateProductRejects() {
	alice := suite.register("alice")

	w, _ := suite.do(http.MethodPost, "/v1/products", "", map[string]interface{}{"name": "Apples", "price": 1})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/products", "not-a-token", map[string]interface{}{"name": "Apples", "price": 1})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, env := suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{"name": "Apples"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", env.Error.Code)

	w, _ = suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{
		"name":  strings.Repeat("x", 65),
		"price": 1,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{"name": "Apples", "price": -1})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, env = suite.do(http.MethodGet, "/v1/products", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"count":0}`, string(env.Meta))
}

func (suite *RouterTestSuite) TestBinaryNameRoundTrip() {
	alice := suite.register("alice")

	w, _ := suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{
		"name_base64": "AP8Q",
		"price":       uint64(18446744073709551615),
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	w, env := suite.do(http.MethodGet, "/v1/products/1", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var view services.ProductView
	require.NoError(suite.T(), json.Unmarshal(env.Data, &view))
	assert.Equal(suite.T(), "AP8Q", view.NameBase64)
	assert.False(suite.T(), view.NameIsText)
	assert.Equal(suite.T(), uint64(18446744073709551615), view.Price)
}

func (suite *RouterTestSuite) TestPaymentIntentDisabled() {
	alice := suite.register("alice")
	_, _ = suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{"name": "Apples", "price": 250})

	w, env := suite.do(http.MethodPost, "/v1/products/1/payment-intent", alice.Token, nil)
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
	assert.Equal(suite.T(), "SERVICE_UNAVAILABLE", env.Error.Code)
}

func (suite *RouterTestSuite) TestExport() {
	alice := suite.register("alice")
	_, _ = suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{"name": "Apples", "price": 250})

	w, env := suite.do(http.MethodPost, "/v1/products/export", alice.Token, nil)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Export services.ExportResult `json:"export"`
	}
	require.NoError(suite.T(), json.Unmarshal(env.Data, &data))
	assert.Equal(suite.T(), 1, data.Export.ProductCount)
	assert.Equal(suite.T(), uint64(2), data.Export.NextID)
}

func (suite *RouterTestSuite) TestUnknownRouteUsesEnvelope() {
	w, env := suite.do(http.MethodGet, "/v1/nope", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Contains(suite.T(), w.Header().Get("Content-Type"), "application/json")
	assert.False(suite.T(), env.Success)
	require.NotNil(suite.T(), env.Error)
	assert.Equal(suite.T(), "NOT_FOUND", env.Error.Code)
	assert.Equal(suite.T(), "Resource not found", env.Error.Message)
}

func (suite *RouterTestSuite) TestWrongMethodUsesEnvelope() {
	w, env := suite.do(http.MethodDelete, "/v1/products/1", "", nil)
	assert.Equal(suite.T(), http.StatusMethodNotAllowed, w.Code)
	require.NotNil(suite.T(), env.Error)
	assert.Equal(suite.T(), "METHOD_NOT_ALLOWED", env.Error.Code)
}

func (suite *RouterTestSuite) TestPanicUsesEnvelope() {
	suite.router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w, env := suite.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	require.NotNil(suite.T(), env.Error)
	assert.Equal(suite.T(), "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(suite.T(), "Internal server error", env.Error.Message)
}

func (suite *RouterTestSuite) TestHealthCountsProducts() {
	alice := suite.register("alice")
	_, _ = suite.do(http.MethodPost, "/v1/products", alice.Token, map[string]interface{}{"name": "Apples", "price": 250})

	w, _ := suite.do(http.MethodGet, "/health", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var health struct {
		Products int `json:"products"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(suite.T(), 1, health.Products)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
