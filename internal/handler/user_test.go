package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/middleware"
	"comfycloud/pkg/jwt"
	"comfycloud/pkg/log"
	mock_service "comfycloud/test/mocks/service"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type noRevocations struct{}

func (noRevocations) Revoke(ctx context.Context, token string, ttl time.Duration) error { return nil }

func (noRevocations) IsRevoked(ctx context.Context, token string) (bool, error) { return false, nil }

func testJwt() *jwt.JWT {
	conf := viper.New()
	conf.Set("security.jwt.key", "test-signing-key")
	return jwt.NewJwt(conf)
}

func newAuthAPI(t *testing.T, userService *mock_service.MockUserService) (*httpexpect.Expect, *jwt.JWT) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := &log.Logger{Logger: zap.NewNop()}
	j := testJwt()
	userHandler := NewUserHandler(NewHandler(logger), userService)

	router := gin.New()
	auth := router.Group("/api/auth")
	auth.POST("/register", userHandler.Register)
	auth.POST("/login", userHandler.Login)
	auth.GET("/me", middleware.StrictAuth(j, noRevocations{}, logger), userHandler.GetProfile)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return httpexpect.Default(t, server.URL), j
}

func TestRegisterHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	userService := mock_service.NewMockUserService(ctrl)
	api, _ := newAuthAPI(t, userService)

	userService.EXPECT().Register(gomock.Any(), gomock.Any()).Return(&v1.AuthResponse{
		Token: "issued-token",
		User:  v1.UserInfo{Id: 1, Username: "alice", Tier: "basic"},
	}, nil)

	obj := api.POST("/api/auth/register").
		WithJSON(map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "secret123",
		}).
		Expect().Status(http.StatusOK).
		JSON().Object()
	obj.Value("token").String().IsEqual("issued-token")
	obj.Value("user").Object().Value("username").String().IsEqual("alice")
}

func TestRegisterHandlerValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	userService := mock_service.NewMockUserService(ctrl)
	api, _ := newAuthAPI(t, userService)

	// Bad email never reaches the service.
	api.POST("/api/auth/register").
		WithJSON(map[string]string{
			"username": "alice",
			"email":    "not-an-email",
			"password": "secret123",
		}).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().ContainsKey("error")
}

func TestLoginHandlerConflictMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	userService := mock_service.NewMockUserService(ctrl)
	api, _ := newAuthAPI(t, userService)

	userService.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, v1.ErrUnauthorized)

	api.POST("/api/auth/login").
		WithJSON(map[string]string{"username": "alice", "password": "wrong"}).
		Expect().Status(http.StatusUnauthorized).
		JSON().Object().ContainsKey("error")
}

func TestGetProfileRequiresToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	userService := mock_service.NewMockUserService(ctrl)
	api, _ := newAuthAPI(t, userService)

	api.GET("/api/auth/me").
		Expect().Status(http.StatusUnauthorized)

	api.GET("/api/auth/me").
		WithHeader("Authorization", "Bearer not-a-token").
		Expect().Status(http.StatusUnauthorized)
}

func TestGetProfileWithToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	userService := mock_service.NewMockUserService(ctrl)
	api, j := newAuthAPI(t, userService)

	token, err := j.GenToken(strconv.FormatInt(7, 10), "user", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	userService.EXPECT().GetProfile(gomock.Any(), int64(7)).Return(&v1.UserInfo{
		Id:       7,
		Username: "alice",
		Tier:     "pro",
		Balance:  42.5,
	}, nil)

	obj := api.GET("/api/auth/me").
		WithHeader("Authorization", "Bearer "+token).
		Expect().Status(http.StatusOK).
		JSON().Object()
	obj.Value("id").Number().IsEqual(7)
	obj.Value("tier").String().IsEqual("pro")
}
