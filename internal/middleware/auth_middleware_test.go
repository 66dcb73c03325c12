package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "lms/pkg/errors"
	"lms/pkg/identity"
	sessionjwt "lms/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSessionKey = "test-session-key"

// fakeIdentity 角色查询替身
type fakeIdentity struct {
	accounts map[string]*identity.Account
	getErr   error
}

func (f *fakeIdentity) GetAccount(accountID string) (*identity.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return account, nil
}

func (f *fakeIdentity) CreateAccount(params identity.CreateAccountParams) (*identity.Account, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) SetRole(accountID, role string) error { return nil }

func (f *fakeIdentity) DeleteAccount(accountID string) error { return nil }

func newTestAuth(idp identity.Client) *AuthMiddleware {
	return &AuthMiddleware{
		idp:      idp,
		sessions: sessionjwt.NewSessionManager(testSessionKey),
	}
}

// signSessionToken 模拟提供方签发会话令牌
func signSessionToken(t *testing.T, accountID string) string {
	t.Helper()
	claims := &sessionjwt.SessionClaims{
		SessionID: "sess_1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSessionKey))
	if err != nil {
		t.Fatalf("签发测试令牌失败: %v", err)
	}
	return token
}

func newTestRouter(auth *AuthMiddleware, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	handlers := []gin.HandlerFunc{auth.RequireLogin()}
	if role != "" {
		handlers = append(handlers, auth.RequireRole(role))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": GetAccountID(c)})
	})

	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// 响应体里的业务码
func bodyCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	return body.Code
}

func TestRequireLogin(t *testing.T) {
	idp := &fakeIdentity{accounts: map[string]*identity.Account{}}
	r := newTestRouter(newTestAuth(idp), "")

	// 无认证头
	if w := doRequest(r, ""); bodyCode(t, w) != apperrors.CodeUnauthorized {
		t.Fatalf("无认证头期望401, 实际 %d", bodyCode(t, w))
	}

	// 非Bearer格式
	if w := doRequest(r, "Basic abc"); bodyCode(t, w) != apperrors.CodeUnauthorized {
		t.Fatal("非Bearer格式期望401")
	}

	// 错误密钥签发的令牌
	bad, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user_1",
	}).SignedString([]byte("wrong-key"))
	if w := doRequest(r, "Bearer "+bad); bodyCode(t, w) != apperrors.CodeUnauthorized {
		t.Fatal("伪造令牌期望401")
	}

	// 有效令牌放行并注入账号ID
	w := doRequest(r, "Bearer "+signSessionToken(t, "user_1"))
	if w.Code != http.StatusOK {
		t.Fatalf("有效令牌期望200, 实际 %d", w.Code)
	}
	var body struct {
		AccountID string `json:"account_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.AccountID != "user_1" {
		t.Fatalf("账号ID注入错误: %s", body.AccountID)
	}
}

// 角色按精确匹配：admin不会隐式通过educator检查
func TestRequireRoleExactMatch(t *testing.T) {
	idp := &fakeIdentity{accounts: map[string]*identity.Account{
		"edu_1":   {ID: "edu_1", Role: identity.RoleEducator},
		"admin_1": {ID: "admin_1", Role: identity.RoleAdmin},
	}}
	r := newTestRouter(newTestAuth(idp), identity.RoleEducator)

	if w := doRequest(r, "Bearer "+signSessionToken(t, "edu_1")); w.Code != http.StatusOK {
		t.Fatalf("educator应通过, 实际 %d", w.Code)
	}

	if w := doRequest(r, "Bearer "+signSessionToken(t, "admin_1")); bodyCode(t, w) != apperrors.CodeForbidden {
		t.Fatal("admin访问educator路由期望403")
	}
}

// 角色查询失败与权限不足必须区分：前者是上游错误
func TestRequireRoleLookupFailure(t *testing.T) {
	idp := &fakeIdentity{
		accounts: map[string]*identity.Account{},
		getErr:   errors.New("connection refused"),
	}
	r := newTestRouter(newTestAuth(idp), identity.RoleAdmin)

	w := doRequest(r, "Bearer "+signSessionToken(t, "user_1"))
	if code := bodyCode(t, w); code != apperrors.CodeUpstream {
		t.Fatalf("角色查询失败期望502, 实际 %d", code)
	}
}
