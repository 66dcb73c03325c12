package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientGetAccount(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"id": "user_1",
			"first_name": "San",
			"last_name": "Zhang",
			"image_url": "https://img.example.com/1.png",
			"email_addresses": [{"email_address": "zhang@example.com", "verification": {"status": "verified"}}],
			"public_metadata": {"role": "educator"},
			"last_sign_in_at": 1756700000000
		}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "sk_test_123", time.Second)
	account, err := c.GetAccount("user_1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}

	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("认证头错误: %s", gotAuth)
	}
	if gotPath != "/users/user_1" {
		t.Fatalf("请求路径错误: %s", gotPath)
	}
	if account.Role != RoleEducator {
		t.Fatalf("角色错误: %s", account.Role)
	}
	if account.Email != "zhang@example.com" || !account.EmailVerified {
		t.Fatalf("邮箱解析错误: %+v", account)
	}
	if account.LastSignInAt == nil || account.LastSignInAt.UnixMilli() != 1756700000000 {
		t.Fatalf("登录时间解析错误: %v", account.LastSignInAt)
	}
}

func TestHTTPClientGetAccountNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "sk_test_123", time.Second)
	if _, err := c.GetAccount("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound, 实际 %v", err)
	}
}

func TestHTTPClientCreateAccount(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users" {
			t.Errorf("意外请求: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id": "user_new", "first_name": "Si", "last_name": "Li", "email_addresses": [{"email_address": "li@example.com"}], "public_metadata": {"role": "student"}}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "sk_test_123", time.Second)
	account, err := c.CreateAccount(CreateAccountParams{
		Email:     "li@example.com",
		Password:  "secret-pass",
		FirstName: "Si",
		LastName:  "Li",
		Role:      RoleStudent,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if account.ID != "user_new" {
		t.Fatalf("账号ID错误: %s", account.ID)
	}

	meta, _ := gotBody["public_metadata"].(map[string]interface{})
	if meta["role"] != RoleStudent {
		t.Fatalf("角色应写入public_metadata: %v", gotBody)
	}
	if gotBody["password"] != "secret-pass" {
		t.Fatalf("密码应透传提供方: %v", gotBody["password"])
	}
}

func TestHTTPClientCreateAccountEmailTaken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors": [{"code": "form_identifier_exists", "message": "That email address is taken."}]}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "sk_test_123", time.Second)
	_, err := c.CreateAccount(CreateAccountParams{Email: "dup@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("期望 ErrEmailTaken, 实际 %v", err)
	}
}

func TestHTTPClientSetRole(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "sk_test_123", time.Second)
	if err := c.SetRole("user_1", RoleEducator); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	if gotMethod != http.MethodPatch || gotPath != "/users/user_1/metadata" {
		t.Fatalf("意外请求: %s %s", gotMethod, gotPath)
	}
	meta, _ := gotBody["public_metadata"].(map[string]interface{})
	if meta["role"] != RoleEducator {
		t.Fatalf("角色更新报文错误: %v", gotBody)
	}
}

func TestHTTPClientDeleteAccountNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "sk_test_123", time.Second)
	if err := c.DeleteAccount("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound, 实际 %v", err)
	}
}
