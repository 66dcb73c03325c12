package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient 身份提供方HTTP客户端
type HTTPClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTPClient 创建身份提供方客户端
func NewHTTPClient(baseURL, secretKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ========== 提供方接口报文 ==========

type providerAccount struct {
	ID             string           `json:"id"`
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	ImageURL       string           `json:"image_url"`
	EmailAddresses []providerEmail  `json:"email_addresses"`
	PublicMetadata providerMetadata `json:"public_metadata"`
	LastSignInAt   *int64           `json:"last_sign_in_at"` // 毫秒时间戳
}

type providerEmail struct {
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type providerMetadata struct {
	Role string `json:"role"`
}

type providerError struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *providerAccount) toAccount() *Account {
	account := &Account{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		AvatarURL: p.ImageURL,
		Role:      p.PublicMetadata.Role,
	}
	if len(p.EmailAddresses) > 0 {
		account.Email = p.EmailAddresses[0].EmailAddress
		account.EmailVerified = p.EmailAddresses[0].Verification.Status == "verified"
	}
	if p.LastSignInAt != nil {
		t := time.UnixMilli(*p.LastSignInAt)
		account.LastSignInAt = &t
	}
	return account
}

// ========== Client接口实现 ==========

// GetAccount 查询账号
func (c *HTTPClient) GetAccount(accountID string) (*Account, error) {
	body, err := c.do(http.MethodGet, "/users/"+accountID, nil)
	if err != nil {
		return nil, err
	}

	var pa providerAccount
	if err := json.Unmarshal(body, &pa); err != nil {
		return nil, fmt.Errorf("解析账号响应失败: %v", err)
	}
	return pa.toAccount(), nil
}

// CreateAccount 创建账号
func (c *HTTPClient) CreateAccount(params CreateAccountParams) (*Account, error) {
	payload := map[string]interface{}{
		"email_address": []string{params.Email},
		"password":      params.Password,
		"first_name":    params.FirstName,
		"last_name":     params.LastName,
		"public_metadata": map[string]string{
			"role": params.Role,
		},
	}

	body, err := c.do(http.MethodPost, "/users", payload)
	if err != nil {
		return nil, err
	}

	var pa providerAccount
	if err := json.Unmarshal(body, &pa); err != nil {
		return nil, fmt.Errorf("解析账号响应失败: %v", err)
	}
	return pa.toAccount(), nil
}

// SetRole 设置账号角色
func (c *HTTPClient) SetRole(accountID, role string) error {
	payload := map[string]interface{}{
		"public_metadata": map[string]string{
			"role": role,
		},
	}
	_, err := c.do(http.MethodPatch, "/users/"+accountID+"/metadata", payload)
	return err
}

// DeleteAccount 删除账号
func (c *HTTPClient) DeleteAccount(accountID string) error {
	_, err := c.do(http.MethodDelete, "/users/"+accountID, nil)
	return err
}

// do 发送请求并归一化错误
func (c *HTTPClient) do(method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求身份提供方失败: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %v", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	// 解析提供方错误码
	var pe providerError
	if err := json.Unmarshal(body, &pe); err == nil && len(pe.Errors) > 0 {
		if pe.Errors[0].Code == "form_identifier_exists" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("身份提供方返回错误: %s", pe.Errors[0].Message)
	}

	return nil, fmt.Errorf("身份提供方请求失败: status=%d", resp.StatusCode)
}
