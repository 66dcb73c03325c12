package services

import (
	"fmt"
	"sync"
	"testing"

	"lms/internal/models"
	"lms/pkg/identity"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 每个测试独立的内存数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&models.Account{}, &models.EducatorRequest{}); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	return db
}

// fakeIdentity 测试用的身份提供方替身
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]*identity.Account
	nextID   int

	// 注入的错误，非nil时对应方法直接返回
	getErr     error
	createErr  error
	setRoleErr error
	deleteErr  error

	// 记录SetRole调用，格式 "账号ID=角色"
	roleCalls []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: make(map[string]*identity.Account),
	}
}

func (f *fakeIdentity) addAccount(id, email, role string) *identity.Account {
	f.mu.Lock()
	defer f.mu.Unlock()

	account := &identity.Account{
		ID:    id,
		Email: email,
		Role:  role,
	}
	f.accounts[id] = account
	return account
}

func (f *fakeIdentity) GetAccount(accountID string) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, identity.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeIdentity) CreateAccount(params identity.CreateAccountParams) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Email == params.Email {
			return nil, identity.ErrEmailTaken
		}
	}

	f.nextID++
	account := &identity.Account{
		ID:        fmt.Sprintf("user_%d", f.nextID),
		Email:     params.Email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Role:      params.Role,
	}
	f.accounts[account.ID] = account

	copied := *account
	return &copied, nil
}

func (f *fakeIdentity) SetRole(accountID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setRoleErr != nil {
		return f.setRoleErr
	}
	f.roleCalls = append(f.roleCalls, accountID+"="+role)
	if account, ok := f.accounts[accountID]; ok {
		account.Role = role
	}
	return nil
}

func (f *fakeIdentity) DeleteAccount(accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.accounts[accountID]; !ok {
		return identity.ErrNotFound
	}
	delete(f.accounts, accountID)
	return nil
}
