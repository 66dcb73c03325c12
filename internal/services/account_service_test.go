package services

import (
	"errors"
	"testing"

	"lms/internal/models"
	apperrors "lms/pkg/errors"
	"lms/pkg/identity"
	"lms/pkg/pagination"

	"gorm.io/gorm"
)

func newAccountFixture(t *testing.T) (*AccountService, *gorm.DB, *fakeIdentity) {
	t.Helper()
	db := newTestDB(t)
	idp := newFakeIdentity()
	return NewAccountService(db, idp), db, idp
}

func TestAccountList(t *testing.T) {
	svc, db, idp := newAccountFixture(t)

	db.Create(&models.Account{ID: "user_1", Email: "a@example.com", Name: "San Zhang"})
	db.Create(&models.Account{ID: "user_2", Email: "b@example.com", Name: "Si Li"})
	idp.addAccount("user_1", "a@example.com", identity.RoleEducator)
	// user_2 在提供方侧查不到，降级为默认角色

	views, total, err := svc.List(&pagination.PageParams{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(views) != 2 {
		t.Fatalf("期望2条, 实际 total=%d len=%d", total, len(views))
	}

	byID := map[string]*AccountView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	if byID["user_1"].Role != identity.RoleEducator {
		t.Fatalf("角色应取自提供方: %s", byID["user_1"].Role)
	}
	if byID["user_2"].Role != identity.RoleStudent {
		t.Fatalf("提供方缺失时降级为student: %s", byID["user_2"].Role)
	}
}

func TestAccountGet(t *testing.T) {
	svc, db, _ := newAccountFixture(t)
	db.Create(&models.Account{ID: "user_1", Email: "a@example.com", Name: "San Zhang"})

	account, err := svc.Get("user_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if account.Email != "a@example.com" {
		t.Fatalf("账号字段错误: %+v", account)
	}

	if _, err := svc.Get("ghost"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("期望404, 实际 %v", err)
	}
}

func TestAccountDelete(t *testing.T) {
	svc, db, idp := newAccountFixture(t)
	db.Create(&models.Account{ID: "user_1", Email: "a@example.com"})
	idp.addAccount("user_1", "a@example.com", identity.RoleStudent)

	if err := svc.Delete("user_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := idp.GetAccount("user_1"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatal("提供方侧账号应已删除")
	}
	var count int64
	db.Model(&models.Account{}).Where("id = ?", "user_1").Count(&count)
	if count != 0 {
		t.Fatal("本地投影应已删除")
	}
}

// 提供方侧已不存在时容忍，仅清理本地投影
func TestAccountDeleteProviderMissing(t *testing.T) {
	svc, db, _ := newAccountFixture(t)
	db.Create(&models.Account{ID: "user_1", Email: "a@example.com"})

	if err := svc.Delete("user_1"); err != nil {
		t.Fatalf("提供方缺失应被容忍: %v", err)
	}

	var count int64
	db.Model(&models.Account{}).Where("id = ?", "user_1").Count(&count)
	if count != 0 {
		t.Fatal("本地投影应已删除")
	}
}

// 提供方不可达时中止，不动本地投影
func TestAccountDeleteProviderDown(t *testing.T) {
	svc, db, idp := newAccountFixture(t)
	db.Create(&models.Account{ID: "user_1", Email: "a@example.com"})
	idp.deleteErr = errors.New("connection refused")

	if err := svc.Delete("user_1"); !apperrors.IsCode(err, apperrors.CodeUpstream) {
		t.Fatalf("期望502, 实际 %v", err)
	}

	var count int64
	db.Model(&models.Account{}).Where("id = ?", "user_1").Count(&count)
	if count != 1 {
		t.Fatal("提供方失败时本地投影不应删除")
	}
}

func TestAccountUpdateRole(t *testing.T) {
	svc, _, idp := newAccountFixture(t)
	idp.addAccount("user_1", "a@example.com", identity.RoleStudent)

	if err := svc.UpdateRole("user_1", identity.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	account, _ := idp.GetAccount("user_1")
	if account.Role != identity.RoleAdmin {
		t.Fatalf("提供方角色未更新: %s", account.Role)
	}

	if err := svc.UpdateRole("user_1", "superuser"); !apperrors.IsCode(err, apperrors.CodeInvalidParam) {
		t.Fatalf("非法角色期望400, 实际 %v", err)
	}

	idp.setRoleErr = identity.ErrNotFound
	if err := svc.UpdateRole("ghost", identity.RoleStudent); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("账号不存在期望404, 实际 %v", err)
	}
}
