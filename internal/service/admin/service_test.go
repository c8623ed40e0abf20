package admin_test

import (
	"context"
	"errors"
	"testing"

	"cardroom-service/internal/config"
	"cardroom-service/internal/model"
	adminsvc "cardroom-service/internal/service/admin"
	appErr "cardroom-service/pkg/errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *adminsvc.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.Admin{}); err != nil {
		t.Fatalf("failed to migrate admin model: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM admins")
	})

	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expire: 1,
		},
		Admin: config.AdminSeedConfig{
			DefaultUsername: "bootstrap",
			DefaultPassword: "Bootstrap@123",
		},
	}

	return db, adminsvc.NewService(db)
}

func createAdmin(t *testing.T, db *gorm.DB, username, password, status string) *model.Admin {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	admin := &model.Admin{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  "Tester",
		Status:       status,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to insert admin: %v", err)
	}
	return admin
}

func TestLoginSuccess(t *testing.T) {
	db, svc := newTestService(t)
	createAdmin(t, db, "ops", "Secret@123", "active")

	result, err := svc.Login(context.Background(), "ops", "Secret@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a token")
	}
	if result.Admin.Username != "ops" {
		t.Fatalf("wrong admin returned: %+v", result.Admin)
	}

	var stored model.Admin
	if err := db.Where("username = ?", "ops").First(&stored).Error; err != nil {
		t.Fatalf("reload admin: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db, svc := newTestService(t)
	createAdmin(t, db, "ops", "Secret@123", "active")

	_, err := svc.Login(context.Background(), "ops", "wrong")
	if !errors.Is(err, appErr.ErrInvalidAdminPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
}

func TestLoginUnknownAdmin(t *testing.T) {
	_, svc := newTestService(t)
	_, err := svc.Login(context.Background(), "ghost", "whatever")
	if !errors.Is(err, appErr.ErrAdminNotFound) {
		t.Fatalf("expected admin not found, got %v", err)
	}
}

func TestLoginDisabledAdmin(t *testing.T) {
	db, svc := newTestService(t)
	createAdmin(t, db, "ops", "Secret@123", "disabled")

	_, err := svc.Login(context.Background(), "ops", "Secret@123")
	if !errors.Is(err, appErr.ErrAdminDisabled) {
		t.Fatalf("expected admin disabled, got %v", err)
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	db, svc := newTestService(t)

	if err := svc.EnsureDefaultAdmin(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := svc.EnsureDefaultAdmin(context.Background()); err != nil {
		t.Fatalf("second bootstrap must be a no-op: %v", err)
	}

	var count int64
	if err := db.Model(&model.Admin{}).Where("username = ?", "bootstrap").Count(&count).Error; err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 bootstrap admin, got %d", count)
	}

	if _, err := svc.Login(context.Background(), "bootstrap", "Bootstrap@123"); err != nil {
		t.Fatalf("login with bootstrap credentials: %v", err)
	}
}
