package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/terraincognita07/easypeasy/internal/config"
	"github.com/terraincognita07/easypeasy/internal/db"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/notify"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, name := range []string{"serve", "reset-password", "send-daily-messages"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
}

func TestResetPasswordRequiresEmailFlag(t *testing.T) {
	err := Execute(context.Background(), &bytes.Buffer{}, []string{"reset-password"})
	if err == nil || !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected missing --email error, got %v", err)
	}
}

func TestSendDailyMessagesCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "easypeasy.db")
	t.Setenv("SECRET_KEY", testSecret)
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOCAL_STORE", "memory")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DAILY_MESSAGE_TIME", "")
	t.Setenv("LOG_MODE", "production")
	t.Setenv("TZ", "")

	database, err := db.OpenSQLite(dbPath, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	user := models.User{Email: "daily@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	if err := db.NewUserRepository(database).CreateWithProfile(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}

	envFile := filepath.Join(t.TempDir(), "missing.env")
	out := &bytes.Buffer{}
	if err := Execute(context.Background(), out, []string{"send-daily-messages", "--env-file", envFile}); err != nil {
		t.Fatalf("send-daily-messages failed: %v", err)
	}
	if !strings.Contains(out.String(), "Sent 1 daily messages") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := Execute(context.Background(), out, []string{"send-daily-messages", "--env-file", envFile}); err != nil {
		t.Fatalf("second send-daily-messages failed: %v", err)
	}
	if !strings.Contains(out.String(), "Sent 0 daily messages") {
		t.Fatalf("expected no repeat messages, got %q", out.String())
	}
}

func TestOpenDevicesSelectsStore(t *testing.T) {
	devices, closeDevices, err := openDevices(context.Background(), config.Config{LocalStore: config.LocalStoreMemory})
	if err != nil {
		t.Fatalf("open memory devices: %v", err)
	}
	closeDevices()
	if _, ok := devices.(*localstore.MemoryDevices); !ok {
		t.Fatalf("expected memory devices, got %T", devices)
	}

	devices, closeDevices, err = openDevices(context.Background(), config.Config{
		LocalStore:    config.LocalStoreFile,
		LocalStoreDir: filepath.Join(t.TempDir(), "devices"),
	})
	if err != nil {
		t.Fatalf("open file devices: %v", err)
	}
	closeDevices()
	if _, ok := devices.(*localstore.FileDevices); !ok {
		t.Fatalf("expected file devices, got %T", devices)
	}

	if _, _, err := openDevices(context.Background(), config.Config{LocalStore: "tape"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	notifier, err := newNotifier(config.Config{}, logger.NewNop())
	if err == nil {
		if _, ok := notifier.(*notify.LogNotifier); ok {
			return
		}
	}
	t.Fatalf("expected log notifier, got %T (%v)", notifier, err)
}
