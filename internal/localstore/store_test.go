package localstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&Entry{}, &domain.ActivityLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := New(openTestDB(t), nil)

	if _, ok, err := s.Get(ctx, "access_token"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "access_token", "a1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "access_token", "a2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := s.Get(ctx, "access_token")
	if err != nil || !ok || got != "a2" {
		t.Fatalf("got %q ok=%v err=%v, want a2", got, ok, err)
	}

	if err := s.SetMany(ctx, map[string]string{"refresh_token": "r1", "user": `{"sub":"x"}`}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	if err := s.Delete(ctx, "access_token", "refresh_token", "never-written"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, key := range []string{"access_token", "refresh_token"} {
		if _, ok, _ := s.Get(ctx, key); ok {
			t.Errorf("%s still present after delete", key)
		}
	}
	if v, ok, _ := s.Get(ctx, "user"); !ok || v != `{"sub":"x"}` {
		t.Errorf("untouched key changed: %q ok=%v", v, ok)
	}
}

func TestStoreSealsValuesAtRest(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sealer, err := NewAEADSealer("correct horse battery staple, but longer")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	s := New(db, sealer)

	if err := s.Set(ctx, "doctor_notes", "lesion in left frontal lobe"); err != nil {
		t.Fatalf("set: %v", err)
	}

	var raw Entry
	if err := db.Where("entry_key = ?", "doctor_notes").First(&raw).Error; err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if !strings.HasPrefix(raw.Value, sealedPrefix) || strings.Contains(raw.Value, "lesion") {
		t.Errorf("value stored in the clear: %q", raw.Value)
	}

	got, ok, err := s.Get(ctx, "doctor_notes")
	if err != nil || !ok || got != "lesion in left frontal lobe" {
		t.Errorf("got %q ok=%v err=%v", got, ok, err)
	}

	// A store opened without the secret must not hand ciphertext back as data.
	plain := New(db, nil)
	if _, _, err := plain.Get(ctx, "doctor_notes"); err == nil {
		t.Error("expected an error reading a sealed value without a secret")
	}
}

func TestAEADSealerPassesThroughLegacyPlaintext(t *testing.T) {
	sealer, err := NewAEADSealer("another sufficiently long secret value")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	got, err := sealer.Open("eyJhbGciOi.legacy.token")
	if err != nil || got != "eyJhbGciOi.legacy.token" {
		t.Errorf("got %q err=%v", got, err)
	}

	other, _ := NewAEADSealer("a completely different secret value")
	sealed, _ := sealer.Seal("x")
	if _, err := other.Open(sealed); err == nil {
		t.Error("expected an error opening with the wrong key")
	}
}

func TestActivityRepositoryRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(openTestDB(t))

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []domain.ActivityAction{domain.ActionLogin, domain.ActionUpload, domain.ActionDelete} {
		err := repo.Create(ctx, &domain.ActivityLog{
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
			Action:     action,
			Outcome:    domain.OutcomeSuccess,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Action != domain.ActionDelete || got[1].Action != domain.ActionUpload {
		t.Errorf("unexpected order %+v", got)
	}
	if got[0].ID == "" {
		t.Error("expected a generated id")
	}
}

func TestActivityRepositoryRecentLimits(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(openTestDB(t))

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := range 520 {
		err := repo.Create(ctx, &domain.ActivityLog{
			OccurredAt: base.Add(time.Duration(i) * time.Second),
			Action:     domain.ActionNotesSave,
			Outcome:    domain.OutcomeSuccess,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 50},
		{limit: -3, want: 50},
		{limit: 120, want: 120},
		{limit: 500, want: 500},
		{limit: 1000, want: 500},
	}
	for _, tt := range tests {
		got, err := repo.Recent(ctx, tt.limit)
		if err != nil {
			t.Fatalf("recent(%d): %v", tt.limit, err)
		}
		if len(got) != tt.want {
			t.Errorf("recent(%d) returned %d entries, want %d", tt.limit, len(got), tt.want)
		}
	}
}
