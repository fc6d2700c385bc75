package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVerificationStoreSaveAndConsume(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newRedisVerificationStore(rdb, "agv")
	ctx := context.Background()

	rec := &VerificationRecord{
		UserID:    "u1",
		Type:      VerificationTypeEmail,
		ExpiresAt: time.Now().Add(45 * time.Minute).Truncate(time.Second),
	}
	if err := store.Save(ctx, "v1", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Consume(ctx, "v1")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got.UserID != rec.UserID || got.Type != rec.Type {
		t.Fatalf("consumed record = %+v", got)
	}
	if !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("expiry = %v, want %v", got.ExpiresAt, rec.ExpiresAt)
	}

	// Consume removed the record.
	if _, err := store.Consume(ctx, "v1"); !errors.Is(err, errVerificationNotFound) {
		t.Fatalf("second consume err = %v", err)
	}
}

func TestVerificationStoreTTLBoundToExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newRedisVerificationStore(rdb, "agv")
	ctx := context.Background()

	rec := &VerificationRecord{
		UserID:    "u1",
		Type:      VerificationTypeEmail,
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := store.Save(ctx, "v1", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Consume(ctx, "v1"); !errors.Is(err, errVerificationNotFound) {
		t.Fatalf("err after storage expiry = %v", err)
	}
}

func TestVerificationStoreRejectsAlreadyExpired(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newRedisVerificationStore(rdb, "agv")

	rec := &VerificationRecord{
		UserID:    "u1",
		Type:      VerificationTypeEmail,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Save(context.Background(), "v1", rec); err == nil {
		t.Fatal("expected error saving an already expired record")
	}
}

func TestVerificationRecordCodecRejectsGarbage(t *testing.T) {
	if _, err := decodeVerificationRecord(nil); err == nil {
		t.Fatal("nil blob decoded")
	}
	if _, err := decodeVerificationRecord([]byte{0xFF, 0x01}); err == nil {
		t.Fatal("unknown version decoded")
	}

	encoded, err := encodeVerificationRecord(&VerificationRecord{
		UserID:    "u1",
		Type:      VerificationTypeEmail,
		ExpiresAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := decodeVerificationRecord(encoded[:len(encoded)-3]); err == nil {
		t.Fatal("truncated blob decoded")
	}
}
