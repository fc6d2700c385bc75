package authgate

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationRecordVersionV1 = 1

var errVerificationNotFound = errors.New("verification record not found")

// redisVerificationStore is the default [VerificationStore], holding
// verification-code records as compact binary blobs with a Redis TTL bound
// to the record's expiration.
type redisVerificationStore struct {
	redis  *redis.Client
	prefix string
}

func newRedisVerificationStore(client *redis.Client, prefix string) *redisVerificationStore {
	return &redisVerificationStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *redisVerificationStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *redisVerificationStore) Save(ctx context.Context, id string, rec *VerificationRecord) error {
	encoded, err := encodeVerificationRecord(rec)
	if err != nil {
		return err
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return errors.New("verification record already expired")
	}

	if err := s.redis.Set(ctx, s.key(id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return nil
}

// Consume removes and returns the record in one step, so a verification
// code can never be accepted twice.
func (s *redisVerificationStore) Consume(ctx context.Context, id string) (*VerificationRecord, error) {
	data, err := s.redis.GetDel(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errVerificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	return decodeVerificationRecord(data)
}

func encodeVerificationRecord(rec *VerificationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersionV1)

	if len(rec.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(rec.UserID)))
	buf.WriteString(rec.UserID)

	if len(rec.Type) > 255 {
		return nil, errors.New("type too long")
	}
	buf.WriteByte(byte(len(rec.Type)))
	buf.WriteString(rec.Type)

	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*VerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	rec := &VerificationRecord{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	rec.UserID = string(userID)

	typeLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	recType := make([]byte, typeLen)
	if _, err := io.ReadFull(reader, recType); err != nil {
		return nil, err
	}
	rec.Type = string(recType)

	var expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	rec.ExpiresAt = time.Unix(expiresAt, 0)

	return rec, nil
}
