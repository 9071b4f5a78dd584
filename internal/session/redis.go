package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/patient-portal/internal/model"
)

const keyPrefix = "portal:session:"

// Hash fields, one per stored session key.
const (
	fieldToken          = "token"
	fieldRole           = "role"
	fieldUserID         = "user_id"
	fieldPatientID      = "patient_id"
	fieldEmail          = "email"
	fieldHospitalNumber = "hospital_number"
	fieldUser           = "user"
	fieldCreatedAt      = "created_at"
)

// RedisStore keeps each session in one redis hash so that logout removes
// every key at once.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeFields(id, fields), nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	key := sessionKey(s.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeFields(s))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func encodeFields(s *Session) map[string]interface{} {
	fields := map[string]interface{}{
		fieldToken:          s.Token,
		fieldRole:           string(s.Role),
		fieldUserID:         s.UserID,
		fieldPatientID:      s.PatientID,
		fieldEmail:          s.Email,
		fieldHospitalNumber: s.HospitalNumber,
		fieldCreatedAt:      s.CreatedAt.Format(time.RFC3339),
	}
	if len(s.Profile) > 0 {
		fields[fieldUser] = string(s.Profile)
	}
	return fields
}

func decodeFields(id string, fields map[string]string) *Session {
	s := &Session{
		ID:             id,
		Token:          fields[fieldToken],
		Role:           model.Role(fields[fieldRole]),
		UserID:         fields[fieldUserID],
		PatientID:      fields[fieldPatientID],
		Email:          fields[fieldEmail],
		HospitalNumber: fields[fieldHospitalNumber],
	}
	if raw := fields[fieldUser]; raw != "" && json.Valid([]byte(raw)) {
		s.Profile = json.RawMessage(raw)
	}
	if t, err := time.Parse(time.RFC3339, fields[fieldCreatedAt]); err == nil {
		s.CreatedAt = t
	}
	return s
}
