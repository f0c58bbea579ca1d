package storeguard

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

const mfaChallengeRecordVersion1 = 1

var (
	errMFAChallengeNotFound = errors.New("mfa challenge not found")
	errMFAChallengeExpired  = errors.New("mfa challenge expired")
	errMFAChallengeBackend  = errors.New("mfa challenge backend unavailable")
)

// mfaChallenge is the server side of a TempMfaToken. The client holds the
// opaque token (challenge ID + secret); Redis holds this record keyed by
// the challenge ID, with only a hash of the secret.
type mfaChallenge struct {
	UserID     string
	SecretHash [32]byte
	RememberMe bool
	ExpiresAt  int64
}

type mfaChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newMFAChallengeStore(redisClient redis.UniversalClient, prefix string) *mfaChallengeStore {
	if prefix == "" {
		prefix = "sg"
	}
	return &mfaChallengeStore{redis: redisClient, prefix: prefix}
}

func (s *mfaChallengeStore) key(challengeID string) string {
	return s.prefix + ":mc:" + challengeID
}

func (s *mfaChallengeStore) Save(
	ctx context.Context,
	challengeID string,
	record *mfaChallenge,
	ttl time.Duration,
) error {
	encoded, err := encodeMFAChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errMFAChallengeBackend, err)
	}
	return nil
}

// Consume atomically removes and returns the challenge. A token is spent on
// its first verification attempt whether or not the code turns out right;
// of two concurrent callers exactly one gets the record.
func (s *mfaChallengeStore) Consume(ctx context.Context, challengeID string) (*mfaChallenge, error) {
	data, err := s.redis.GetDel(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errMFAChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errMFAChallengeBackend, err)
	}

	record, err := decodeMFAChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		return nil, errMFAChallengeExpired
	}
	return record, nil
}

func encodeMFAChallenge(record *mfaChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(mfaChallengeRecordVersion1)

	var flags byte
	if record.RememberMe {
		flags |= 1
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.SecretHash[:])

	if len(record.UserID) > 65535 {
		return nil, errors.New("mfa challenge user id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodeMFAChallenge(data []byte) (*mfaChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != mfaChallengeRecordVersion1 {
		return nil, errors.New("invalid mfa challenge version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &mfaChallenge{
		RememberMe: flags&1 != 0,
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	var userLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}
	record.UserID = string(user)

	return record, nil
}
