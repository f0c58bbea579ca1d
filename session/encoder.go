package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

const flagRememberMe = 1 << 0

// Encode serializes a session to the compact binary blob stored in Redis.
// Layout for version 1:
//
//	byte    format version
//	byte    userID length, followed by that many bytes
//	byte    flags (bit 0: remember-me)
//	int64   issued-at, big-endian unix seconds
//	int64   expires-at, big-endian unix seconds
//
// The session ID is the Redis key and is never part of the blob.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	var flags byte
	if s.RememberMe {
		flags |= flagRememberMe
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if flags&^flagRememberMe != 0 {
		return nil, errors.New("invalid session flags")
	}
	s.RememberMe = flags&flagRememberMe != 0

	if err := binary.Read(reader, binary.BigEndian, &s.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing session data")
	}

	return s, nil
}
