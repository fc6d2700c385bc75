package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionV1 = 1

// Encode serializes s into the compact binary blob stored in Redis. The
// SessionID is carried by the Redis key, not the blob.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionV1)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	// User agents routinely exceed 255 bytes, so this field gets a 16-bit
	// length prefix.
	if len(s.UserAgent) > 65535 {
		return nil, errors.New("userAgent too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.UserAgent))); err != nil {
		return nil, err
	}
	buf.WriteString(s.UserAgent)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. The caller fills in SessionID
// from the Redis key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionV1 {
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

	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return nil, err
	}
	userAgent := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, userAgent); err != nil {
		return nil, err
	}
	s.UserAgent = string(userAgent)

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}

	return s, nil
}
