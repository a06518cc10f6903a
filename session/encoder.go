package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

const sessionFormatVersionCurrent = 1

const flagRemember byte = 1 << 0

// ErrInvalidEncoding is returned by Decode for blobs it does not understand.
var ErrInvalidEncoding = errors.New("invalid session encoding")

// Encode serializes s into the compact binary form stored in Redis. SessionID is
// not part of the blob; it is the key.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	windowSeconds := s.Window / time.Second
	if windowSeconds < 0 || windowSeconds > math.MaxUint32 {
		return nil, errors.New("session window out of range")
	}

	var buf bytes.Buffer
	buf.Grow(94)

	buf.WriteByte(sessionFormatVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, s.UserID); err != nil {
		return nil, err
	}

	var flags byte
	if s.Remember {
		flags |= flagRemember
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, uint32(windowSeconds)); err != nil {
		return nil, err
	}

	buf.Write(s.IPHash[:])
	buf.Write(s.UserAgentHash[:])

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	if version != sessionFormatVersionCurrent {
		return nil, ErrInvalidEncoding
	}

	s := &Session{}

	if err := binary.Read(reader, binary.BigEndian, &s.UserID); err != nil {
		return nil, ErrInvalidEncoding
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	s.Remember = flags&flagRemember != 0

	var windowSeconds uint32
	if err := binary.Read(reader, binary.BigEndian, &windowSeconds); err != nil {
		return nil, ErrInvalidEncoding
	}
	s.Window = time.Duration(windowSeconds) * time.Second

	if _, err := io.ReadFull(reader, s.IPHash[:]); err != nil {
		return nil, ErrInvalidEncoding
	}
	if _, err := io.ReadFull(reader, s.UserAgentHash[:]); err != nil {
		return nil, ErrInvalidEncoding
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, ErrInvalidEncoding
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, ErrInvalidEncoding
	}

	if reader.Len() != 0 {
		return nil, ErrInvalidEncoding
	}

	return s, nil
}
