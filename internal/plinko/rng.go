package plinko

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/xtding233/plinko-audit/internal/validate"
)

// SeedPair is one revealed commit/reveal pair.
// ServerSeedHashed is the commitment published before play; checking it
// against ServerSeed is left to the audit layer.
type SeedPair struct {
	ServerSeed       string `json:"serverSeed"`
	ServerSeedHashed string `json:"serverSeedHashed"`
	ClientSeed       string `json:"clientSeed"`
}

// OutcomeSource yields the bucket a drop lands in.
type OutcomeSource interface {
	Outcome(serverSeed, clientSeed string, nonce uint64, rows int) (int, error)
}

// HMACGenerator is the stateless OutcomeSource backed by Generate.
type HMACGenerator struct{}

func (HMACGenerator) Outcome(serverSeed, clientSeed string, nonce uint64, rows int) (int, error) {
	return Generate(serverSeed, clientSeed, nonce, rows)
}

// Generate re-derives the final bucket of a drop.
//
// For every row cursor 0..rows-1 the message "clientSeed:nonce:cursor" is
// signed with HMAC-SHA256 keyed by the hex-decoded server seed. The first four
// digest bytes, read as a big-endian uint32, decide the bounce: the low bit
// adds 0 (left) or 1 (right) to the position. 2^32 is even, so the bit is
// unbiased and no rejection sampling is needed.
//
// The result is in [0, rows] and depends on nothing but the arguments.
func Generate(serverSeed, clientSeed string, nonce uint64, rows int) (int, error) {
	if err := validateRows(rows); err != nil {
		return 0, err
	}
	key, err := hex.DecodeString(serverSeed)
	if err != nil {
		return 0, validate.Fieldf("serverSeed", "must be a hex string: %v", err)
	}

	mac := hmac.New(sha256.New, key)
	prefix := make([]byte, 0, len(clientSeed)+24)
	prefix = append(prefix, clientSeed...)
	prefix = append(prefix, ':')
	prefix = strconv.AppendUint(prefix, nonce, 10)
	prefix = append(prefix, ':')

	msg := make([]byte, 0, len(prefix)+2)
	var sum [sha256.Size]byte
	position := 0
	for cursor := 0; cursor < rows; cursor++ {
		msg = strconv.AppendInt(append(msg[:0], prefix...), int64(cursor), 10)
		mac.Reset()
		mac.Write(msg)
		digest := mac.Sum(sum[:0])
		value := binary.BigEndian.Uint32(digest[:4])
		position += int(value % 2)
	}
	return position, nil
}
