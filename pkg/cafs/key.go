package cafs

import (
	"encoding/hex"
	"fmt"
)

const (
	// KeySize for blake2b-256
	KeySize = 32

	// KeySizeHex for hex representation of a key
	KeySizeHex = 2 * KeySize
)

// NewKey creates a new key from data
func NewKey(data []byte) (Key, error) {
	var k Key
	if len(data) != KeySize {
		return Key{}, &BadKeySize{Key: data}
	}
	copy(k[:], data)
	return k, nil
}

// MustNewKey creates a new key from data but panics if there is an error
func MustNewKey(data []byte) Key {
	k, e := NewKey(data)
	if e != nil {
		panic(e.Error())
	}
	return k
}

// KeyFromString parses the hex representation of a key
func KeyFromString(s string) (Key, error) {
	if len(s) != KeySizeHex {
		return Key{}, &BadKeySize{Key: []byte(s)}
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, ErrInvalidKey.WrapMessage("%q", s).Wrap(err)
	}
	return NewKey(data)
}

// Key type for CAFS keys
type Key [KeySize]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Short abbreviates a key for display
func (k Key) Short() string {
	return k.String()[:12]
}

// StringWithPrefix renders a key as a storage path in some namespace
func (k Key) StringWithPrefix(prefix string) string {
	return prefix + k.String()
}

// IsZero tells if the key is unset
func (k Key) IsZero() bool {
	return k == Key{}
}

// MarshalText renders the key as hex
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a hex key
func (k *Key) UnmarshalText(data []byte) error {
	parsed, err := KeyFromString(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// BadKeySize is an error that's returned when the key to create has an invalid size.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), KeySize)
}
