package cafs

import (
	"io"

	blake2b "github.com/minio/blake2b-simd"
)

// Sum computes the key of some content
func Sum(data []byte) Key {
	return blake2b.Sum256(data)
}

// SumReader computes the key of some streamed content and returns the number of bytes read
func SumReader(rdr io.Reader) (Key, int64, error) {
	hasher := blake2b.New256()
	n, err := io.Copy(hasher, rdr)
	if err != nil {
		return Key{}, n, err
	}
	return MustNewKey(hasher.Sum(nil)), n, nil
}

// Verify that some content matches its key
func Verify(key Key, data []byte) bool {
	return Sum(data) == key
}
