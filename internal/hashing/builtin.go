package hashing

import (
	"crypto/md5"  //nolint:gosec // G501: md5 is a drift fingerprint, not a security boundary
	"crypto/sha1" //nolint:gosec // G505: same as md5
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/fnv"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"       //nolint:staticcheck // legacy algorithm kept for old baselines
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // legacy algorithm kept for old baselines
	"golang.org/x/crypto/sha3"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "md5"

func builtins() []Provider {
	return []Provider{
		NewProvider("md5", func(b []byte) []byte { s := md5.Sum(b); return s[:] }),   //nolint:gosec // see import
		NewProvider("sha1", func(b []byte) []byte { s := sha1.Sum(b); return s[:] }), //nolint:gosec // see import
		NewProvider("sha224", func(b []byte) []byte { s := sha256.Sum224(b); return s[:] }),
		NewProvider("sha256", func(b []byte) []byte { s := sha256.Sum256(b); return s[:] }),
		NewProvider("sha384", func(b []byte) []byte { s := sha512.Sum384(b); return s[:] }),
		NewProvider("sha512", func(b []byte) []byte { s := sha512.Sum512(b); return s[:] }),
		NewProvider("sha512_224", func(b []byte) []byte { s := sha512.Sum512_224(b); return s[:] }),
		NewProvider("sha512_256", func(b []byte) []byte { s := sha512.Sum512_256(b); return s[:] }),
		NewProvider("sha3_224", func(b []byte) []byte { s := sha3.Sum224(b); return s[:] }),
		NewProvider("sha3_256", func(b []byte) []byte { s := sha3.Sum256(b); return s[:] }),
		NewProvider("sha3_384", func(b []byte) []byte { s := sha3.Sum384(b); return s[:] }),
		NewProvider("sha3_512", func(b []byte) []byte { s := sha3.Sum512(b); return s[:] }),
		NewProvider("blake2b", func(b []byte) []byte { s := blake2b.Sum512(b); return s[:] }),
		NewProvider("blake2b_256", func(b []byte) []byte { s := blake2b.Sum256(b); return s[:] }),
		NewProvider("blake2s", func(b []byte) []byte { s := blake2s.Sum256(b); return s[:] }),
		NewProvider("blake3", func(b []byte) []byte { s := blake3.Sum256(b); return s[:] }),
		NewProvider("md4", streaming(md4.New)),
		NewProvider("ripemd160", streaming(ripemd160.New)),
		NewProvider("xxh64", func(b []byte) []byte { return be64(xxhash.Sum64(b)) }),
		NewProvider("xxh3_64", func(b []byte) []byte { return be64(xxh3.Hash(b)) }),
		NewProvider("xxh3_128", func(b []byte) []byte { s := xxh3.Hash128(b).Bytes(); return s[:] }),
		NewProvider("mmh3", func(b []byte) []byte { return be32(murmur3.Sum32(b)) }),
		NewProvider("murmur3_32", func(b []byte) []byte { return be32(murmur3.Sum32(b)) }),
		NewProvider("murmur3_x64_128", func(b []byte) []byte {
			h1, h2 := murmur3.Sum128(b)
			return binary.BigEndian.AppendUint64(be64(h1), h2)
		}),
		NewProvider("fnv1_32", streaming32(fnv.New32)),
		NewProvider("fnv1_64", streaming64(fnv.New64)),
		NewProvider("fnv1a_32", streaming32(fnv.New32a)),
		NewProvider("fnv1a_64", streaming64(fnv.New64a)),
		NewProvider("crc32", func(b []byte) []byte { return be32(crc32.ChecksumIEEE(b)) }),
		NewProvider("adler32", func(b []byte) []byte { return be32(adler32.Checksum(b)) }),
	}
}

func streaming(newHash func() hash.Hash) SumFunc {
	return func(b []byte) []byte {
		h := newHash()
		h.Write(b)
		return h.Sum(nil)
	}
}

func streaming32(newHash func() hash.Hash32) SumFunc {
	return func(b []byte) []byte {
		h := newHash()
		h.Write(b)
		return be32(h.Sum32())
	}
}

func streaming64(newHash func() hash.Hash64) SumFunc {
	return func(b []byte) []byte {
		h := newHash()
		h.Write(b)
		return be64(h.Sum64())
	}
}

func be32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }
func be64(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }
