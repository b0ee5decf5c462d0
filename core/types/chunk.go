// Copyright 2022 The go-syncdoc Authors
// This file is part of the go-syncdoc library.
//
// The go-syncdoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-syncdoc library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-syncdoc library. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"bytes"
	"crypto/sha256"

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
)

// Chunk framing:
//
//	magic(4) | checksum(4) | type(1) | length(ULEB128) | body
//
// The checksum is the first 4 bytes of the SHA-256 hash over
// type | length | uncompressed body. For compressed change chunks the
// checksum is that of the inner change chunk.

// ChunkMagic are the four magic bytes opening every stored chunk.
var ChunkMagic = [4]byte{0x85, 0x6f, 0x4a, 0x83}

// Chunk type bytes.
const (
	ChunkDocument   byte = 0
	ChunkChange     byte = 1
	ChunkCompressed byte = 2
	ChunkBundle     byte = 3
)

// Chunk is one framed artefact split out of a stored byte stream. For
// compressed chunks the checksum is carried unverified until the body is
// inflated.
type Chunk struct {
	Type     byte
	Body     []byte
	Checksum [4]byte
}

// ChunkHash computes the SHA-256 hash identifying a chunk, over the type
// byte, the LEB128 body length and the body.
func ChunkHash(chunkType byte, body []byte) common.Hash {
	h := sha256.New()
	h.Write([]byte{chunkType})
	h.Write(columnar.AppendUleb128(nil, uint64(len(body))))
	h.Write(body)
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// WriteChunk appends a framed chunk to dst, computing the checksum from
// the body.
func WriteChunk(dst []byte, chunkType byte, body []byte) []byte {
	hash := ChunkHash(chunkType, body)
	return writeChunkChecksum(dst, chunkType, body, hash[:4])
}

func writeChunkChecksum(dst []byte, chunkType byte, body, checksum []byte) []byte {
	dst = append(dst, ChunkMagic[:]...)
	dst = append(dst, checksum[:4]...)
	dst = append(dst, chunkType)
	dst = columnar.AppendUleb128(dst, uint64(len(body)))
	return append(dst, body...)
}

// ParseChunks splits data into its framed chunks, verifying magic bytes
// and, for uncompressed chunks, checksums. Compressed chunk checksums are
// verified by DecodeChange after inflation.
func ParseChunks(data []byte) ([]Chunk, error) {
	d := columnar.NewDecoder(data)
	var chunks []Chunk
	for !d.Done() {
		magic, err := d.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(magic, ChunkMagic[:]) {
			return nil, ErrBadMagic
		}
		checksum, err := d.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		chunkType, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		if chunkType > ChunkBundle {
			return nil, ErrUnknownChunkType
		}
		body, err := d.ReadLenBytes()
		if err != nil {
			return nil, err
		}
		var c Chunk
		c.Type = chunkType
		c.Body = body
		copy(c.Checksum[:], checksum)
		if chunkType != ChunkCompressed {
			hash := ChunkHash(chunkType, body)
			if !bytes.Equal(hash[:4], checksum) {
				return nil, ErrBadChecksum
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
