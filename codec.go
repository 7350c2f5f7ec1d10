// codec.go: snapshot serialization (spec §4.J)
//
// Frames are length-prefixed the way the teacher's own wire-adjacent
// code favors explicit framing over delimiter scanning: a 3-byte
// big-endian length followed by a jsoniter-encoded record. An optional
// s2 stream wraps the whole file when compression is requested, sniffed
// on read by its magic byte so Load/Restore don't need to be told
// whether a given snapshot was compressed. Snapshot files are written
// atomically via natefinch/atomic so a crash mid-Save never leaves a
// corrupt file where a good one used to be.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/s2"
	"github.com/natefinch/atomic"
)

var codecJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// s2Magic is s2's own stream chunk magic (a snappy-framing-compatible
// stream identifier); sniffing it avoids needing a separate on-disk
// flag for whether a snapshot was compressed.
var s2Magic = []byte{0xff, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}

// SnapshotEntry is one record in a Dump/Save/Load payload. Remaining
// life, not the absolute deadline, is what gets preserved across a
// round trip (spec §4.J's re-anchoring rule): a restored entry keeps
// however much time it had left, anchored to the restore time rather
// than to when it was dumped.
type SnapshotEntry[K comparable, V any] struct {
	Key           K
	Value         V
	HasExpiration bool
	RemainingMs   int64
}

type wireRecord[K comparable, V any] struct {
	Key           K     `json:"key"`
	Value         V     `json:"value"`
	HasExpiration bool  `json:"has_expiration"`
	RemainingMs   int64 `json:"remaining_ms"`
}

// Dump returns a snapshot of every live entry, each carrying its
// remaining life rather than an absolute deadline.
func (c *Cache[K, V]) Dump() []SnapshotEntry[K, V] {
	now := c.clock.Now()
	var out []SnapshotEntry[K, V]
	c.store.iterate(MatchUnexpired(), func(key K, e *entry[V]) bool {
		se := SnapshotEntry[K, V]{Key: key, Value: e.value, HasExpiration: e.hasExpiration}
		if e.hasExpiration {
			se.RemainingMs = e.remaining(now)
		}
		out = append(out, se)
		return true
	})
	return out
}

// Save writes the current Dump to path, optionally s2-compressed, via
// an atomic rename so a reader never observes a partial file.
func (c *Cache[K, V]) Save(path string, compress bool) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return NewErrEISDIR(path)
	}

	buf, err := encodeSnapshot(c.Dump(), compress)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return NewErrENOENT(path, err)
	}
	return nil
}

// Load reads path and merges its entries into the cache (PutMany under
// the usual transactional/eviction/hook path), preserving each entry's
// remaining life re-anchored to now.
func (c *Cache[K, V]) Load(ctx context.Context, path string) error {
	entries, err := c.readSnapshot(path)
	if err != nil {
		return err
	}
	return c.applySnapshot(ctx, entries)
}

// Restore clears the cache before loading path, giving an exact replica
// of the dumped state (modulo expirations that elapsed in between).
func (c *Cache[K, V]) Restore(ctx context.Context, path string) error {
	entries, err := c.readSnapshot(path)
	if err != nil {
		return err
	}
	c.Clear(ctx)
	return c.applySnapshot(ctx, entries)
}

func (c *Cache[K, V]) readSnapshot(path string) ([]SnapshotEntry[K, V], error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, NewErrENOENT(path, err)
	}
	if info.IsDir() {
		return nil, NewErrEISDIR(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewErrENOENT(path, err)
	}
	return decodeSnapshot[K, V](raw)
}

func (c *Cache[K, V]) applySnapshot(ctx context.Context, entries []SnapshotEntry[K, V]) error {
	byTTL := make(map[time.Duration]map[K]V)
	for _, se := range entries {
		ttl := NoExpiration
		if se.HasExpiration {
			ttl = time.Duration(se.RemainingMs) * time.Millisecond
			if ttl <= 0 {
				continue // already expired by the time we got to it
			}
		}
		bucket, ok := byTTL[ttl]
		if !ok {
			bucket = make(map[K]V)
			byTTL[ttl] = bucket
		}
		bucket[se.Key] = se.Value
	}
	for ttl, pairs := range byTTL {
		t := ttl
		if err := c.PutMany(ctx, pairs, &t); err != nil {
			return err
		}
	}
	return nil
}

// encodeSnapshot frames every entry as a 3-byte big-endian length
// prefix plus a jsoniter-encoded wireRecord, optionally wrapping the
// whole stream in s2 compression.
func encodeSnapshot[K comparable, V any](entries []SnapshotEntry[K, V], compress bool) ([]byte, error) {
	var body bytes.Buffer
	for _, se := range entries {
		rec := wireRecord[K, V]{Key: se.Key, Value: se.Value, HasExpiration: se.HasExpiration, RemainingMs: se.RemainingMs}
		payload, err := codecJSON.Marshal(rec)
		if err != nil {
			return nil, NewErrDecode(err)
		}
		if len(payload) > 1<<24-1 {
			return nil, NewErrShortFrame(1<<24-1, len(payload))
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		body.Write(lenBuf[1:]) // 3-byte length prefix
		body.Write(payload)
	}

	if !compress {
		return body.Bytes(), nil
	}

	var out bytes.Buffer
	w := s2.NewWriter(&out)
	if _, err := w.Write(body.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// decodeSnapshot reverses encodeSnapshot, sniffing the s2 magic to
// decide whether to unwrap compression first.
func decodeSnapshot[K comparable, V any](raw []byte) ([]SnapshotEntry[K, V], error) {
	var r io.Reader = bytes.NewReader(raw)
	if bytes.HasPrefix(raw, s2Magic) {
		r = s2.NewReader(bytes.NewReader(raw))
	}

	br := bufio.NewReader(r)
	var out []SnapshotEntry[K, V]
	for {
		var lenBuf [3]byte
		_, err := io.ReadFull(br, lenBuf[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewErrDecode(err)
		}
		declared := int(lenBuf[0])<<16 | int(lenBuf[1])<<8 | int(lenBuf[2])

		payload := make([]byte, declared)
		n, err := io.ReadFull(br, payload)
		if err != nil {
			return nil, NewErrShortFrame(declared, n)
		}

		var rec wireRecord[K, V]
		if err := codecJSON.Unmarshal(payload, &rec); err != nil {
			return nil, NewErrDecode(err)
		}
		out = append(out, SnapshotEntry[K, V]{
			Key:           rec.Key,
			Value:         rec.Value,
			HasExpiration: rec.HasExpiration,
			RemainingMs:   rec.RemainingMs,
		})
	}
	return out, nil
}
