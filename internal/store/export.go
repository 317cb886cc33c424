// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

// Export writes every document in src to w as zstd-compressed JSON lines,
// one document per line, ordered by actor id.
func Export(ctx context.Context, src Adapter, w io.Writer) (int, error) {
	ids, err := src.List(ctx)
	if err != nil {
		return 0, oops.Code(core.CodeStoreFailed).With("operation", "export").Wrap(err)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, oops.Code(core.CodeStoreFailed).Wrap(err)
	}
	je := json.NewEncoder(enc)
	n := 0
	for _, id := range ids {
		doc, err := src.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			_ = enc.Close()
			return n, oops.Code(core.CodeStoreFailed).With("actor_id", id.String()).Wrap(err)
		}
		if doc.ActorID == "" {
			doc.ActorID = id.String()
		}
		if err := je.Encode(doc); err != nil {
			_ = enc.Close()
			return n, oops.Code(core.CodeStoreFailed).With("actor_id", id.String()).Wrap(err)
		}
		n++
	}
	if err := enc.Close(); err != nil {
		return n, oops.Code(core.CodeStoreFailed).Wrap(err)
	}
	return n, nil
}

// Import reads an archive written by Export and saves each document to dst.
func Import(ctx context.Context, dst Adapter, r io.Reader) (int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, oops.Code(core.CodeStoreFailed).Wrap(err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(sc.Bytes(), &doc); err != nil {
			return n, oops.Code(core.CodeStoreFailed).With("line", line).Wrap(err)
		}
		id, err := core.ParseActorID(doc.ActorID)
		if err != nil {
			return n, oops.Code(core.CodeStoreFailed).With("line", line).Wrap(err)
		}
		if err := dst.Save(ctx, id, doc); err != nil {
			return n, oops.Code(core.CodeStoreFailed).With("actor_id", id.String()).Wrap(err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, oops.Code(core.CodeStoreFailed).Wrap(err)
	}
	return n, nil
}
