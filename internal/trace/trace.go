// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package trace stores simulation snapshots as zstd compressed JSON lines, one
// snapshot per tick.
package trace

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/db47h/redsim"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Writer writes snapshots to a compressed trace.
//
type Writer struct {
	f   io.Closer // set if the Writer owns the underlying file
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// NewWriter returns a Writer writing to w. Close must be called to flush the
// trace.
//
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, errors.Wrap(err, "zstd encoder")
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Create creates the trace file at path.
//
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.f = f
	return w, nil
}

// Write appends a snapshot to the trace.
//
func (w *Writer) Write(s *redsim.Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "tick %d", s.Tick)
	}
	if _, err := w.w.Write(b); err != nil {
		return errors.WithStack(err)
	}
	w.n++
	return errors.WithStack(w.w.WriteByte('\n'))
}

// Count returns the number of snapshots written so far.
//
func (w *Writer) Count() int { return w.n }

// Close flushes the trace and closes the underlying file if the Writer was
// created with Create.
//
func (w *Writer) Close() error {
	err := w.w.Flush()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	return errors.WithStack(err)
}

// Reader reads snapshots back from a trace.
//
type Reader struct {
	dec *zstd.Decoder
	sc  *bufio.Scanner
}

// NewReader returns a Reader reading from r. Close must be called to release
// the decoder.
//
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decoder")
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &Reader{dec: dec, sc: sc}, nil
}

// Next returns the next snapshot in the trace, or io.EOF at the end of the
// trace.
//
func (r *Reader) Next() (*redsim.Snapshot, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		return nil, io.EOF
	}
	var s redsim.Snapshot
	if err := json.Unmarshal(r.sc.Bytes(), &s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return &s, nil
}

// Close releases the decoder.
//
func (r *Reader) Close() {
	r.dec.Close()
}

// ReadAll reads every snapshot of the trace file at path.
//
func ReadAll(path string) ([]*redsim.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	r, err := NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var ss []*redsim.Snapshot
	for {
		s, err := r.Next()
		if err == io.EOF {
			return ss, nil
		}
		if err != nil {
			return ss, errors.Wrapf(err, "%s: snapshot %d", path, len(ss))
		}
		ss = append(ss, s)
	}
}
