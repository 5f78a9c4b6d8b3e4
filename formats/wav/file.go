// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	gowav "github.com/go-audio/wav"
)

// Mode is fixed for the lifetime of a File.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}

	return "read"
}

// File is a canonical 44-byte-header WAV file opened either for streaming
// reads or for append-only writes. In write mode the RIFF and data sizes are
// backpatched on Close.
type File struct {
	f    *os.File
	mode Mode
	info HeaderInfo

	// read mode: bounded view over the data chunk
	data io.Reader
	// audio bytes written (write mode) or declared by the header (read mode)
	dataLen int64

	closed bool
	mtx    *sync.Mutex
}

// Open opens path for reading and leaves the cursor at the first audio byte.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	wf, err := openReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return wf, nil
}

func openReader(f *os.File) (*File, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if st.Size() < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooShort, st.Size())
	}

	// structural check by walking the RIFF chunks
	dec := gowav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	if dec.NumChans == 0 {
		return nil, fmt.Errorf("%w: no fmt chunk", ErrNotWavFile)
	}

	header := make([]byte, HeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	info, declared, err := DecodeHeader(header)
	if err != nil {
		return nil, err
	}

	// the chunk walk and the fixed offsets must describe the same stream
	if *dec.Format() != *info.Format() || int(dec.BitDepth) != info.BitsPerSample() {
		return nil, fmt.Errorf("%w: fmt chunk is not at the canonical offsets", ErrUnsupportedWavLayout)
	}

	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	available := st.Size() - HeaderSize
	dataLen := int64(declared)
	if dataLen == 0 || dataLen > available {
		// header never finalized or truncated file: stream what is there
		dataLen = available
	}

	return &File{
		f:       f,
		mode:    ModeRead,
		info:    info,
		data:    io.LimitReader(f, dataLen),
		dataLen: dataLen,
		mtx:     &sync.Mutex{},
	}, nil
}

// Create creates (or truncates) path for writing, stamps a header with zero
// sizes and leaves the cursor at offset 44.
func Create(path string, info HeaderInfo) (*File, error) {
	if err := info.validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if _, err := f.Write(EncodeHeader(info, 0)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w", err)
	}

	return &File{
		f:    f,
		mode: ModeWrite,
		info: info,
		mtx:  &sync.Mutex{},
	}, nil
}

func (w *File) Info() HeaderInfo { return w.info }
func (w *File) Mode() Mode       { return w.mode }

// Name returns the path the file was opened with.
func (w *File) Name() string { return w.f.Name() }

// DataLen is the number of audio bytes written so far in write mode, or the
// size of the data chunk in read mode.
func (w *File) DataLen() int64 {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	return w.dataLen
}

// Duration is the playing time of DataLen bytes.
func (w *File) Duration() time.Duration {
	rate := w.info.ByteRate()
	if rate == 0 {
		return 0
	}

	return time.Duration(w.DataLen()) * time.Second / time.Duration(rate)
}

// Read reads audio bytes. Short reads are allowed and io.EOF marks the end of
// the data chunk.
func (w *File) Read(p []byte) (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.mode != ModeRead {
		return 0, ErrNotReadMode
	}

	if w.closed {
		return 0, ErrFileClosed
	}

	n, err := w.data.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w", err)
	}

	return n, err
}

// Write appends audio bytes. Writes after Close have no effect.
func (w *File) Write(p []byte) (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.mode != ModeWrite {
		return 0, ErrNotWriteMode
	}

	if w.closed {
		return 0, ErrFileClosed
	}

	if len(p) == 0 {
		return 0, nil
	}

	n, err := w.f.Write(p)
	w.dataLen += int64(n)
	if err != nil {
		return n, fmt.Errorf("%w", err)
	}

	return n, nil
}

// Close finalizes the header in write mode and closes the file. Calling it
// again is a no-op.
func (w *File) Close() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var patchErr error
	if w.mode == ModeWrite {
		patchErr = w.backpatch()
	}

	if err := w.f.Close(); err != nil {
		return errors.Join(patchErr, fmt.Errorf("%w", err))
	}

	return patchErr
}

func (w *File) backpatch() error {
	total := w.dataLen + HeaderSize

	var field [4]byte

	binary.LittleEndian.PutUint32(field[:], clampUint32(total-8))
	if _, err := w.f.WriteAt(field[:], offRiffSize); err != nil {
		return fmt.Errorf("%w", err)
	}

	binary.LittleEndian.PutUint32(field[:], clampUint32(total-HeaderSize))
	if _, err := w.f.WriteAt(field[:], offDataSize); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func clampUint32(v int64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(v)
}
