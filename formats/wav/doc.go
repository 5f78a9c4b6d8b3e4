// SPDX-License-Identifier: EPL-2.0

// Package wav provides a streaming WAV container with a canonical 44-byte
// header.
//
// A File is opened either for reading or for writing and keeps that mode
// for its lifetime. Reads in write mode fail with ErrNotReadMode and writes
// in read mode fail with ErrNotWriteMode; the handle stays usable after
// either.
//
// # Supported Formats
//
//   - 16-bit PCM (format tag 1)
//   - 32-bit IEEE float (format tag 3)
//   - Any channel count and sample rate
//
// Extensible headers, extra chunks between "fmt " and "data", and other bit
// depths are rejected. Open validates the RIFF structure with
// github.com/go-audio/wav before trusting the fixed offsets.
//
// # Writing
//
//	f, err := wav.Create("take.wav", wav.HeaderInfo{
//	    SampleRate:     44100,
//	    Channels:       1,
//	    BytesPerSample: 2,
//	})
//	if err != nil {
//	    // Handle error
//	}
//	f.Write(pcm)
//	f.Close() // writes the RIFF and data sizes
//
// Create stamps the header with zero sizes. Close backpatches them:
//
//	offset 4  = file length - 8
//	offset 40 = file length - 44
//
// Close is idempotent.
//
// # Reading
//
//	f, err := wav.Open("take.wav")
//	info := f.Info()
//	n, err := f.Read(buf) // io.EOF at the end of the data chunk
//
// A header whose sizes were never backpatched is still readable: the data
// chunk is taken to run to the end of the file.
//
// # Header Layout
//
//	0  "RIFF"           4  riff size        8  "WAVE"
//	12 "fmt "           16 16               20 format tag
//	22 channels         24 sample rate      28 byte rate
//	32 block align      34 bits per sample
//	36 "data"           40 data size
package wav
