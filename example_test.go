// SPDX-License-Identifier: EPL-2.0

package audioio_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/audioio"
	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/formats/wav"
	"github.com/ik5/audioio/platform/null"
)

// Example_playWAV plays a file on the null platform, which discards audio
// instead of sending it to a sound card.
func Example_playWAV() {
	dir, _ := os.MkdirTemp("", "audioio-example")
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "tone.wav")
	f, _ := wav.Create(path, wav.HeaderInfo{SampleRate: 8000, Channels: 1, BytesPerSample: 2})
	f.Write(make([]byte, 1600))
	f.Close()

	res, err := audioio.PlayWAV(context.Background(), &null.Platform{Unpaced: true}, path, 320)
	if err != nil {
		fmt.Printf("play error: %v\n", err)
		return
	}

	fmt.Printf("Played %d bytes (%s)\n", res.Bytes, res.Duration())
	// Output: Played 1600 bytes (100ms)
}

// Example_recordWAV records for as long as the context lives.
func Example_recordWAV() {
	dir, _ := os.MkdirTemp("", "audioio-example")
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cfg := audio.Config{
		SampleRate: 16000,
		Channels:   1,
		Format:     audio.FormatPCM16,
		BufferSize: 640,
		Direction:  audio.Input,
	}

	res, err := audioio.RecordWAV(ctx, null.New(), cfg, filepath.Join(dir, "take.wav"))
	if err != nil {
		fmt.Printf("record error: %v\n", err)
		return
	}

	fmt.Printf("Recorded %d Hz, %d channel(s), %d-bit\n",
		res.Info.SampleRate, res.Info.Channels, res.Info.BitsPerSample())
	fmt.Println("Whole buffers only:", res.Bytes%640 == 0)
	// Output:
	// Recorded 16000 Hz, 1 channel(s), 16-bit
	// Whole buffers only: true
}
