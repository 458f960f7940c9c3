// Command subtitles transcribes a WAV file (or raw PCM on stdin) with
// the local streaming pipeline, printing committed segments as they
// happen the way a live caption feed would.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oLauand/subtitlesforall/internal/service/stt/alignatt"
	"github.com/oLauand/subtitlesforall/internal/streaming"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

func main() {
	audioFile := flag.String("file", "", "Path to WAV file (16kHz 16-bit mono); stdin raw s16le when empty")
	stepMs := flag.Int("step", 1000, "Decode step interval in ms")
	lengthMs := flag.Int("length", 3000, "Decode window length in ms")
	keepMs := flag.Int("keep", 200, "Audio carried between steps in ms")
	threshold := flag.Int("alignatt-threshold", 25, "Frames of lookahead a token needs before it commits")
	useVAD := flag.Bool("vad", false, "Skip decoding on silent windows")
	language := flag.String("language", "en", "Spoken language")
	translate := flag.Bool("translate", false, "Translate to English")
	noTimestamps := flag.Bool("no-timestamps", false, "Suppress token timestamps")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var src io.Reader = os.Stdin
	sampleRate := 16000
	if *audioFile != "" {
		f, err := os.Open(*audioFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *audioFile).Msg("Failed to open audio file")
		}
		defer f.Close()
		sampleRate = readWAVHeader(f)
		src = f
	}

	cfg := streaming.Config{
		SampleRate:     sampleRate,
		StepMs:         *stepMs,
		LengthMs:       *lengthMs,
		KeepMs:         *keepMs,
		FrameThreshold: *threshold,
		UseVAD:         *useVAD,
		Language:       *language,
		Translate:      *translate,
		Timestamps:     !*noTimestamps,
	}

	engine, err := alignatt.NewEngine("mock", cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Engine construction failed")
	}
	defer engine.Close()

	sc, err := streaming.NewContext(engine, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Streaming context construction failed")
	}
	defer sc.Release()

	stepBytes := sampleRate * *stepMs / 1000 * 2 // s16le
	buf := make([]byte, stepBytes)
	printed := 0

	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			sc.InsertAudio(streaming.DecodeS16LE(buf[:n]))
			if _, serr := sc.ProcessStep(context.Background()); serr != nil {
				log.Fatal().Err(serr).Msg("Decode step failed")
			}
			printed = printSegments(sc, printed, !*noTimestamps)
			printPartial(sc)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Audio read failed")
		}
	}

	sc.Finalize()
	printed = printSegments(sc, printed, !*noTimestamps)
	fmt.Println()
	log.Info().Int("segments", printed).Msg("Done")
}

// readWAVHeader validates the RIFF header and returns the sample rate.
func readWAVHeader(f io.Reader) int {
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatal().Err(err).Msg("Failed to read WAV header")
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal().Msg("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Info().
		Uint16("channels", numChannels).
		Uint32("sampleRate", sampleRate).
		Uint16("bitsPerSample", bitsPerSample).
		Msg("WAV input")

	if audioFormat != 1 {
		log.Fatal().Msg("Only PCM format supported")
	}
	if numChannels != 1 {
		log.Fatal().Msg("Only mono audio supported")
	}
	if bitsPerSample != 16 {
		log.Fatal().Msg("Only 16-bit samples supported")
	}
	return int(sampleRate)
}

// printSegments prints segments committed since the last call and
// returns the new count.
func printSegments(sc *streaming.Context, from int, timestamps bool) int {
	for ; from < sc.SegmentCount(); from++ {
		seg := sc.Segment(from)
		fmt.Print("\r\033[K")
		if timestamps {
			fmt.Printf("[%s --> %s]  %s\n", formatTimestamp(seg.T0), formatTimestamp(seg.T1), seg.Text)
		} else {
			fmt.Println(seg.Text)
		}
	}
	return from
}

// printPartial rewrites the current line with the speculative tail.
func printPartial(sc *streaming.Context) {
	if p := sc.PartialText(); p != "" {
		fmt.Printf("\r\033[K… %s", p)
	}
}

func formatTimestamp(ms int64) string {
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, ms%60000/1000, ms%1000)
}
