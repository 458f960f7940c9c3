// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
)

// Config holds recognition settings for the cloud session.
type Config struct {
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

// DefaultConfig returns the default recognition settings.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
	}
}

// parseAudioEncoding maps an encoding name to the proto enum, falling
// back to LINEAR16 for anything unrecognized.
func parseAudioEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch name {
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
// Cloud recognition exposes no decoder internals, so segments carry the
// provider's result timing instead of attention-derived boundaries.
type Adapter struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	cfg    Config
	cb     stt.Callback
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.SampleRateHz == 0 {
		cfg.SampleRateHz = 16000
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start begins a streaming recognition session and sends the initial config.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}
	a.stream = stream
	a.cb = cb

	// Send streaming config as the first message
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        parseAudioEncoding(a.cfg.AudioEncoding),
					SampleRateHertz: int32(a.cfg.SampleRateHz),
					LanguageCode:    a.cfg.LanguageCode,
				},
				InterimResults: a.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return err
	}

	go a.listen()
	return nil
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	return a.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close ends the streaming session.
func (a *Adapter) Close() error {
	if a.stream != nil {
		return a.stream.CloseSend()
	}
	return nil
}

// listen receives transcript responses from Google and invokes
// callbacks. Runs in its own goroutine for the life of the stream.
func (a *Adapter) listen() {
	var lastEndMs int64
	for {
		resp, err := a.stream.Recv()
		if err == io.EOF {
			// Server finished after CloseSend; not a session failure.
			return
		}
		if err != nil {
			a.cb.OnError(err)
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			if r.IsFinal {
				endMs := lastEndMs
				if t := r.ResultEndTime; t != nil {
					endMs = t.Seconds*1000 + int64(t.Nanos)/1e6
				}
				a.cb.OnSegment(assembler.Segment{
					Text: alt.Transcript,
					T0:   lastEndMs,
					T1:   endMs,
				})
				lastEndMs = endMs
			} else {
				a.cb.OnPartial(alt.Transcript)
			}
		}
	}
}
