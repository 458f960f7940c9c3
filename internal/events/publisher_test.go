package events

import (
	"context"
	"errors"
	"testing"

	"github.com/oLauand/subtitlesforall/internal/models"
	"github.com/oLauand/subtitlesforall/internal/schema"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerPartial != nil {
				t.Error("expected nil partial writer when disabled")
			}
			if p.writerSegment != nil {
				t.Error("expected nil segment writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:      false,
		Brokers:      []string{"localhost:9092"},
		TopicPartial: "test.partial",
		TopicSegment: "test.segment",
		Principal:    "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicPartial != "test.partial" {
		t.Errorf("expected topic partial 'test.partial', got %s", p.topicPartial)
	}
	if p.topicSegment != "test.segment" {
		t.Errorf("expected topic segment 'test.segment', got %s", p.topicSegment)
	}
}

func TestPublisher_PublishPartial_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := models.TranscriptPartial{
		EventType: "transcript.partial",
		SessionID: "sess-123",
		Text:      "test partial",
	}
	err := p.PublishPartial(context.Background(), "sess-123", &event)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishSegment_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := models.TranscriptSegment{
		EventType: "transcript.segment",
		SessionID: "sess-123",
		SegmentID: "seg-1",
		Text:      "test segment",
		T0Ms:      0,
		T1Ms:      900,
	}
	err := p.PublishSegment(context.Background(), "sess-123", &event)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Publish_RejectsUnknownEvent(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.PublishPartial(context.Background(), "key", map[string]string{"text": "nope"})
	if !errors.Is(err, schema.ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestPublisher_Publish_RejectsInvalidEvent(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := models.TranscriptSegment{
		EventType: "transcript.segment",
		SessionID: "sess-123",
		SegmentID: "seg-1",
		T0Ms:      500,
		T1Ms:      100,
	}
	err := p.PublishSegment(context.Background(), "sess-123", &event)
	if !errors.Is(err, schema.ErrInvalidTimeRange) {
		t.Errorf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilPublisher(t *testing.T) {
	p := &Publisher{
		writerPartial: nil,
		writerSegment: nil,
	}

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
