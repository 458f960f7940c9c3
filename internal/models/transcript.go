// Package models defines the data structures for transcript events.
package models

// TranscriptPartial represents the in-flight speculative transcript for
// a session. Each partial fully supersedes the previous one.
type TranscriptPartial struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// TranscriptSegment represents a committed transcript segment with
// absolute stream timestamps in milliseconds.
type TranscriptSegment struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	SegmentID string `json:"segmentId"`
	Text      string `json:"text"`
	T0Ms      int64  `json:"t0Ms"`
	T1Ms      int64  `json:"t1Ms"`
}
