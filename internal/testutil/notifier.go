package testutil

import "sync"

// RecordingNotifier records change notifications synchronously, in the
// order they were published.
//
// Thread-safety: RecordingNotifier is safe for concurrent use.
type RecordingNotifier struct {
	mu   sync.Mutex
	uris []string
}

// NewRecordingNotifier creates an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// NotifyChange records uri.
func (n *RecordingNotifier) NotifyChange(uri string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uris = append(n.uris, uri)
}

// URIs returns a copy of the recorded locators.
func (n *RecordingNotifier) URIs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.uris...)
}

// Reset forgets everything recorded so far.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uris = nil
}
