package session

import "time"

// Audio is the narration attached to a session. It is either InMemory (a
// freshly captured recording) or Remote (a stored recording resolved to a
// URL). Exactly one variant is present on a sealed session.
type Audio interface {
	MimeType() string
	isAudio()
}

// InMemory holds captured audio bytes that have not been uploaded yet.
type InMemory struct {
	Data        []byte
	ContentType string
}

func (a InMemory) MimeType() string { return a.ContentType }
func (InMemory) isAudio()           {}

// Remote references audio that lives in a blob store.
type Remote struct {
	URL         string
	ContentType string
	Expires     time.Time // zero when the URL does not expire
}

func (a Remote) MimeType() string { return a.ContentType }
func (Remote) isAudio()           {}

// Extension returns the file extension for a MIME type, without the dot.
func Extension(mimeType string) string {
	switch mimeType {
	case "audio/ogg", "audio/ogg; codecs=opus":
		return "ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg":
		return "mp3"
	case "audio/mp4", "audio/aac":
		return "m4a"
	default:
		return "webm"
	}
}
