// Package codec converts between sealed sessions and the stored walkthrough
// representation: steps in seconds, audio as a separate blob.
package codec

import (
	"cmp"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// DefaultDurationFloor is the minimum duration given to decoded sessions so
// that single-snapshot walkthroughs remain playable.
const DefaultDurationFloor = time.Second

// WireRecord is the create payload: metadata, steps, and inline audio.
type WireRecord struct {
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Author        string           `json:"author,omitempty"`
	CourseID      string           `json:"courseId,omitempty"`
	ChapterID     string           `json:"chapterId,omitempty"`
	LessonID      string           `json:"lessonId,omitempty"`
	Steps         []datastore.Step `json:"steps"`
	AudioBase64   string           `json:"audioBase64"`
	AudioMimeType string           `json:"audioMimeType"`
	AudioFileName string           `json:"audioFileName,omitempty"`
	DurationMs    int64            `json:"durationMs,omitempty"`
}

// Options controls decoding.
type Options struct {
	DurationFloor time.Duration
}

func (o Options) floorMillis() int64 {
	if o.DurationFloor <= 0 {
		return DefaultDurationFloor.Milliseconds()
	}
	return o.DurationFloor.Milliseconds()
}

// MillisToSeconds converts a session timestamp to stored seconds.
func MillisToSeconds(ms int64) float64 { return float64(ms) / 1000 }

// SecondsToMillis converts stored seconds back to milliseconds, rounding to
// the nearest millisecond.
func SecondsToMillis(s float64) int64 { return int64(math.Round(s * 1000)) }

// Encode converts a session holding in-memory audio into a wire record.
func Encode(s *session.Session) (WireRecord, error) {
	mem, ok := s.Audio().(session.InMemory)
	if !ok {
		return WireRecord{}, errmodel.E(errmodel.KindMalformedRecord, "codec.encode",
			errors.New("session audio is not in memory"))
	}
	meta := s.Metadata()
	steps := make([]datastore.Step, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Event(i)
		steps = append(steps, datastore.Step{Code: e.Data, Timestamp: MillisToSeconds(e.Timestamp)})
	}
	return WireRecord{
		Name:          meta.Name,
		Description:   meta.Description,
		Author:        meta.Author,
		CourseID:      meta.CourseID,
		ChapterID:     meta.ChapterID,
		LessonID:      meta.LessonID,
		Steps:         steps,
		AudioBase64:   base64.StdEncoding.EncodeToString(mem.Data),
		AudioMimeType: mem.ContentType,
		AudioFileName: AudioFileName(s.ID(), mem.ContentType),
		DurationMs:    s.Duration(),
	}, nil
}

// AudioFileName returns the file name used for a session's audio blob.
func AudioFileName(id, mimeType string) string {
	return id + "." + session.Extension(mimeType)
}

// DecodeAudio returns the raw audio bytes of a wire record.
func DecodeAudio(w WireRecord) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(w.AudioBase64)
	if err != nil {
		return nil, errmodel.E(errmodel.KindMalformedRecord, "codec.decode_audio", err)
	}
	return data, nil
}

// CreateInput converts a wire record into a data store create request that
// references the already uploaded blob.
func (w WireRecord) CreateInput(audioKey string) datastore.CreateInput {
	return datastore.CreateInput{
		Name:          w.Name,
		Description:   w.Description,
		Author:        w.Author,
		CourseID:      w.CourseID,
		ChapterID:     w.ChapterID,
		LessonID:      w.LessonID,
		Steps:         w.Steps,
		AudioKey:      audioKey,
		AudioMimeType: w.AudioMimeType,
		AudioFileName: w.AudioFileName,
		DurationMs:    w.DurationMs,
	}
}

// Decode converts a stored record into a sealed session whose audio is the
// given resolved URL. The duration is the largest of the last step, the
// recorded duration and the configured floor.
func Decode(rec datastore.Record, audioURL string, opts Options) (*session.Session, error) {
	if len(rec.Steps) > 0 && rec.AudioKey == "" {
		return nil, errmodel.E(errmodel.KindMalformedRecord, "codec.decode",
			fmt.Errorf("walkthrough %s has steps but no audio", rec.ID))
	}
	return decode(rec.ID, metadataOf(rec), rec.Steps, rec.DurationMs,
		session.Remote{URL: audioURL, ContentType: rec.AudioMimeType}, opts)
}

// DecodeWire converts a self-contained wire record into a session with
// in-memory audio.
func DecodeWire(id string, w WireRecord, opts Options) (*session.Session, error) {
	data, err := DecodeAudio(w)
	if err != nil {
		return nil, err
	}
	meta := session.Metadata{
		Name:        w.Name,
		Description: w.Description,
		Author:      w.Author,
		CourseID:    w.CourseID,
		ChapterID:   w.ChapterID,
		LessonID:    w.LessonID,
	}
	return decode(id, meta, w.Steps, w.DurationMs, session.InMemory{Data: data, ContentType: w.AudioMimeType}, opts)
}

// FromRecord builds a wire record from a stored record and its audio bytes.
func FromRecord(rec datastore.Record, audio []byte) WireRecord {
	return WireRecord{
		Name:          rec.Name,
		Description:   rec.Description,
		Author:        rec.Author,
		CourseID:      rec.CourseID,
		ChapterID:     rec.ChapterID,
		LessonID:      rec.LessonID,
		Steps:         rec.Steps,
		AudioBase64:   base64.StdEncoding.EncodeToString(audio),
		AudioMimeType: rec.AudioMimeType,
		AudioFileName: rec.AudioFileName,
		DurationMs:    rec.DurationMs,
	}
}

func metadataOf(rec datastore.Record) session.Metadata {
	return session.Metadata{
		Name:        rec.Name,
		Description: rec.Description,
		Author:      rec.Author,
		CourseID:    rec.CourseID,
		ChapterID:   rec.ChapterID,
		LessonID:    rec.LessonID,
		CreatedAt:   rec.CreatedAt,
	}
}

func decode(id string, meta session.Metadata, steps []datastore.Step, durationMs int64, audio session.Audio, opts Options) (*session.Session, error) {
	events := make([]session.CodeEvent, len(steps))
	var last int64
	for i, st := range steps {
		if math.IsNaN(st.Timestamp) || math.IsInf(st.Timestamp, 0) || st.Timestamp < 0 {
			return nil, errmodel.E(errmodel.KindMalformedRecord, "codec.decode",
				fmt.Errorf("step %d has invalid timestamp %v", i, st.Timestamp))
		}
		ms := SecondsToMillis(st.Timestamp)
		events[i] = session.CodeEvent{Timestamp: ms, Type: session.EventKeypress, Data: st.Code}
		last = max(last, ms)
	}
	slices.SortStableFunc(events, func(a, b session.CodeEvent) int { return cmp.Compare(a.Timestamp, b.Timestamp) })

	initial := ""
	if len(events) > 0 {
		initial = events[0].Data
	}
	return session.New(session.Params{
		ID:          id,
		Metadata:    meta,
		EndTime:     max(last, opts.floorMillis(), durationMs),
		CodeEvents:  events,
		AudioEvents: []session.AudioEvent{{Timestamp: 0, Type: session.AudioStart}},
		InitialCode: initial,
		Audio:       audio,
	})
}
