// Package datastore persists walkthrough records: metadata, ordered steps and
// the key of the audio blob that belongs to them.
package datastore

import (
	"context"
	"time"
)

// Step is one stored snapshot. Timestamp is in seconds.
type Step struct {
	Code      string  `json:"code"`
	Timestamp float64 `json:"timestamp"`
}

// CreateInput is everything needed to create a record.
type CreateInput struct {
	Name          string
	Description   string
	Author        string
	CourseID      string
	ChapterID     string
	LessonID      string
	Steps         []Step
	AudioKey      string
	AudioMimeType string
	AudioFileName string
	DurationMs    int64
}

// Created is what the store assigns on create.
type Created struct {
	ID        string
	AudioKey  string
	CreatedAt time.Time
}

// Record is a stored walkthrough. List results leave Steps nil and set
// StepCount instead.
type Record struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Author        string    `json:"author,omitempty"`
	CourseID      string    `json:"courseId,omitempty"`
	ChapterID     string    `json:"chapterId,omitempty"`
	LessonID      string    `json:"lessonId,omitempty"`
	Steps         []Step    `json:"steps,omitempty"`
	StepCount     int       `json:"stepCount"`
	AudioKey      string    `json:"audioKey"`
	AudioMimeType string    `json:"audioMimeType"`
	AudioFileName string    `json:"audioFileName,omitempty"`
	DurationMs    int64     `json:"durationMs,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	CourseID  string
	ChapterID string
	LessonID  string
	Limit     int
}

// Store is the data store collaborator. Get returns an error matching
// errmodel.ErrNotFound for unknown ids; Delete of an unknown id succeeds.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Created, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
