// Package events publishes attendance events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubjectAttendanceRecorded is the NATS subject for committed attendance.
const SubjectAttendanceRecorded = "attendance.recorded"

// AttendanceRecorded is emitted after an attendance record is committed.
type AttendanceRecorded struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	LessonID   string    `json:"lesson_id"`
	Classroom  string    `json:"classroom,omitempty"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NATSPublisher sends events over a NATS connection.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher builds a publisher. An empty subject uses
// SubjectAttendanceRecorded.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSPublisher {
	if subject == "" {
		subject = SubjectAttendanceRecorded
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_publisher").Logger(),
	}
}

// PublishAttendance publishes the event. It does not wait for delivery.
func (p *NATSPublisher) PublishAttendance(_ context.Context, event AttendanceRecorded) error {
	if p == nil || p.conn == nil {
		return nil
	}

	payload, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	p.logger.Debug().Str("event_id", event.ID).Str("lesson_id", event.LessonID).Msg("attendance event published")
	return nil
}

// Encode fills in a missing event id and serialises the event.
func Encode(event AttendanceRecorded) ([]byte, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}
	return json.Marshal(event)
}
