package trace

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TraceRow is the database row of a trace record.
type TraceRow struct {
	TraceID    string `gorm:"primaryKey;size:64"`
	AgentName  string `gorm:"index;size:128"`
	Model      string `gorm:"size:128"`
	WorkflowID string `gorm:"index;size:64"`
	UserID     string `gorm:"index;size:128"`
	Status     string `gorm:"size:16"`
	StartTime  time.Time
	EndTime    *time.Time
	DurationMS int64
	Input      string
	Output     string
}

// TableName implements gorm's tabler.
func (TraceRow) TableName() string { return "traces" }

// SpanRow is the database row of a span record.
type SpanRow struct {
	SpanID     string `gorm:"primaryKey;size:64"`
	TraceID    string `gorm:"index;size:64"`
	SpanType   string `gorm:"size:32"`
	AgentName  string `gorm:"size:128"`
	Status     string `gorm:"size:16"`
	StartTime  time.Time
	EndTime    *time.Time
	DurationMS int64
	Input      string
	Output     string
}

// TableName implements gorm's tabler.
func (SpanRow) TableName() string { return "spans" }

// GormSink persists records through gorm.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink migrates the schema and returns a sink.
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&TraceRow{}, &SpanRow{}); err != nil {
		return nil, fmt.Errorf("migrate trace tables: %w", err)
	}
	return &GormSink{db: db}, nil
}

// SaveTrace implements Sink.
func (s *GormSink) SaveTrace(ctx context.Context, rec Record) error {
	row := TraceRow{
		TraceID:    rec.TraceID,
		AgentName:  rec.AgentName,
		Model:      rec.Model,
		WorkflowID: rec.WorkflowID,
		UserID:     rec.UserID,
		Status:     string(rec.Status),
		StartTime:  rec.StartTime,
		EndTime:    rec.EndTime,
		DurationMS: rec.DurationMS,
		Input:      rec.Input,
		Output:     rec.Output,
	}

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save trace %s: %w", rec.TraceID, err)
	}

	return nil
}

// SaveSpan implements Sink.
func (s *GormSink) SaveSpan(ctx context.Context, rec Record) error {
	row := SpanRow{
		SpanID:     rec.SpanID,
		TraceID:    rec.TraceID,
		SpanType:   rec.SpanType,
		AgentName:  rec.AgentName,
		Status:     string(rec.Status),
		StartTime:  rec.StartTime,
		EndTime:    rec.EndTime,
		DurationMS: rec.DurationMS,
		Input:      rec.Input,
		Output:     rec.Output,
	}

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save span %s: %w", rec.SpanID, err)
	}

	return nil
}

// Traces lists trace rows of an agent, newest first.
func (s *GormSink) Traces(ctx context.Context, agent string, limit int) ([]TraceRow, error) {
	var rows []TraceRow
	err := s.db.WithContext(ctx).
		Where("agent_name = ?", agent).
		Order("start_time desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
