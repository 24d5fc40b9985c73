package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TopicInput accepts either a bare topic name or a {topic, priority} object.
type TopicInput struct {
	Topic    string `json:"topic" validate:"required,max=200"`
	Priority string `json:"priority,omitempty"`
}

// UnmarshalJSON decodes both accepted topic shapes. A bare string has no priority.
func (t *TopicInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*t = TopicInput{Topic: name}
		return nil
	}

	var obj struct {
		Topic    string `json:"topic"`
		Name     string `json:"name"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("topic must be a string or an object: %w", err)
	}
	if obj.Topic == "" {
		obj.Topic = obj.Name
	}
	*t = TopicInput{Topic: obj.Topic, Priority: obj.Priority}
	return nil
}

// CreateStudyScheduleRequest is the caller-facing scheduling payload.
type CreateStudyScheduleRequest struct {
	Title            string       `json:"title" validate:"omitempty,max=200"`
	StartDate        string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate          string       `json:"endDate" validate:"required,datetime=2006-01-02"`
	Topics           []TopicInput `json:"topics" validate:"required,min=1,dive"`
	StudyHoursPerDay float64      `json:"studyHoursPerDay" validate:"required,gt=0,lte=24"`
	RestDays         []int        `json:"restDays" validate:"omitempty,max=7,dive,min=0,max=6"`
	UseAI            bool         `json:"useAI"`
}

// UpdateSessionRequest toggles a session's completion flag.
type UpdateSessionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// StudySessionResponse is one session as returned to clients.
type StudySessionResponse struct {
	ID              string     `json:"id,omitempty"`
	Date            string     `json:"date"`
	Topic           string     `json:"topic"`
	DurationMinutes int        `json:"durationMinutes"`
	Priority        string     `json:"priority"`
	Source          string     `json:"source"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// AllocationSummary explains how a schedule was produced.
type AllocationSummary struct {
	Source            string `json:"source"`
	MergePolicy       string `json:"mergePolicy"`
	ProposalRequested bool   `json:"proposalRequested"`
	ProposalAccepted  int    `json:"proposalAccepted"`
	ProposalRejected  int    `json:"proposalRejected"`
}

// StudyScheduleResponse is a schedule with its sessions.
type StudyScheduleResponse struct {
	ID                 string                 `json:"id,omitempty"`
	Title              string                 `json:"title"`
	StartDate          string                 `json:"startDate"`
	EndDate            string                 `json:"endDate"`
	StudyMinutesPerDay int                    `json:"studyMinutesPerDay"`
	RestDays           []int                  `json:"restDays"`
	Source             string                 `json:"source"`
	Sessions           []StudySessionResponse `json:"sessions,omitempty"`
	Allocation         *AllocationSummary     `json:"allocation,omitempty"`
	CreatedAt          *time.Time             `json:"createdAt,omitempty"`
}

// PriorityStats aggregates sessions of one priority tier.
type PriorityStats struct {
	Sessions         int `json:"sessions"`
	Completed        int `json:"completed"`
	PlannedMinutes   int `json:"plannedMinutes"`
	CompletedMinutes int `json:"completedMinutes"`
}

// StudyScheduleStats summarises progress through a schedule.
type StudyScheduleStats struct {
	ScheduleID        string                   `json:"scheduleId"`
	StudyDays         int                      `json:"studyDays"`
	TotalSessions     int                      `json:"totalSessions"`
	CompletedSessions int                      `json:"completedSessions"`
	PlannedMinutes    int                      `json:"plannedMinutes"`
	CompletedMinutes  int                      `json:"completedMinutes"`
	CompletionRate    float64                  `json:"completionRate"`
	ByPriority        map[string]PriorityStats `json:"byPriority"`
}

// ExportFile is a rendered schedule download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
