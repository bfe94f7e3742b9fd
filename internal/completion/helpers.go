package completion

import (
	"time"

	"github.com/google/uuid"
)

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func cloneUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
