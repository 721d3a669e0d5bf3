package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockService is a scripted calendar backend for tests and demo mode.
type MockService struct {
	mu      sync.Mutex
	busy    []Interval
	events  []Event
	created []Event

	// Err, when set, is returned by every operation.
	Err error

	nextUID int
}

// NewMockService returns an empty mock backend.
func NewMockService() *MockService {
	return &MockService{}
}

// WithBusy appends scripted busy intervals.
func (m *MockService) WithBusy(intervals ...Interval) *MockService {
	m.busy = append(m.busy, intervals...)
	return m
}

// WithEvents appends scripted named events. Their time ranges also count as busy.
func (m *MockService) WithEvents(events ...Event) *MockService {
	m.events = append(m.events, events...)
	return m
}

// Created returns the events created through the mock, in creation order.
func (m *MockService) Created() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.created))
	copy(out, m.created)
	return out
}

func (m *MockService) BusyIntervals(_ context.Context, start, end time.Time) ([]Interval, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Interval, 0)
	for _, iv := range m.busy {
		if iv.Overlaps(start, end) {
			out = append(out, iv)
		}
	}
	for _, ev := range m.events {
		if (Interval{Start: ev.Start, End: ev.End}).Overlaps(start, end) {
			out = append(out, Interval{Start: ev.Start, End: ev.End})
		}
	}
	for _, ev := range m.created {
		if (Interval{Start: ev.Start, End: ev.End}).Overlaps(start, end) {
			out = append(out, Interval{Start: ev.Start, End: ev.End})
		}
	}
	return out, nil
}

func (m *MockService) FindEventByName(_ context.Context, query string, start, end time.Time) (*Event, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var best *Event
	for i := range m.events {
		ev := m.events[i]
		if ev.Start.Before(start) || !ev.Start.Before(end) {
			continue
		}
		if !nameMatches(strings.ToLower(ev.Summary), query) {
			continue
		}
		if best == nil || ev.Start.Before(best.Start) {
			copied := ev
			best = &copied
		}
	}
	return best, nil
}

func (m *MockService) CreateEvent(_ context.Context, input EventInput) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUID++
	uid := fmt.Sprintf("mock-event-%d", m.nextUID)
	m.created = append(m.created, Event{
		UID:         uid,
		Summary:     input.Title,
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
		Attendees:   input.Attendees,
	})
	return uid, nil
}

var _ Service = (*MockService)(nil)
