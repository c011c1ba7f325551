package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abrezinsky/zoolo/internal/catalog"
	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
)

// ResultService records and reads draw results
type ResultService struct {
	log         logger.Logger
	repo        repository.ResultRepository
	policy      *schedule.Policy
	broadcaster Broadcaster
	notifier    Notifier
	metrics     Recorder
}

// NewResultService creates a new ResultService
func NewResultService(log logger.Logger, repo repository.ResultRepository, policy *schedule.Policy) *ResultService {
	return &ResultService{
		log:         log,
		repo:        repo,
		policy:      policy,
		broadcaster: noopBroadcaster{},
		notifier:    noopNotifier{},
		metrics:     noopRecorder{},
	}
}

// SetBroadcaster sets the event broadcaster
func (s *ResultService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetNotifier sets the operator notifier
func (s *ResultService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetRecorder sets the metrics recorder
func (s *ResultService) SetRecorder(r Recorder) {
	s.metrics = r
}

// SlotResult is the state of one draw of a day
type SlotResult struct {
	Slot     string     `json:"slot"`
	AltLabel string     `json:"alt_label"`
	Code     *string    `json:"code"`
	Name     string     `json:"name,omitempty"`
	Color    string     `json:"color,omitempty"`
	PostedAt *time.Time `json:"posted_at,omitempty"`
}

// DayResults holds every scheduled draw of a day, posted or not
type DayResults struct {
	Date    string             `json:"date"`
	Slots   []SlotResult       `json:"slots"`
	Results map[string]*string `json:"results"`
}

// Post records the animal drawn for slot on date. Posting again for the
// same draw replaces the earlier result.
func (s *ResultService) Post(ctx context.Context, actor models.Actor, date, slot, code string) (*models.DrawResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !catalog.Valid(code) {
		return nil, ErrInvalidAnimal
	}
	resolved, err := resolveSlot(s.policy, slot)
	if err != nil {
		return nil, err
	}
	date, err = s.policy.ParseDate(date)
	if err != nil {
		return nil, err
	}

	result := models.DrawResult{
		Date:     date,
		Slot:     resolved.Label,
		Code:     code,
		PostedAt: s.policy.Now(),
	}
	if err := s.repo.UpsertResult(ctx, result); err != nil {
		return nil, errors.Internal(err)
	}

	name := catalog.Name(code)
	s.log.Info("Result posted", "date", date, "slot", result.Slot, "code", code, "animal", name)
	s.metrics.ResultPosted()
	s.broadcaster.BroadcastMessage("result_posted", map[string]interface{}{
		"date": date,
		"slot": result.Slot,
		"code": code,
		"name": name,
	})
	s.notifier.Notify(ctx, fmt.Sprintf("Resultado %s %s: %s %s", date, result.Slot, code, name))
	return &result, nil
}

// Get returns the results of date with every scheduled draw present
func (s *ResultService) Get(ctx context.Context, date string) (*DayResults, error) {
	date, err := s.policy.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListResults(ctx, date)
	if err != nil {
		return nil, errors.Internal(err)
	}
	posted := make(map[string]models.DrawResult, len(rows))
	for _, r := range rows {
		posted[r.Slot] = r
	}

	day := &DayResults{
		Date:    date,
		Slots:   make([]SlotResult, 0, len(s.policy.Slots)),
		Results: make(map[string]*string, len(s.policy.Slots)),
	}
	for _, slot := range s.policy.Slots {
		entry := SlotResult{Slot: slot.Label, AltLabel: slot.AltLabel}
		if r, ok := posted[slot.Label]; ok {
			code := r.Code
			at := r.PostedAt
			entry.Code = &code
			entry.PostedAt = &at
			if a, ok := catalog.Lookup(code); ok {
				entry.Name = a.Name
				entry.Color = string(a.Color)
			}
		}
		day.Slots = append(day.Slots, entry)
		day.Results[slot.Label] = entry.Code
	}
	return day, nil
}
