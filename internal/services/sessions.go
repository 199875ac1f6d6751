package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"flash-quiz/internal/models"
)

var (
	ErrSessionNotFound = errors.New("study session not found")
	ErrCardNotFound    = errors.New("card not found in session")
	ErrEmptyDeck       = errors.New("a study session needs at least one card")
)

// SessionService keeps study sessions in memory for the lifetime of the
// process and schedules answered cards with FSRS.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*models.StudySession
	params   fsrs.Parameters
	now      func() time.Time
}

func NewSessionService() *SessionService {
	return &SessionService{
		sessions: make(map[string]*models.StudySession),
		params:   fsrs.DefaultParam(),
		now:      time.Now,
	}
}

func (s *SessionService) Create(cards []models.FlashCard) (*models.StudySession, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now().UTC()
	session := &models.StudySession{
		ID:        id,
		Cards:     append([]models.FlashCard(nil), cards...),
		Stats:     models.StudyStats{Total: len(cards)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Answer state is tracked per session and starts clear.
	for i := range session.Cards {
		session.Cards[i].IsCorrect = nil
		session.Cards[i].LastReviewed = nil
		session.Cards[i].Schedule = nil
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return snapshot(session), nil
}

func (s *SessionService) Get(id string) (*models.StudySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(session), nil
}

func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Answer records the user's verdict on a card. isCorrect and lastReviewed are
// set together, the FSRS schedule is advanced (correct rates Good, incorrect
// rates Again) and the cursor moves on unless it is on the last card.
func (s *SessionService) Answer(id, cardID string, correct bool) (*models.StudySession, error) {
	var out *models.StudySession
	err := s.withSession(id, func(session *models.StudySession, now time.Time) error {
		idx := indexOfCard(session.Cards, cardID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
		}
		card := &session.Cards[idx]

		rating := fsrs.Again
		if correct {
			rating = fsrs.Good
		}
		scheduling := s.params.Repeat(card.Schedule.ToFSRSCard(), now)
		info, ok := scheduling[rating]
		if !ok {
			return fmt.Errorf("rating %d not supported", rating)
		}

		verdict := correct
		reviewed := now
		card.IsCorrect = &verdict
		card.LastReviewed = &reviewed
		card.Schedule = models.ScheduleFromFSRS(info.Card)

		if correct {
			session.Stats.Correct++
		} else {
			session.Stats.Incorrect++
		}
		if idx == session.CurrentIndex && !session.IsLastCard() {
			session.CurrentIndex++
		}
		out = snapshot(session)
		return nil
	})
	return out, err
}

func (s *SessionService) Next(id string) (*models.StudySession, error) {
	return s.move(id, 1)
}

func (s *SessionService) Previous(id string) (*models.StudySession, error) {
	return s.move(id, -1)
}

// Reset rewinds to the first card and clears the tallies. Card answers are kept.
func (s *SessionService) Reset(id string) (*models.StudySession, error) {
	var out *models.StudySession
	err := s.withSession(id, func(session *models.StudySession, _ time.Time) error {
		session.CurrentIndex = 0
		session.Stats = models.StudyStats{Total: len(session.Cards)}
		out = snapshot(session)
		return nil
	})
	return out, err
}

func (s *SessionService) move(id string, delta int) (*models.StudySession, error) {
	var out *models.StudySession
	err := s.withSession(id, func(session *models.StudySession, _ time.Time) error {
		next := session.CurrentIndex + delta
		if next >= 0 && next < len(session.Cards) {
			session.CurrentIndex = next
		}
		out = snapshot(session)
		return nil
	})
	return out, err
}

func (s *SessionService) withSession(id string, fn func(session *models.StudySession, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	now := s.now().UTC()
	if err := fn(session, now); err != nil {
		return err
	}
	session.UpdatedAt = now
	return nil
}

func indexOfCard(cards []models.FlashCard, id string) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshot deep-copies a session so callers never share mutable state with the store.
func snapshot(session *models.StudySession) *models.StudySession {
	out := *session
	out.Cards = make([]models.FlashCard, len(session.Cards))
	for i, card := range session.Cards {
		if card.IsCorrect != nil {
			v := *card.IsCorrect
			card.IsCorrect = &v
		}
		if card.LastReviewed != nil {
			v := *card.LastReviewed
			card.LastReviewed = &v
		}
		if card.Schedule != nil {
			v := *card.Schedule
			card.Schedule = &v
		}
		out.Cards[i] = card
	}
	if len(session.Cards) > 0 {
		out.Progress = float64(session.CurrentIndex) / float64(len(session.Cards)) * 100
	}
	return &out
}
