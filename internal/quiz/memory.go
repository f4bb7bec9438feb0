package quiz

import (
	"context"
	"sort"
	"sync"
	"time"
)

type attemptKey struct{ userID, quizID string }

// MemoryStore keeps everything in maps. Reads and writes copy values so
// callers never share slices with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	quizzes   map[string]Quiz
	attempts  map[string]Attempt
	completed map[attemptKey]string // (user, quiz) -> attempt id
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		quizzes:   map[string]Quiz{},
		attempts:  map[string]Attempt{},
		completed: map[attemptKey]string{},
	}
}

func (m *MemoryStore) CreateQuiz(_ context.Context, q Quiz) (Quiz, error) {
	if err := ValidateDraft(q); err != nil {
		return Quiz{}, err
	}
	q = prepareNew(q, m.now().UTC())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.quizzes[q.ID]; taken {
		return Quiz{}, &ValidationError{Field: "id", Reason: "already in use"}
	}
	m.quizzes[q.ID] = q.Clone()
	return q, nil
}

func (m *MemoryStore) GetQuizWithQuestions(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q.Clone(), nil
}

func (m *MemoryStore) UpdateQuiz(_ context.Context, id string, p Patch) (Quiz, error) {
	if err := ValidatePatch(p); err != nil {
		return Quiz{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	p.apply(&q, m.now().UTC())
	m.quizzes[id] = q
	return q.Clone(), nil
}

func (m *MemoryStore) DeleteQuiz(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return ErrNotFound
	}
	delete(m.quizzes, id)
	for aid, a := range m.attempts {
		if a.QuizID == id {
			delete(m.attempts, aid)
			delete(m.completed, attemptKey{a.UserID, a.QuizID})
		}
	}
	return nil
}

func (m *MemoryStore) ListQuizzes(_ context.Context, opts ListOpts) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{}
	for _, a := range m.attempts {
		counts[a.QuizID]++
	}
	out := []Summary{}
	for _, q := range m.quizzes {
		if opts.CreatorID != "" && q.CreatorID != opts.CreatorID {
			continue
		}
		if opts.ActiveOnly && !q.IsActive {
			continue
		}
		s := Summary{Quiz: q.Clone(), QuestionCount: len(q.Questions), AttemptCount: counts[q.ID]}
		s.Questions = nil
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) FindCompletedAttempt(_ context.Context, userID, quizID string) (*Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.completed[attemptKey{userID, quizID}]
	if !ok {
		return nil, nil
	}
	a := m.attempts[id].Clone()
	return &a, nil
}

func (m *MemoryStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	if err := ctx.Err(); err != nil {
		return Attempt{}, err
	}
	a = prepareAttempt(a)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return Attempt{}, ErrNotFound
	}
	key := attemptKey{a.UserID, a.QuizID}
	if a.CompletedAt != nil {
		if _, dup := m.completed[key]; dup {
			return Attempt{}, ErrAlreadyCompleted
		}
		m.completed[key] = a.ID
	}
	m.attempts[a.ID] = a.Clone()
	return a, nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a.Clone(), nil
}

func (m *MemoryStore) ListAttemptsByQuiz(_ context.Context, quizID string) ([]Attempt, error) {
	return m.listAttempts(func(a Attempt) bool { return a.QuizID == quizID }), nil
}

func (m *MemoryStore) ListAttemptsByUser(_ context.Context, userID string) ([]Attempt, error) {
	return m.listAttempts(func(a Attempt) bool { return a.UserID == userID }), nil
}

func (m *MemoryStore) listAttempts(keep func(Attempt) bool) []Attempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if keep(a) {
			c := a.Clone()
			c.Answers = nil
			out = append(out, c)
		}
	}
	sortByCompletion(out)
	return out
}

func sortByCompletion(list []Attempt) {
	at := func(a Attempt) time.Time {
		if a.CompletedAt != nil {
			return *a.CompletedAt
		}
		return a.StartedAt
	}
	sort.Slice(list, func(i, j int) bool {
		ti, tj := at(list[i]), at(list[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return list[i].ID > list[j].ID
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return list[:0]
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
