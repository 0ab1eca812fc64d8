package main

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// userQueue runs jobs one at a time per user in arrival order. Jobs of
// different users run concurrently.
type userQueue struct {
	mu      sync.Mutex
	pending map[int64][]func() // present while the user's worker runs
	wg      sync.WaitGroup
}

func newUserQueue() *userQueue {
	return &userQueue{pending: make(map[int64][]func())}
}

// Submit queues job behind the user's earlier jobs.
func (q *userQueue) Submit(user int64, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if jobs, running := q.pending[user]; running {
		q.pending[user] = append(jobs, job)
		return
	}
	q.pending[user] = []func(){}
	q.wg.Add(1)
	go q.drain(user, job)
}

func (q *userQueue) drain(user int64, job func()) {
	defer q.wg.Done()
	for {
		job()

		q.mu.Lock()
		jobs := q.pending[user]
		if len(jobs) == 0 {
			delete(q.pending, user)
			q.mu.Unlock()
			return
		}
		job = jobs[0]
		q.pending[user] = jobs[1:]
		q.mu.Unlock()
	}
}

// Wait blocks until every queued job has run.
func (q *userQueue) Wait() {
	q.wg.Wait()
}

// updateSender returns the Telegram user an update belongs to.
func updateSender(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	}
	return 0, false
}
