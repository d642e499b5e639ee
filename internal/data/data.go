package data

import (
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// Options configures NewRepositories
type Options struct {
	DedupTTL   time.Duration
	Graph      GraphConfig
	Completion CompletionConfig
}

// Repositories contains all repositories
type Repositories struct {
	Message    repo.MessageRepo
	Account    repo.AccountRepo
	Correction repo.CorrectionRepo
	Dedup      repo.DedupCache
	Identity   repo.IdentityRepo
	Outbound   repo.OutboundSender
	Completion repo.CompletionRepo
}

// NewRepositories creates all repositories over one database
func NewRepositories(db *DB, opts Options) *Repositories {
	graph := NewGraphClient(opts.Graph)
	return &Repositories{
		Message:    NewMessageRepo(db),
		Account:    NewAccountRepo(db),
		Correction: NewCorrectionRepo(db),
		Dedup:      NewDedupCache(opts.DedupTTL),
		Identity:   graph,
		Outbound:   graph,
		Completion: NewCompletionRepo(opts.Completion),
	}
}
