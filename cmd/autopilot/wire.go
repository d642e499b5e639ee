package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz"
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
	"github.com/devricklin/inbox-autopilot/internal/conf"
	"github.com/devricklin/inbox-autopilot/internal/data"
)

// openDB opens the configured database
func openDB(cfg *conf.Config) (*data.DB, error) {
	db, err := data.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// newUsecases wires the usecase layer over the repositories
func newUsecases(cfg *conf.Config, repos *data.Repositories, log *zap.Logger) *biz.Usecases {
	dedupUC := usecase.NewDedupUsecase(repos.Dedup, repos.Message, cfg.Pipeline.ContentWindow, log)
	identityUC := usecase.NewIdentityUsecase(repos.Identity, repos.Account, cfg.Pipeline.IdentityTimeout, log)
	generatorUC := usecase.NewGeneratorUsecase(repos.Completion, repos.Correction, cfg.ToPromptConfig(), cfg.ToRetryPolicy(), log)
	routerUC := usecase.NewRouterUsecase(repos.Message, repos.Outbound, log)

	return &biz.Usecases{
		Dedup:     dedupUC,
		Identity:  identityUC,
		Generator: generatorUC,
		Router:    routerUC,
		Pipeline:  usecase.NewPipelineUsecase(repos.Account, dedupUC, identityUC, generatorUC, routerUC, log),
		Approval:  usecase.NewApprovalUsecase(repos.Message, repos.Account, repos.Correction, generatorUC, routerUC, log),
	}
}
