package biz

import (
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Dedup     *usecase.DedupUsecase
	Identity  *usecase.IdentityUsecase
	Generator *usecase.GeneratorUsecase
	Router    *usecase.RouterUsecase
	Pipeline  *usecase.PipelineUsecase
	Approval  *usecase.ApprovalUsecase
}
