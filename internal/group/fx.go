package group

import (
	"github.com/savingsapp/groupservice/internal/group/repository"
	"github.com/savingsapp/groupservice/internal/group/service"
	"go.uber.org/fx"
)

var Module = fx.Module("group.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
