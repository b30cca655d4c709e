package tool

import (
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
)

// Client contains shared resources that tools can use
type Client struct {
	Engine      *analytics.Engine
	Coordinator *coordinator.UseCase
}
