package engine

import (
	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
	"github.com/codefiesta/VimKit-sub001/engine/systems"
)

type ApplicationConfig struct {
	StartPosX   uint32
	StartPosY   uint32
	StartWidth  uint32
	StartHeight uint32
	Name        string
	LogLevel    core.LogLevel
	// TOML file watched for culling option changes. Optional.
	ConfigPath string
	// Model loaded at startup. Optional; the scene stays empty without it.
	ModelPath string
}

type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(packet *metadata.RenderPacket, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
