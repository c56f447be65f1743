/*
Viewer entry point: loads a model and orbits the camera around it while the
culling pipeline does its job.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefiesta/VimKit-sub001/engine"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/platform"
	"github.com/codefiesta/VimKit-sub001/engine/renderer"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/vulkan"
	"github.com/codefiesta/VimKit-sub001/testbed"
)

func main() {
	modelPath := flag.String("model", "", "glTF model to load at startup")
	configPath := flag.String("config", "", "TOML config watched for culling option changes")
	minArea := flag.Float64("min-area", 0, "reject groups covering fewer pixels than this (0 disables)")
	flag.Parse()

	game := testbed.NewViewerGame(*modelPath, *configPath)

	e, err := engine.New(game, func(p *platform.Platform) renderer.RendererBackend {
		return vulkan.New(p, culling.VisibilityOptions{
			ContributionTestEnabled: *minArea > 0,
			MinContributionArea:     float32(*minArea),
		})
	})
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		<-sigCh
		_ = e.Shutdown()
	}()

	if err := e.Run(); err != nil {
		panic(err)
	}
}
