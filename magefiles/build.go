//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderSources = []string{
	"scene.vert",
	"scene.frag",
	"proxy.vert",
	"proxy.frag",
	"cull.comp",
}

// Compiles the GLSL shaders to SPIR-V next to their sources.
func (Build) Shaders() error {
	for _, src := range shaderSources {
		in := filepath.Join("assets", "shaders", src)
		out := in + ".spv"
		if _, err := executeCmd("glslc", withArgs(in, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Runs the test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Compiles the shaders and builds the viewer binary.
func (b Build) Binary() error {
	mg.Deps(b.Shaders)
	fmt.Println("Building viewer...")
	if _, err := executeCmd("go", withArgs("build", "-o", "viewer", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}
