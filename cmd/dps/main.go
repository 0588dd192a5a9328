// Package main provides the diffusion posterior sampling CLI.
package main

import (
	"fmt"
	"os"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/backend/webgpu"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Diffusion Posterior Sampling %s\n", version)
			return
		case "backends":
			fmt.Println("cpu: available")
			if webgpu.IsAvailable() {
				fmt.Println("webgpu: available")
			} else {
				fmt.Println("webgpu: not available")
			}
			return
		}
	}

	fmt.Println("Diffusion Posterior Sampling - Guided Diffusion for Inverse Problems in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version     Show version")
	fmt.Println("  backends    List available compute backends")
	fmt.Println("")
	fmt.Println("See examples/ for end-to-end sampling runs.")
}
