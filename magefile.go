//go:build mage

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build builds pimadash for Linux with Green Tea GC
func Build() error {
	fmt.Println("Building pimadash for Linux with Go 1.25 + Green Tea GC...")
	env := map[string]string{
		"GOOS":         "linux",
		"GOARCH":       "amd64",
		"GOEXPERIMENT": "greenteagc",
	}
	return sh.RunWith(env, "go", "build", "-o", "pimadash-linux-amd64", "./cmd/pimadash")
}

// BuildLocal builds pimadash for current platform
func BuildLocal() error {
	fmt.Printf("Building pimadash for %s/%s...\n", runtime.GOOS, runtime.GOARCH)
	return sh.Run("go", "build", "-o", "pimadash", "./cmd/pimadash")
}

// BuildDocker builds the container variant without self-upgrade
func BuildDocker() error {
	fmt.Println("Building pimadash for Docker...")
	env := map[string]string{
		"GOOS":        "linux",
		"CGO_ENABLED": "0",
	}
	return sh.RunWith(env, "go", "build", "-tags", "docker", "-o", "pimadash-docker", "./cmd/pimadash")
}

// Test runs tests
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "-v", "./...")
}

// Integration runs tests against PostgreSQL (DATABASE_URL, default localhost)
func Integration() error {
	fmt.Println("Running integration tests...")
	return sh.Run("go", "test", "-tags", "integration", "-v", "./...")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning build artifacts...")
	os.Remove("pimadash")
	os.Remove("pimadash-linux-amd64")
	os.Remove("pimadash-docker")
	return nil
}

// Update upgrades all Go dependencies
func Update() error {
	fmt.Println("Updating dependencies...")
	if err := sh.Run("go", "get", "-u", "./..."); err != nil {
		return err
	}
	return sh.Run("go", "mod", "tidy")
}

// Fmt runs gofmt on all Go files
func Fmt() error {
	fmt.Println("Formatting code...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet on all Go files
func Vet() error {
	fmt.Println("Vetting code...")
	return sh.Run("go", "vet", "./...")
}

// Bench runs benchmarks
func Bench() error {
	fmt.Println("Running benchmarks...")
	return sh.Run("go", "test", "-bench=.", "./...")
}

// Deps downloads dependencies
func Deps() error {
	fmt.Println("Downloading dependencies...")
	return sh.Run("go", "mod", "download")
}

// Tidy tidies go.mod
func Tidy() error {
	fmt.Println("Tidying go.mod...")
	return sh.Run("go", "mod", "tidy")
}

// CI runs all checks for continuous integration
func CI() error {
	mg.SerialDeps(Deps, Fmt, Vet, Test)
	fmt.Println("All CI checks passed!")
	return nil
}
