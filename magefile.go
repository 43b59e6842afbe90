//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var binDir = "bin"

// binaries built by Build, keyed by output name.
var binaries = map[string]string{
	"order":    "./cmd/order",
	"payment":  "./cmd/payment",
	"notifier": "./cmd/notifier",
	"migrate":  "./cmd/tools/migrate",
	"devtoken": "./cmd/tools/devtoken",
	"publish":  "./cmd/tools/publish",
}

var Default = Build

func Build() error {
	mg.Deps(Tidy)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "0"}
	for name, pkg := range binaries {
		out := filepath.Join(binDir, name+exeSuffix())
		fmt.Println("Building:", out)
		if err := sh.RunWithV(env, "go", "build", "-trimpath", "-o", out, pkg); err != nil {
			return err
		}
	}
	return nil
}

// Lambda builds the notifier for the provided.al2023 runtime.
func Lambda() error {
	if err := os.MkdirAll(filepath.Join(binDir, "lambda"), 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "0", "GOOS": "linux", "GOARCH": "arm64"}
	out := filepath.Join(binDir, "lambda", "bootstrap")
	fmt.Println("Building:", out)
	return sh.RunWithV(env, "go", "build", "-trimpath", "-tags", "lambda.norpc", "-o", out, "./cmd/notifier")
}

// Test needs cgo for the sqlite driver used by storage tests.
func Test() error {
	fmt.Println("Testing...")
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...", "-count=1")
}

func TestRace() error {
	fmt.Println("Testing with -race...")
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...", "-race", "-count=1")
}

func Fmt() error {
	return sh.RunV("gofmt", "-w", "./cmd", "./internal", "./magefile.go")
}

func Lint() error {
	fmt.Println("Linting (golangci-lint)...")
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		return fmt.Errorf("golangci-lint not found. Install with: mage tools")
	}
	return sh.RunV("golangci-lint", "run", "--timeout=3m", "./...")
}

func Check() error {
	mg.Deps(Fmt, Lint, Test)
	fmt.Println("Check OK.")
	return nil
}

func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func Clean() error {
	return os.RemoveAll(binDir)
}

func Tools() error {
	return sh.RunV("go", "install", "github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest")
}

type Run mg.Namespace

// Order runs the order service on PORT (default 8080).
func (Run) Order() error { return sh.RunV("go", "run", "./cmd/order") }

func (Run) Payment() error { return sh.RunV("go", "run", "./cmd/payment") }

// Notifier runs the notifier as a long-lived worker.
func (Run) Notifier() error { return sh.RunV("go", "run", "./cmd/notifier") }

// Migrate applies the schema for SERVICE (order, payment, notifier).
func Migrate() error {
	svc := os.Getenv("SERVICE")
	if svc == "" {
		return fmt.Errorf("set SERVICE=order|payment|notifier")
	}
	return sh.RunV("go", "run", "./cmd/tools/migrate", "--service", svc)
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
