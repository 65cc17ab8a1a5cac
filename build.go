//go:build ignore

// build.go - Linka Build System
// Usage: go run build.go [-target=TARGET]
// Targets: all, server, frontend, clean, test, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "linka"

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose  bool
	Frontend string
	Commit   string
}

var (
	rootDir string
	distDir string

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s. Run the build from the module root.", rootDir))
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	frontend := flag.String("frontend", filepath.Join("..", "web"), "Frontend project directory")
	flag.Parse()

	if runtime.GOOS == "windows" {
		colorReset, colorRed, colorGreen, colorYellow, colorCyan = "", "", "", "", ""
	}

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{
		Verbose:  *verbose,
		Frontend: *frontend,
		Commit:   gitCommit(),
	}

	var err error
	switch *target {
	case "all":
		err = buildAll(ctx)
	case "server":
		err = buildServer(ctx)
	case "frontend":
		err = buildFrontend(ctx)
	case "clean":
		err = clean()
	case "test":
		err = runTests(ctx)
	case "release":
		err = buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "========================================" + colorReset)
	fmt.Println(colorCyan + "          Linka - Build System          " + colorReset)
	fmt.Println(colorCyan + "========================================" + colorReset)
}

func printInfo(msg string)    { fmt.Println(colorCyan + "[INFO] " + colorReset + msg) }
func printSuccess(msg string) { fmt.Println(colorGreen + "[OK] " + colorReset + msg) }
func printError(msg string)   { fmt.Println(colorRed + "[ERROR] " + colorReset + msg) }
func printWarning(msg string) { fmt.Println(colorYellow + "[WARN] " + colorReset + msg) }

func buildAll(ctx *BuildContext) error {
	if err := buildFrontend(ctx); err != nil {
		printWarning(fmt.Sprintf("Skipping frontend: %v", err))
	}
	return buildServer(ctx)
}

// buildServer compiles cmd/linka with the version metadata linked in
func buildServer(ctx *BuildContext) error {
	printInfo("Building linka...")

	exeName := "linka"
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	outputPath := filepath.Join(distDir, exeName)

	pkg := module + "/pkg/contracts"
	ldflags := fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		pkg, time.Now().UTC().Format(time.RFC3339), pkg, ctx.Commit)

	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", ldflags, "-o", outputPath, "./cmd/linka")

	if err := run(ctx, rootDir, "go", args...); err != nil {
		return fmt.Errorf("failed to build linka: %w", err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, float64(info.Size())/1024/1024))
	}
	return nil
}

// buildFrontend runs the npm build and copies its output next to the binary,
// where the server's web_dir default expects it
func buildFrontend(ctx *BuildContext) error {
	if _, err := exec.LookPath("npm"); err != nil {
		return fmt.Errorf("npm is not installed or not in PATH")
	}
	if _, err := os.Stat(filepath.Join(ctx.Frontend, "package.json")); err != nil {
		return fmt.Errorf("no frontend project at %s", ctx.Frontend)
	}

	printInfo("Building frontend...")
	if _, err := os.Stat(filepath.Join(ctx.Frontend, "node_modules")); os.IsNotExist(err) {
		if err := run(ctx, ctx.Frontend, "npm", "install"); err != nil {
			return fmt.Errorf("npm install failed: %w", err)
		}
	}
	if err := run(ctx, ctx.Frontend, "npm", "run", "build"); err != nil {
		return fmt.Errorf("frontend build failed: %w", err)
	}

	src := filepath.Join(ctx.Frontend, "dist")
	if _, err := os.Stat(filepath.Join(src, "index.html")); err != nil {
		return fmt.Errorf("frontend build produced no index.html in %s", src)
	}
	dest := filepath.Join(distDir, "web")
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	if err := copyDir(src, dest); err != nil {
		return fmt.Errorf("failed to copy frontend: %w", err)
	}
	printSuccess("Frontend copied to " + dest)
	return nil
}

func clean() error {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		return fmt.Errorf("failed to clean dist directory: %w", err)
	}
	printSuccess("Build artifacts cleaned")
	return nil
}

func runTests(ctx *BuildContext) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go tests failed: %w", err)
	}
	printSuccess("All tests passed")
	return nil
}

func buildRelease(ctx *BuildContext) error {
	if err := clean(); err != nil {
		return err
	}
	if err := runTests(ctx); err != nil {
		return err
	}
	if err := buildAll(ctx); err != nil {
		return err
	}

	content := fmt.Sprintf("Linka\nBuilt: %s\nCommit: %s\n", time.Now().UTC().Format(time.RFC3339), ctx.Commit)
	if err := os.WriteFile(filepath.Join(distDir, "VERSION.txt"), []byte(content), 0644); err != nil {
		return err
	}
	printSuccess("Release ready in " + distDir)
	return nil
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func run(ctx *BuildContext, dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if ctx.Verbose {
		fmt.Printf("Running from %s: %s %s\n", dir, name, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v] [-frontend=DIR]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all        Build frontend (if present) and server")
	fmt.Println("  server     Build the linka binary")
	fmt.Println("  frontend   Build the frontend into dist/web")
	fmt.Println("  clean      Remove dist/")
	fmt.Println("  test       Run Go tests with -race")
	fmt.Println("  release    Clean, test and build everything")
}
