//go:build ignore

// build.go - fiidy build system
// Usage: go run build.go [-target=TARGET]
// Targets: all, cli, server, test, clean, release

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

const versionVar = "fiidy/internal/config.AppVersion"

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	Version string
	GOOS    string
	GOARCH  string
	OutDir  string
}

var (
	// key = source dir under cmd/, value = output binary name
	executables = map[string]string{
		"fiidy":        "fiidy",
		"fiidy-server": "fiidy-server",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "dev", "Version stamped into the binaries")
	flag.Parse()

	printHeader()
	start := time.Now()

	ctx := &BuildContext{
		Verbose: *verbose,
		Version: *version,
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		OutDir:  "dist",
	}

	var err error
	switch *target {
	case "all":
		err = buildAll(ctx)
	case "cli":
		err = buildExecutable("fiidy", ctx)
	case "server":
		err = buildExecutable("fiidy-server", ctx)
	case "test":
		err = runTests(ctx.Verbose)
	case "clean":
		err = os.RemoveAll(ctx.OutDir)
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

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "          fiidy - Build System             " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func buildAll(ctx *BuildContext) error {
	printInfo("Building all components...")
	if err := os.MkdirAll(ctx.OutDir, 0o755); err != nil {
		return err
	}
	for name := range executables {
		if err := buildExecutable(name, ctx); err != nil {
			return err
		}
	}
	return nil
}

func buildExecutable(name string, ctx *BuildContext) error {
	out, ok := executables[name]
	if !ok {
		return fmt.Errorf("unknown executable: %s", name)
	}
	if ctx.GOOS == "windows" {
		out += ".exe"
	}
	outputPath := filepath.Join(ctx.OutDir, ctx.GOOS+"_"+ctx.GOARCH, out)

	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, ctx.GOOS, ctx.GOARCH))

	ldflags := fmt.Sprintf("-s -w -X %s=%s", versionVar, ctx.Version)
	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + name}
	if ctx.Verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH, "CGO_ENABLED=0")
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		cmd.Stdout = os.Stdout
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outputPath, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running tests...")
	args := []string{"test", "-race", "./..."}
	if verbose {
		args = append(args, "-v")
	}
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// buildRelease cross-compiles every executable for the supported platforms.
func buildRelease(ctx *BuildContext) error {
	platforms := [][2]string{
		{"linux", "amd64"},
		{"linux", "arm64"},
		{"darwin", "arm64"},
		{"windows", "amd64"},
	}
	for _, p := range platforms {
		c := *ctx
		c.GOOS, c.GOARCH = p[0], p[1]
		if err := buildAll(&c); err != nil {
			return err
		}
	}
	return nil
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v] [-version=X.Y.Z]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all      Build fiidy and fiidy-server (default)")
	fmt.Println("  cli      Build the fiidy command only")
	fmt.Println("  server   Build the fiidy-server HTTP service only")
	fmt.Println("  test     Run all tests with the race detector")
	fmt.Println("  clean    Remove the dist directory")
	fmt.Println("  release  Cross-compile for all release platforms")
}
