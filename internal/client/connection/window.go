package connection

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Window is where the authorization URL is shown to the user.
type Window interface {
	Navigate(ctx context.Context, url string) error
}

// PrintWindow writes the URL for the user to open by hand.
type PrintWindow struct {
	W io.Writer
}

func (p PrintWindow) Navigate(_ context.Context, url string) error {
	_, err := fmt.Fprintf(p.W, "Open this URL in your browser to connect:\n%s\n", url)
	return err
}

// BrowserWindow asks the operating system to open the URL. When that fails
// it falls back to Fallback, if set.
type BrowserWindow struct {
	Fallback Window

	// command is replaced in tests.
	command func(url string) *exec.Cmd
}

func (b BrowserWindow) Navigate(ctx context.Context, url string) error {
	cmdFn := b.command
	if cmdFn == nil {
		cmdFn = openCommand
	}
	cmd := cmdFn(url)
	err := cmd.Start()
	if err == nil {
		go func() { _ = cmd.Wait() }()
		return nil
	}
	if b.Fallback != nil {
		return b.Fallback.Navigate(ctx, url)
	}
	return fmt.Errorf("open browser: %w", err)
}

func openCommand(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
