package browser

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// Opener shows a session URL to the user: it always prints it, and can copy
// it to the clipboard and open it in the system browser.
type Opener struct {
	Out     io.Writer
	Browse  bool
	CopyURL bool

	copy  func(string) error
	start func(ctx context.Context, name string, args ...string) error
}

// NewOpener creates an Opener printing to out.
func NewOpener(out io.Writer, browse, copyURL bool) *Opener {
	return &Opener{
		Out:     out,
		Browse:  browse,
		CopyURL: copyURL,
		copy:    clipboard.WriteAll,
		start:   startCommand,
	}
}

// Open implements session.Navigator. Clipboard and browser failures are
// logged; the URL has already been printed.
func (o *Opener) Open(ctx context.Context, url string) error {
	if _, err := fmt.Fprintf(o.Out, "Session: %s\n", url); err != nil {
		return err
	}

	if o.CopyURL && o.copy != nil {
		if err := o.copy(url); err != nil {
			log.Warn("could not copy URL to clipboard: %v", err)
		} else {
			log.Debug("copied %s to clipboard", url)
		}
	}

	if o.Browse && o.start != nil {
		if err := o.start(ctx, OpenCommand(runtime.GOOS), url); err != nil {
			log.Warn("could not open browser: %v", err)
		}
	}
	return nil
}

// OpenCommand is the program that opens a URL on goos.
func OpenCommand(goos string) string {
	if goos == "darwin" {
		return "open"
	}
	return "xdg-open"
}

func startCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child without blocking the caller.
	go cmd.Wait()
	return nil
}
