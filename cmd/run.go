package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/mirofic/fetchr/internal/fetch"
	"github.com/mirofic/fetchr/internal/output"
	"github.com/mirofic/fetchr/internal/probe"
	"github.com/mirofic/fetchr/internal/transfer"
	"github.com/mirofic/fetchr/internal/utils"
)

// All running sessions register here so one interrupt reaches every one of
// them, single download or batch alike.
var activeSessions struct {
	mu   sync.Mutex
	list map[*transfer.Session]struct{}
}

var interruptOnce sync.Once

func trackSession(s *transfer.Session) {
	activeSessions.mu.Lock()
	if activeSessions.list == nil {
		activeSessions.list = make(map[*transfer.Session]struct{})
	}
	activeSessions.list[s] = struct{}{}
	activeSessions.mu.Unlock()
	interruptOnce.Do(watchInterrupts)
}

func untrackSession(s *transfer.Session) {
	activeSessions.mu.Lock()
	delete(activeSessions.list, s)
	activeSessions.mu.Unlock()
}

// watchInterrupts cancels cooperatively on the first SIGINT so partial bytes
// stay resumable, and quits on the spot on the second.
func watchInterrupts() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		output.PrintWarning("Interrupt received, cancelling (press again to force quit)")
		activeSessions.mu.Lock()
		for s := range activeSessions.list {
			s.Cancel()
		}
		activeSessions.mu.Unlock()
		<-sigCh
		os.Exit(1)
	}()
}

// buildPlainRequest probes the URL and settles the destination path. A nil
// error means the request is safe to hand to a session.
func buildPlainRequest(url, dest string) (transfer.Request, error) {
	httpc := utils.NewFetchrHTTPClient(globalHTTPConfig)
	result, err := probe.New(httpc).Probe(url)
	if err != nil {
		return transfer.Request{}, err
	}
	if !result.Reachable {
		return transfer.Request{}, fmt.Errorf("URL is not reachable: %s", url)
	}
	if result.IsWebpage() {
		return transfer.Request{}, fmt.Errorf("URL points to a webpage, not a downloadable file")
	}
	if dest == "" {
		dest = result.InferFilename(url)
	}
	resume := !noResume
	if !resume {
		if _, err := os.Stat(dest); err == nil {
			dest = utils.RenewOutputPath(dest)
		}
	}
	return transfer.Request{
		URL:          url,
		OutputPath:   dest,
		Resume:       resume,
		Mode:         transfer.ModePlainFile,
		DeclaredSize: result.DeclaredSize,
	}, nil
}

func runPlainDownload(url string) int {
	req, err := buildPlainRequest(url, outputPath)
	if err != nil {
		output.PrintError(err.Error())
		return 1
	}
	httpc := utils.NewFetchrHTTPClient(globalHTTPConfig)
	session := transfer.NewSession(req, fetch.NewClient(httpc), nil)
	return runSession(session, filepath.Base(req.OutputPath), true)
}

// runSession drives one session to a terminal state and prints the summary
// line. Live rendering is optional since batch workers would interleave.
func runSession(session *transfer.Session, name string, live bool) int {
	if err := session.Start(); err != nil {
		output.PrintError(err.Error())
		return 1
	}
	trackSession(session)
	defer untrackSession(session)

	rendered := make(chan struct{})
	if live {
		go func() {
			output.Live(name, session.Samples(), nil)
			close(rendered)
		}()
	} else {
		close(rendered)
	}

	outcome := session.Wait()
	<-rendered

	switch outcome.State {
	case transfer.StateCompleted:
		output.PrintSuccess(fmt.Sprintf("%s %s downloaded (%s)", output.StyleSymbols["pass"], name, utils.FormatBytes(uint64(outcome.Bytes))))
		return 0
	case transfer.StateCancelled:
		output.PrintWarning(fmt.Sprintf("%s %s cancelled at %s, partial data kept for resume", output.StyleSymbols["warning"], name, utils.FormatBytes(uint64(outcome.Bytes))))
		return 1
	default:
		output.PrintError(fmt.Sprintf("%s %s failed: %v", output.StyleSymbols["fail"], name, outcome.Err))
		return 1
	}
}
