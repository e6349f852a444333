/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	_ "net/http/pprof" // http profile handlers
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/aether-im/aether/hook"
	"github.com/aether-im/aether/log"
	"github.com/aether-im/aether/muc"
	"github.com/aether-im/aether/presencehub"
	"github.com/aether-im/aether/processor"
	"github.com/aether-im/aether/stream"
	"github.com/aether-im/aether/version"
	"github.com/aether-im/aether/xep0030"
	"github.com/aether-im/aether/xmpp/jid"
	"github.com/pkg/errors"
)

const defaultShutDownWaitTime = time.Duration(5) * time.Second

var logoStr = []string{
	`                 __  .__                  `,
	`  _____    _____/  |_|  |__   ___________ `,
	`  \__  \ _/ __ \   __\  |  \_/ __ \_  __ \`,
	`   / __ \\  ___/|  | |   Y  \  ___/|  | \/`,
	`  (____  /\___  >__| |___|  /\___  >__|   `,
	`       \/     \/          \/     \/       `,
}

const usageStr = `
Usage: aether [options]

Client Options:
    -c, --config <file>    Configuration file path
Common Options:
    -h, --help             Show this message
    -v, --version          Show version
`

// Application encapsulates an aether client application.
type Application struct {
	output           io.Writer
	args             []string
	cfg              *Config
	hooks            *hook.Hooks
	stm              *stream.Client
	proc             *processor.Processor
	presenceHub      *presencehub.PresenceHub
	disco            *xep0030.DiscoInfo
	rooms            []*muc.Room
	debugSrv         *http.Server
	waitStopCh       chan os.Signal
	shutDownWaitSecs time.Duration
}

// New returns a runnable application given an output and a command line arguments array.
func New(output io.Writer, args []string) *Application {
	return &Application{
		output:           output,
		args:             args,
		waitStopCh:       make(chan os.Signal, 1),
		shutDownWaitSecs: defaultShutDownWaitTime,
	}
}

// Run runs aether application until either a stop signal is received or an error occurs.
func (a *Application) Run() error {
	if len(a.args) == 0 {
		return errors.New("empty command-line arguments")
	}
	var configFile string
	var showVersion, showUsage bool

	fs := flag.NewFlagSet("aether", flag.ExitOnError)
	fs.SetOutput(a.output)

	fs.BoolVar(&showUsage, "help", false, "Show this message")
	fs.BoolVar(&showUsage, "h", false, "Show this message")
	fs.BoolVar(&showVersion, "version", false, "Print version information.")
	fs.BoolVar(&showVersion, "v", false, "Print version information.")
	fs.StringVar(&configFile, "config", "/etc/aether/aether.yml", "Configuration file path.")
	fs.StringVar(&configFile, "c", "/etc/aether/aether.yml", "Configuration file path.")
	fs.Usage = func() {
		for i := range logoStr {
			_, _ = fmt.Fprintf(a.output, "%s\n", logoStr[i])
		}
		_, _ = fmt.Fprintf(a.output, "%s\n", usageStr)
	}
	_ = fs.Parse(a.args[1:])

	// print usage
	if showUsage {
		fs.Usage()
		return nil
	}
	// print version
	if showVersion {
		_, _ = fmt.Fprintf(a.output, "aether version: %v\n", version.ApplicationVersion)
		return nil
	}
	// load configuration
	var cfg Config
	if err := cfg.FromFile(configFile); err != nil {
		return err
	}
	a.cfg = &cfg

	// create PID file
	if err := a.createPIDFile(cfg.PIDFile); err != nil {
		return err
	}
	// initialize logger
	log.Initialize(&cfg.Logger)

	// show aether's fancy logo
	a.printLogo()

	// initialize the stream and its surrounding components
	if err := a.initClient(); err != nil {
		return err
	}
	if err := a.stm.Open(context.Background()); err != nil {
		return err
	}

	// initialize debug server...
	if cfg.Debug.Port > 0 {
		if err := a.initDebugServer(cfg.Debug.Port); err != nil {
			return err
		}
	}

	// ...wait for stop signal to shutdown
	sig := a.waitForStopSignal()
	log.Infof("received %s signal... shutting down...", sig.String())

	return a.gracefullyShutdown()
}

func (a *Application) initClient() error {
	a.hooks = hook.NewHooks()
	a.stm = stream.New(&a.cfg.Stream, a.hooks)
	a.proc = processor.New(a.stm)
	a.presenceHub = presencehub.New(a.hooks)
	a.disco = xep0030.New(a.proc, a.hooks)

	for _, roomCfg := range a.cfg.Rooms {
		roomJID, err := jid.NewWithString(roomCfg.JID, false)
		if err != nil {
			return errors.Wrapf(err, "invalid room jid: %s", roomCfg.JID)
		}
		room := muc.New(roomJID, roomCfg.Config, a.proc, a.hooks, a.disco, a.presenceHub)
		a.rooms = append(a.rooms, room)
	}
	a.hooks.AddHook(hook.StreamOnline, a.onStreamOnline, hook.DefaultPriority)
	a.hooks.AddHook(hook.StreamAborted, a.onStreamAborted, hook.LowestPriority)
	return nil
}

// onStreamOnline announces the configured presence and joins every
// configured room once the stream negotiation completes.
func (a *Application) onStreamOnline(_ *hook.ExecutionContext) error {
	presence := &a.cfg.Presence
	a.presenceHub.SetPresence(presence.showState(), presence.Status, presence.Priority)
	a.proc.SendStanzaOut(a.presenceHub.BuildPresence(&jid.JID{}))

	for _, room := range a.rooms {
		if err := room.Join(); err != nil {
			log.Warnf("could not join room %s: %v", room.RoomJID(), err)
		}
	}
	return nil
}

func (a *Application) onStreamAborted(execCtx *hook.ExecutionContext) error {
	inf := execCtx.Info.(*hook.StreamInfo)
	log.Errorf("stream aborted: %v", inf.Err)
	return nil
}

func (a *Application) createPIDFile(pidFile string) error {
	if len(pidFile) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(pidFile), os.ModePerm); err != nil {
		return err
	}
	file, err := os.Create(pidFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	currentPid := os.Getpid()
	if _, err := file.WriteString(strconv.FormatInt(int64(currentPid), 10)); err != nil {
		return err
	}
	return nil
}

func (a *Application) printLogo() {
	for i := range logoStr {
		log.Infof("%s", logoStr[i])
	}
	log.Infof("")
	log.Infof("aether %v\n", version.ApplicationVersion)
}

func (a *Application) initDebugServer(port int) error {
	a.debugSrv = &http.Server{}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	go func() { _ = a.debugSrv.Serve(ln) }()
	log.Infof("debug server listening at %d...", port)
	return nil
}

func (a *Application) waitForStopSignal() os.Signal {
	signal.Notify(a.waitStopCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return <-a.waitStopCh
}

func (a *Application) gracefullyShutdown() error {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(a.shutDownWaitSecs))
	defer cancel()

	select {
	case <-a.shutdown(ctx):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Application) shutdown(ctx context.Context) <-chan bool {
	c := make(chan bool, 1)
	go func() {
		if a.debugSrv != nil {
			_ = a.debugSrv.Shutdown(ctx)
		}
		for _, room := range a.rooms {
			if room.State() == muc.OpenState {
				_ = room.Leave("")
			}
		}
		if a.stm != nil {
			a.stm.Close()
		}
		log.Shutdown()
		c <- true
	}()
	return c
}
