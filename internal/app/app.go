package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"worktrack/internal/collector"
	"worktrack/internal/collector/x11"
	"worktrack/internal/config"
	"worktrack/internal/controller"
	"worktrack/internal/event"
	"worktrack/internal/ipc"
	"worktrack/internal/session"
	"worktrack/internal/storage"

	sqlitestore "worktrack/internal/storage/sqlite"
)

type App struct {
	cfg     *config.Config
	storage storage.Storage // nil when archiving is disabled
	x11Src  *x11.Source
	ctrl    *controller.Controller
	hub     *hub

	socketPath string
	listener   *net.UnixListener

	eventChan  chan event.Event
	updateChan chan event.Notification

	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:        cfg,
		hub:        newHub(),
		eventChan:  make(chan event.Event, 100),
		updateChan: make(chan event.Notification, 50),
		socketPath: cfg.SocketPath,
		ctx:        ctx,
		cancel:     cancel,
		ready:      make(chan struct{}),
	}

	if cfg.ArchiveEnabled {
		a.storage = sqlitestore.NewSQLiteStore(cfg.DatabasePath)
		if err := a.storage.Init(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	var src collector.Source = collector.None
	if cfg.Collector == "x11" {
		var err error
		a.x11Src, err = x11.NewSource()
		if err != nil {
			log.Printf("Warning: Failed to initialize X11 collector: %v. Activity sampling disabled.", err)
			a.x11Src = nil
		} else {
			src = a.x11Src
		}
	}

	var eventChan chan<- event.Event
	if a.storage != nil {
		eventChan = a.eventChan
	}
	a.ctrl = controller.New(controller.Config{
		TickInterval:        cfg.TickInterval(),
		IdleCheckInterval:   cfg.IdleCheckInterval(),
		SampleInterval:      cfg.SampleInterval(),
		InactivityThreshold: cfg.InactivityThreshold(),
		ResumeKey:           cfg.ResumeKey,
		Policy:              session.Policy{PayPartialOfficeBreak: cfg.PayPartialOfficeBreak},
	}, src, nil, nil, a.updateChan, eventChan)
	a.ctrl.ApplyRules(cfg.Categories, cfg.Domains)

	return a, nil
}

// applyConfig takes the hot-reloadable parts of a changed config file.
// Sampling intervals and the socket path need a restart.
func (a *App) applyConfig(next *config.Config) {
	total := a.ctrl.ApplyRules(next.Categories, next.Domains)
	log.Printf("Applied %d category and %d domain rules from config (%d application rules active)",
		len(next.Categories), len(next.Domains), total)

	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	if err := a.ctrl.SetInactivityThreshold(ctx, next.InactivityThreshold()); err != nil {
		log.Printf("Warning: inactivity threshold not updated: %v", err)
	}
}

// Ready is closed once the socket accepts commands.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Shutdown asks Run to return.
func (a *App) Shutdown() { a.cancel() }

// setupSocket checks for existing socket and creates the listener
func (a *App) setupSocket() error {
	if _, err := os.Stat(a.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", a.socketPath, 1*time.Second)
		if err == nil {
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", a.socketPath)
		}
		log.Printf("Stale socket file found at %s, removing.", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket file %s: %w", a.socketPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking socket file %s: %w", a.socketPath, err)
	}

	addr, err := net.ResolveUnixAddr("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("failed to resolve unix addr %s: %w", a.socketPath, err)
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", a.socketPath, err)
	}
	// The socket accepts clock and input commands, so keep it private.
	if err := os.Chmod(a.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set permissions on socket %s: %w", a.socketPath, err)
	}

	a.listener = listener
	log.Printf("Listening for commands on %s", a.socketPath)
	return nil
}

// listenForCommands accepts connections and handles them
func (a *App) listenForCommands() {
	defer log.Println("Socket command listener stopped.")

	for {
		conn, err := a.listener.AcceptUnix()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Failed to accept connection: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		a.wg.Go(func() { a.handleConnection(conn) })
	}
}

// handleConnection reads one command and answers it. subscribe keeps the
// connection open and streams notifications instead.
func (a *App) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd ipc.Command
	if err := decoder.Decode(&cmd); err != nil {
		if err != io.EOF {
			log.Printf("Failed to decode command: %v", err)
		}
		_ = encoder.Encode(ipc.Response{Success: false, Message: "Failed to decode command: " + err.Error()})
		return
	}
	conn.SetReadDeadline(time.Time{})

	if cmd.Name == ipc.CmdSubscribe {
		a.serveSubscription(conn, encoder)
		return
	}

	if cmd.Name != ipc.CmdInput && cmd.Name != ipc.CmdGetStatus {
		log.Printf("Received command: %s", cmd.Name)
	}

	response := a.processCommand(cmd)

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := encoder.Encode(response); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

func (a *App) serveSubscription(conn *net.UnixConn, encoder *json.Encoder) {
	id, ch := a.hub.subscribe()
	defer a.hub.unsubscribe(id)
	log.Printf("Subscriber %d connected", id)
	defer log.Printf("Subscriber %d disconnected", id)

	if err := encoder.Encode(ipc.Response{Success: true, Message: "subscribed"}); err != nil {
		return
	}

	// A read only returns when the client goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		io.Copy(io.Discard, conn)
	}()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-gone:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := encoder.Encode(n); err != nil {
				return
			}
		}
	}
}

func (a *App) Run() error {
	defer a.cleanup()

	log.Println("Starting WorkTrack Application (Daemon Mode)...")
	if a.x11Src == nil {
		log.Println("X11 activity sampling: DISABLED")
	} else {
		log.Println("X11 activity sampling: ENABLED")
	}
	if a.storage == nil {
		log.Println("Archive: DISABLED")
	}

	if err := a.setupSocket(); err != nil {
		return fmt.Errorf("failed to set up socket: %w", err)
	}

	a.handleSignals()

	a.wg.Go(a.processEvents)
	a.wg.Go(a.mainLoop)
	a.ctrl.Start()
	a.wg.Go(a.listenForCommands)

	a.cfg.Watch(a.applyConfig)

	a.saveEvent(a.ctx, event.Event{Timestamp: time.Now(), Type: event.EventTypeAppStart})

	log.Println("WorkTrack daemon running. Send commands via worktrack-cli or socket.")
	close(a.ready)
	<-a.ctx.Done()

	log.Println("Shutdown signal received, waiting for components...")

	// Close the session first so the open activity reaches the archive.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if ledger, err := a.ctrl.ClockOut(closeCtx); err == nil {
		log.Printf("Clocked out on shutdown (payable %s)", session.FormatSeconds(ledger.PayableTime))
	}
	closeCancel()
	a.ctrl.Stop()
	close(a.eventChan)

	if err := a.listener.Close(); err != nil {
		log.Printf("Error closing socket listener: %v", err)
	}
	a.hub.closeAll()

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()
	select {
	case <-waitChan:
		log.Println("All application goroutines finished.")
	case <-time.After(5 * time.Second):
		log.Println("Warning: Timeout waiting for application goroutines to stop.")
	}

	log.Println("WorkTrack Application finished.")
	return nil
}

// mainLoop relays controller notifications to subscribers.
func (a *App) mainLoop() {
	defer log.Println("Main application loop stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return
		case n := <-a.updateChan:
			switch n.Name {
			case event.NotifyActivityStatus:
				log.Printf("Activity status: active=%t", *n.Active)
			case event.NotifyActivityChanged:
				if n.Activity != nil {
					log.Printf("Activity Changed: App='%s', Title='%s', Category=%s",
						n.Activity.Name, Truncate(n.Activity.Title, 80), n.Activity.Category)
				}
			case event.NotifyTimelineAppended:
				log.Printf("Timeline: %s", n.Timeline.Description)
			}
			a.hub.broadcast(n)
		}
	}
}

// processEvents archives what the controller emits. It runs until the
// channel is closed after the controller stops, so the clock-out performed
// on shutdown still reaches the archive.
func (a *App) processEvents() {
	defer log.Println("Event processor stopped.")

	for e := range a.eventChan {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		a.saveEvent(ctx, e)
		cancel()
	}
}

func (a *App) saveEvent(ctx context.Context, e event.Event) {
	if a.storage == nil {
		return
	}
	if _, err := a.storage.SaveEvent(ctx, e); err != nil {
		log.Printf("Warning: Failed to save event (Type: %s): %v", e.Type, err)
	}
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v. Initiating shutdown...", sig)
			a.cancel()
		case <-a.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

func (a *App) cleanup() {
	log.Println("Running cleanup...")
	a.cancel()

	var errs error
	if a.storage != nil {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 2*time.Second)
		a.saveEvent(saveCtx, event.Event{Timestamp: time.Now(), Type: event.EventTypeAppStop})
		saveCancel()
		errs = multierr.Append(errs, a.storage.Close())
	}
	if a.x11Src != nil {
		errs = multierr.Append(errs, a.x11Src.Close())
	}
	if a.listener != nil {
		if _, err := os.Stat(a.socketPath); err == nil {
			log.Printf("Removing socket file: %s", a.socketPath)
			if err := os.Remove(a.socketPath); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("remove socket file %s: %w", a.socketPath, err))
			}
		}
	}
	for _, err := range multierr.Errors(errs) {
		log.Printf("Warning: cleanup: %v", err)
	}
	log.Println("Cleanup finished.")
}

func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
