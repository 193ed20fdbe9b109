package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"gui-agent/internal/config"
	"gui-agent/internal/entity"
	"gui-agent/internal/usecase"
	"gui-agent/pkg/logg"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	config     *config.Config
	logger     *zap.Logger
	usecase    *usecase.Service
	shutdowner fx.Shutdowner
	in         io.Reader
	out        io.Writer
	ctx        context.Context
	cancel     context.CancelFunc
	sigChan    chan os.Signal
	running    atomic.Bool
	stopping   atomic.Bool
	subID      string
}

type Params struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Usecase    *usecase.Service
	Shutdowner fx.Shutdowner
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:    params.Usecase,
		shutdowner: params.Shutdowner,
		in:         os.Stdin,
		out:        os.Stdout,
		ctx:        ctx,
		cancel:     cancel,
		sigChan:    make(chan os.Signal, 1),
	}
}

func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	i.subID = i.usecase.Events.Subscribe(i.printEvent)

	// Ctrl+C stops the running task; with no task running it quits.
	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for range i.sigChan {
			if i.running.Load() {
				fmt.Fprintln(i.out, "\n\n⚠️  Interrupt received, stopping task...")
				i.usecase.Agent.Stop()

				continue
			}

			i.shutdown()

			return
		}
	}()

	scanner := bufio.NewScanner(i.in)

	for !i.stopping.Load() {
		fmt.Fprint(i.out, "\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}

	i.shutdown()

	return nil
}

func (i *Interface) shutdown() {
	if i.stopping.Load() {
		return
	}

	if err := i.shutdowner.Shutdown(); err != nil {
		i.logger.Error("Failed to request shutdown", zap.Error(err))
	}
}

func (i *Interface) Stop() error {
	if !i.stopping.CompareAndSwap(false, true) {
		return nil
	}

	i.logger.Info("Stopping console interface...")

	signal.Stop(i.sigChan)
	close(i.sigChan)
	i.cancel()
	i.usecase.Agent.Stop()

	if i.subID != "" {
		i.usecase.Events.Unsubscribe(i.subID)
	}

	fmt.Fprintln(i.out, "👋 Goodbye!")

	return nil
}

func (i *Interface) handleCommand(input string) error {
	switch input {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	case "history":
		i.printHistory()

		return nil
	default:
		return i.executeTask(input)
	}
}

func (i *Interface) executeTask(taskDescription string) error {
	fmt.Fprintf(i.out, "\n🤖 Starting task: %s\n", taskDescription)
	fmt.Fprintln(i.out, strings.Repeat("─", 55))

	i.running.Store(true)
	task, err := i.usecase.Agent.Execute(i.ctx, taskDescription)
	i.running.Store(false)

	fmt.Fprintln(i.out, "\n"+strings.Repeat("─", 55))

	if task == nil {
		return err
	}

	switch task.Status {
	case entity.TaskStatusCompleted:
		fmt.Fprintf(i.out, "✅ Task completed successfully!\n\n")
		fmt.Fprintf(i.out, "Result: %s\n", task.Result)
		fmt.Fprintf(i.out, "Steps taken: %d\n", len(task.Steps))
	case entity.TaskStatusNeedsUser:
		fmt.Fprintf(i.out, "🙋 The agent needs your help: %s\n", task.Result)
		fmt.Fprintf(i.out, "Steps taken: %d\n", len(task.Steps))
	default:
		fmt.Fprintf(i.out, "❌ Task failed: %s\n", task.Error)
	}

	return nil
}

// printEvent renders session events as the agent works.
func (i *Interface) printEvent(e entity.Event) {
	switch e.Type {
	case entity.EventAssistantStreaming:
		fmt.Fprint(i.out, e.Content)
	case entity.EventAssistantMessage:
		if e.Metadata["finishReason"] == "" && e.Content != "" {
			fmt.Fprintf(i.out, "\n💬 %s\n", e.Content)

			return
		}

		fmt.Fprintln(i.out)
	case entity.EventToolCall:
		if e.ToolCall != nil && e.ToolCall.Args.Action != "" {
			fmt.Fprintf(i.out, "🔧 %s\n", e.ToolCall.Args.Action)
		}
	case entity.EventToolResult:
		if e.Result == nil {
			return
		}

		if e.Result.Success {
			fmt.Fprintln(i.out, "   ✓ done")
		} else {
			fmt.Fprintf(i.out, "   ✗ %s\n", e.Result.Error)
		}
	case entity.EventEnvironmentInput:
		if url := e.Metadata["url"]; url != "" {
			fmt.Fprintf(i.out, "📸 %s\n", url)
		}
	}
}

func (i *Interface) printHistory() {
	events := i.usecase.Events.Events(entity.EventUserMessage, entity.EventToolCall)
	if len(events) == 0 {
		fmt.Fprintln(i.out, "No history yet.")

		return
	}

	for _, e := range events {
		switch e.Type {
		case entity.EventUserMessage:
			fmt.Fprintf(i.out, "%s  > %s\n", e.Timestamp.Format("15:04:05"), e.Content)
		case entity.EventToolCall:
			if e.ToolCall != nil {
				fmt.Fprintf(i.out, "%s    %s\n", e.Timestamp.Format("15:04:05"), e.ToolCall.Args.Action)
			}
		}
	}
}

func (i *Interface) printBanner() {
	mode := i.config.AgentConfig.Mode
	if mode != string(entity.ModeGame) {
		mode = i.config.AgentConfig.BrowserMode
	}

	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║                        GUI Agent                          ║
║                                                           ║
║     Screenshot-driven computer use for any GUI target     ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝`
	fmt.Fprintln(i.out, banner)
	fmt.Fprintf(i.out, "Operator: %s\n", mode)
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  help, h       - Show this help message
  history       - Show the tasks and actions of this session
  exit, quit, q - Exit the application

To start a task, simply type your request in natural language:
  Examples:
    - Open the settings and switch to dark mode
    - Find the cheapest flight from Berlin to Lisbon next Friday
    - Play the game until you reach 2048

Press Ctrl+C to stop a running task.
`
	fmt.Fprintln(i.out, help)
}
