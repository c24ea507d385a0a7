// Command phonebt is the interactive HFP client shell: a REPL over
// stdin driving one Protocol Engine, plus an "agent" mode that
// dispatches tool_name/JSON-args lines through the Controller Adapter,
// standing in for the out-of-scope conversational AI driver.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	dbus "github.com/godbus/dbus/v5"

	"github.com/phonebt/phonebt/internal/audio"
	"github.com/phonebt/phonebt/internal/audio/exec"
	"github.com/phonebt/phonebt/internal/bus"
	"github.com/phonebt/phonebt/internal/config"
	"github.com/phonebt/phonebt/internal/controller"
	"github.com/phonebt/phonebt/internal/engine"
	"github.com/phonebt/phonebt/internal/state"
	"github.com/phonebt/phonebt/internal/transport/bluez"
	"github.com/phonebt/phonebt/internal/voice/queue"
)

func main() {
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Duration("connect-timeout", 15*time.Second, "SLC connect timeout")
	flag.Int("bus-depth", 64, "Event bus per-subscriber queue depth")
	flag.String("adapter", "/org/bluez/hci0", "BlueZ adapter object path")
	flag.String("device", "", "Paired phone (AA:BB:CC:DD:EE:FF address or BlueZ Device1 object path)")
	flag.String("audio-backend", "pulseaudio", "Audio backend (pulseaudio|none)")
	flag.Parse()

	cfg, err := config.Load(config.WithDefaults(), config.WithEnv(), config.WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	b := bus.New(cfg.BusSubscriberDepth)
	m := state.NewMachine()

	var audioRouter audio.Router
	if cfg.AudioBackend == "pulseaudio" {
		audioRouter = exec.New()
	}
	voicePipeline := queue.New(logger.With("component", "voice"), 16)
	defer voicePipeline.Close()

	shell := &shell{
		log:    logger,
		bus:    b,
		state:  m,
		cfg:    cfg,
		reader: bufio.NewScanner(os.Stdin),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DeviceAddress != "" {
		if err := shell.connectDevice(ctx, cfg.DeviceAddress); err != nil {
			logger.Error("failed to connect paired device", "error", err)
		}
	}
	if shell.adapter == nil {
		shell.adapter = controller.New(nil, b, audioRouter, voicePipeline, m.Snapshot)
	} else {
		shell.adapter.Audio = audioRouter
		shell.adapter.Voice = voicePipeline
	}

	go func() {
		<-ctx.Done()
		if shell.engine != nil {
			_ = shell.engine.Disconnect()
		}
		os.Exit(0)
	}()

	shell.run(ctx)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// shell is the REPL: scan|paired|connect <idx>|disconnect|dial <n>|
// answer|hangup|dtmf <d>|status|phone|audio|agent|help|quit.
type shell struct {
	log    *slog.Logger
	bus    *bus.Bus
	state  *state.Machine
	cfg    *config.Config
	reader *bufio.Scanner

	transport *bluez.Transport
	engine    *engine.Engine
	adapter   *controller.Adapter

	paired []pairedDevice
}

type pairedDevice struct {
	path    dbus.ObjectPath
	address string
	name    string
}

// devicePath resolves a --device value to a BlueZ Device1 object path.
// A plain AA:BB:CC:DD:EE:FF address maps to the adapter's conventional
// dev_AA_BB_CC_DD_EE_FF child path; anything starting with "/" is
// already a path.
func (s *shell) devicePath(device string) string {
	if strings.HasPrefix(device, "/") {
		return device
	}
	return s.cfg.BluetoothAdapter + "/dev_" + strings.ReplaceAll(device, ":", "_")
}

func (s *shell) connectDevice(ctx context.Context, device string) error {
	s.transport = bluez.New(s.devicePath(device))
	s.engine = engine.New(s.transport, s.bus, s.state, s.log.With("component", "engine"), s.cfg.ConnectTimeout)
	go func() {
		if err := s.engine.Run(context.Background()); err != nil {
			s.log.Error("engine loop exited", "error", err)
		}
	}()
	if s.adapter == nil {
		s.adapter = controller.New(s.engine, s.bus, nil, nil, s.state.Snapshot)
	} else {
		s.adapter.Engine = s.engine
	}
	return s.engine.Connect(ctx, s.cfg.ConnectTimeout)
}

func (s *shell) run(ctx context.Context) {
	fmt.Println("phonebt ready. Type 'help' for commands.")
	for {
		fmt.Print("> ")
		if !s.reader.Scan() {
			return
		}
		line := strings.TrimSpace(s.reader.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, rest := fields[0], fields[1:]

		switch cmd {
		case "help":
			printHelp()
		case "scan", "paired":
			s.cmdPaired(ctx)
		case "connect":
			s.cmdConnect(ctx, rest)
		case "disconnect":
			s.cmdDisconnect()
		case "dial":
			s.cmdTool(ctx, "dial_number", rest, "number")
		case "answer":
			s.cmdTool(ctx, "accept_call", nil, "")
		case "hangup":
			s.cmdTool(ctx, "end_call", nil, "")
		case "dtmf":
			s.cmdTool(ctx, "send_dtmf", rest, "digit")
		case "status":
			s.printResult(s.adapter.Execute(ctx, "get_call_status", nil))
		case "phone":
			s.printResult(s.adapter.Execute(ctx, "get_phone_status", nil))
		case "audio":
			s.cmdAudioDevices(ctx)
		case "agent":
			s.cmdAgent(ctx)
		case "quit", "exit":
			if s.engine != nil {
				_ = s.engine.Disconnect()
			}
			return
		default:
			fmt.Printf("unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  scan|paired          list paired Bluetooth devices
  connect <idx>        connect to a device from the last scan/paired listing
  disconnect           tear down the current SLC
  dial <number>        dial a number
  answer               accept an incoming call
  hangup               end the current call
  dtmf <digit>         send one DTMF digit
  status               print call status
  phone                print phone status (signal/battery/operator)
  audio                list audio devices known to the router
  agent                enter tool_name {json args} dispatch mode
  help                 this text
  quit                 exit`)
}

func (s *shell) cmdPaired(ctx context.Context) {
	devices, err := pairedDevices(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	s.paired = devices
	for i, d := range devices {
		fmt.Printf("[%d] %s  %s  %s\n", i, d.address, d.name, d.path)
	}
}

func (s *shell) cmdConnect(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: connect <idx>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(s.paired) {
		fmt.Println("invalid index; run 'paired' first")
		return
	}
	if err := s.connectDevice(ctx, string(s.paired[idx].path)); err != nil {
		fmt.Println("connect failed:", err)
		return
	}
	fmt.Println("connected")
}

func (s *shell) cmdDisconnect() {
	if s.engine == nil {
		fmt.Println("not connected")
		return
	}
	if err := s.engine.Disconnect(); err != nil {
		fmt.Println("error:", err)
	}
}

func (s *shell) cmdAudioDevices(ctx context.Context) {
	if s.adapter == nil || s.adapter.Audio == nil {
		fmt.Println("no audio router configured")
		return
	}
	devices, err := s.adapter.Audio.ListBluetoothDevices(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, d := range devices {
		fmt.Printf("%s  bluetooth=%v  %s\n", d.ID, d.IsBluetooth, d.Description)
	}
}

func (s *shell) cmdTool(ctx context.Context, tool string, args []string, argName string) {
	if s.adapter == nil {
		fmt.Println("not connected")
		return
	}
	toolArgs := map[string]any{}
	if argName != "" {
		if len(args) != 1 {
			fmt.Printf("usage: %s <%s>\n", tool, argName)
			return
		}
		toolArgs[argName] = args[0]
	}
	s.printResult(s.adapter.Execute(ctx, tool, toolArgs))
}

func (s *shell) cmdAgent(ctx context.Context) {
	fmt.Println("agent mode: 'tool_name {json args}', blank line to exit")
	for {
		fmt.Print("agent> ")
		if !s.reader.Scan() {
			return
		}
		line := strings.TrimSpace(s.reader.Text())
		if line == "" {
			return
		}
		tool, jsonArgs, _ := strings.Cut(line, " ")
		args := map[string]any{}
		if jsonArgs != "" {
			if err := json.Unmarshal([]byte(jsonArgs), &args); err != nil {
				fmt.Println("invalid JSON args:", err)
				continue
			}
		}
		s.printResult(s.adapter.Execute(ctx, tool, args))
	}
}

func (s *shell) printResult(r controller.Result) {
	fmt.Println(string(r.MarshalCanonical()))
}

func pairedDevices(ctx context.Context) ([]pairedDevice, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	om := conn.Object("org.bluez", dbus.ObjectPath("/"))
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := om.CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managed); err != nil {
		return nil, err
	}

	var devices []pairedDevice
	for path, ifaces := range managed {
		props, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		paired, _ := props["Paired"].Value().(bool)
		if !paired {
			continue
		}
		address, _ := props["Address"].Value().(string)
		name, _ := props["Name"].Value().(string)
		if name == "" {
			name, _ = props["Alias"].Value().(string)
		}
		devices = append(devices, pairedDevice{path: path, address: address, name: name})
	}
	return devices, nil
}
