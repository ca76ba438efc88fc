package main

import (
	"bufio"
	"io"
	"strings"
)

// Interpreter states. Commands that need a live session are warn-level
// no-ops outside stateConnected; the script itself keeps running.
type scriptState int

const (
	stateUnconfigured scriptState = iota
	stateConfigured
	stateConnected
	stateClosed
)

// ScriptInterpreter executes line-oriented fetch scripts: one command per
// line, '#' starts a trailing comment, tokens split on whitespace.
//
// Recognized verbs: host, port, user, password, private_key, options,
// connect, ascii, binary, cd, size, get, mget, quit, bye. Unrecognized verbs
// are logged and skipped. Individual command failures are reported and the
// script keeps going; only the listing circuit breaker stops a run.
type ScriptInterpreter struct {
	cfg      *Config
	registry *ProcessedRegistry

	state   scriptState
	scheme  string
	params  ConnectParams
	options string

	conn   Connection
	cache  *DirectoryCache
	engine *TransferEngine
	mode   TransferMode

	// promptPassword fills in a missing password at connect time.
	// Overridable for tests.
	promptPassword func() []byte
}

func NewScriptInterpreter(cfg *Config, registry *ProcessedRegistry) *ScriptInterpreter {
	scheme := cfg.Files.Protocol
	if scheme == "" {
		scheme = "ftp"
	}
	return &ScriptInterpreter{
		cfg:            cfg,
		registry:       registry,
		scheme:         scheme,
		params:         ConnectParams{Registered: cfg.Options.Registered},
		mode:           ModeASCII,
		promptPassword: askPassword,
	}
}

// Run executes a script from r line by line, closing any open connection
// when the input ends.
func (si *ScriptInterpreter) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debugw("script line", "line", scanner.Text())
		if err := si.Execute(scanner.Text()); err != nil {
			si.close()
			return err
		}
	}
	si.close()
	return scanner.Err()
}

// Execute interprets a single script line.
func (si *ScriptInterpreter) Execute(line string) error {
	line, _, _ = strings.Cut(line, "#")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "host":
		host := arg(args, 0)
		if scheme, rest, ok := strings.Cut(host, "://"); ok {
			si.scheme = scheme
			host = rest
		}
		si.params.Host = host
		if si.state == stateUnconfigured {
			si.state = stateConfigured
		}
	case "port":
		si.params.Port = arg(args, 0)
	case "user":
		si.params.User = arg(args, 0)
	case "password":
		si.params.Password = []byte(arg(args, 0))
	case "private_key":
		si.params.PrivateKey = arg(args, 0)
	case "options":
		si.options = strings.Join(args, " ")
	case "connect":
		si.connect()
	case "ascii":
		si.setMode(ModeASCII)
	case "binary":
		si.setMode(ModeBinary)
	case "cd":
		if !si.connected(cmd) {
			return nil
		}
		dir := arg(args, 0)
		if err := si.conn.ChangeDir(dir); err != nil {
			logger.Warnw("failed to change directory", "dir", dir, "err", err)
			return nil
		}
		// Whole-cache invalidation on every cd; see DirectoryCache.ResetAll.
		si.cache.ResetAll()
	case "size":
		if !si.connected(cmd) {
			return nil
		}
		name := arg(args, 0)
		size, err := si.conn.Size(name)
		if err != nil {
			logger.Warnw("remote size failed", "file", name, "err", err)
			return nil
		}
		logger.Infow("remote size", "file", name, "size", size)
	case "get":
		if !si.connected(cmd) {
			return nil
		}
		return si.engine.Get(arg(args, 0), arg(args, 1))
	case "mget":
		if !si.connected(cmd) {
			return nil
		}
		recursive := arg(args, 1) == "-r"
		return si.engine.Mget(arg(args, 0), recursive, "")
	case "quit", "bye":
		si.close()
	default:
		logger.Debugw("ignoring unrecognized command", "cmd", cmd)
	}
	return nil
}

// connect opens a session with whatever has been configured so far. A failed
// or impossible attempt is reported and later connection-dependent commands
// become no-ops. Connecting while connected replaces the old session.
func (si *ScriptInterpreter) connect() {
	factory := getConnectorFactory(si.scheme)
	if factory == nil {
		logger.Warnw("no connector for scheme", "scheme", si.scheme)
		return
	}
	if si.params.Host == "" || si.params.User == "" {
		logger.Warnw("cannot connect: host or user not set", "scheme", si.scheme)
		return
	}
	if len(si.params.Password) == 0 && si.params.PrivateKey == "" {
		si.params.Password = si.promptPassword()
	}

	if si.conn != nil {
		logger.Infow("reconnecting", "host", si.params.Host)
		si.conn.Close()
		si.conn = nil
		si.state = stateConfigured
	}

	conn, err := factory.Connect(si.params)
	if err != nil {
		logger.Warnw("connection failed", "scheme", si.scheme,
			"host", si.params.Host, "err", err)
		return
	}
	logger.Infow("connected", "scheme", si.scheme, "host", si.params.Host,
		"user", si.params.User)

	si.conn = conn
	si.cache = NewDirectoryCache(conn)
	si.engine = NewTransferEngine(conn, si.cache, si.registry)
	si.engine.SetMode(si.mode)
	si.engine.SetReRecord(si.cfg.Files.NewDatFile)
	si.state = stateConnected
}

func (si *ScriptInterpreter) setMode(mode TransferMode) {
	si.mode = mode
	if si.engine != nil {
		si.engine.SetMode(mode)
	}
}

func (si *ScriptInterpreter) connected(cmd string) bool {
	if si.state != stateConnected || si.conn == nil {
		logger.Warnw("not connected, ignoring command", "cmd", cmd)
		return false
	}
	return true
}

func (si *ScriptInterpreter) close() {
	if si.conn != nil {
		if err := si.conn.Close(); err != nil {
			logger.Warnw("close failed", "err", err)
		}
		si.conn = nil
	}
	secureWipe(si.params.Password)
	si.state = stateClosed
}

// arg returns args[i] or "" when the script line is short an argument.
func arg(args []string, i int) string {
	if i >= len(args) {
		return ""
	}
	return args[i]
}
