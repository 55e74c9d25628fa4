package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mfreader.go/pkg/env"
	"github.com/robotalks/mfreader.go/pkg/mfreader"
)

// Shell provides ishell backed interactive shell to a card reader.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *ReaderConn
}

// ReaderConn is a connected reader.
type ReaderConn struct {
	Link   string
	Reader *mfreader.Reader
	Cancel func()

	closer        io.Closer
	stopListening func()
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&CardCmd,
		&ResetCmd,
		&KeyACmd,
		&KeyBCmd,
		&ReadCmd,
		&WriteCmd,
		&DumpCmd,
		&TrailerReadCmd,
		&TrailerWriteCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// ReaderFrom gets the connected reader from ishell context.
func ReaderFrom(c *ishell.Context) *mfreader.Reader {
	return ShellFrom(c).Conn.Reader
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the link and starts a reader on it.
func (s *Shell) Connect(link string) error {
	conf := *s.Config
	conf.Link = link
	rw, err := conf.OpenLink()
	if err != nil {
		return err
	}
	conn := &ReaderConn{Link: link, Reader: mfreader.NewReader(rw), closer: rw}
	ctx, cancel := context.WithCancel(context.Background())
	conn.Cancel = cancel
	conn.stopListening = conn.Reader.AddCardListener(mfreader.CardChangedFunc(s.cardChanged))
	s.Disconnect()
	s.Conn = conn
	go func() {
		if err := conn.Reader.Run(ctx); err != nil && err != context.Canceled {
			s.Shell.Printf("link %s: %v\n", link, err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", link))
	return nil
}

// Disconnect disconnects current reader.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.stopListening()
		s.Conn.Cancel()
		s.Conn.closer.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

func (s *Shell) cardChanged(r *mfreader.Reader, present bool) {
	if !s.Interactive {
		return
	}
	if card := r.Card(); present && card != nil {
		s.Shell.Printf("\ncard detected: %s\n", FormatCard(card))
	} else {
		s.Shell.Println("\ncard removed")
	}
}

// Print prints a result, as JSON if requested.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Link != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Link)
		}
		if err := s.Connect(s.Config.Link); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Link, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf := env.Default()
	if err := conf.Load(); err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoConnect(true).Run(flag.Args()...)
}
