package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/gate"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

// maxRedirects bounds the redirects followed by one `open`.
const maxRedirects = 5

var errQuit = errors.New("quit")

// portal is the line client of one user: it holds their session and shows the page of every path they open.
type portal struct {
	mgr          *session.Manager
	in           *bufio.Scanner
	readPassword func() (string, error)
	timeout      time.Duration

	mu       sync.Mutex // guards out: notices are printed from the session goroutine too
	out      io.Writer
	location string
}

func newPortal(mgr *session.Manager, in io.Reader, out io.Writer) *portal {
	p := &portal{
		mgr:      mgr,
		in:       bufio.NewScanner(in),
		out:      out,
		timeout:  30 * time.Second,
		location: "/",
	}
	p.readPassword = p.readLine
	return p
}

func (p *portal) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Notify prints the outcome of the session operations.
func (p *portal) Notify(n session.Notice) {
	p.printf("[%s] %s\n", n.Level, n.Message)
}

func (p *portal) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.in.Text(), nil
}

func (p *portal) prompt(label string) (string, error) {
	p.printf("%s: ", label)
	return p.readPassword()
}

// run reads commands until `quit` or the end of the input.
func (p *portal) run(ctx context.Context) error {
	p.printf("Type `help` for the list of commands.\n")
	p.open(ctx, "/")
	for {
		p.printf("%s> ", p.location)
		line, err := p.readLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.exec(ctx, line); err != nil {
			if err == errQuit {
				return nil
			}
			p.printf("error: %v\n", err)
		}
	}
}

func (p *portal) exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch cmd := strings.ToLower(args[0]); cmd {
	case "help":
		p.help()
	case "quit", "exit":
		return errQuit
	case "whoami":
		p.whoami()
	case "open":
		if len(args) != 2 {
			return errors.New("usage: open PATH")
		}
		p.open(ctx, args[1])
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login EMAIL")
		}
		pwd, err := p.prompt("Password")
		if err != nil {
			return err
		}
		// failures are reported as notices
		if _, err := p.mgr.SignIn(ctx, args[1], pwd); err == nil {
			p.open(ctx, "/")
		}
	case "register":
		if len(args) < 4 {
			return errors.New("usage: register EMAIL ROLE NAME")
		}
		pwd, err := p.prompt("Password")
		if err != nil {
			return err
		}
		np := user.NewProfile{Role: user.Role(args[2]), DisplayName: strings.Join(args[3:], " ")}
		if _, err := p.mgr.SignUp(ctx, args[1], pwd, np); err == nil {
			p.open(ctx, "/")
		}
	case "logout":
		if err := p.mgr.SignOut(ctx); err == nil {
			p.open(ctx, gate.LoginPath)
		}
	case "forgot":
		if len(args) != 2 {
			return errors.New("usage: forgot EMAIL")
		}
		_ = p.mgr.ResetPassword(ctx, args[1])
	default:
		return errors.Errorf("unknown command %q, type `help`", cmd)
	}
	return nil
}

// open resolves path through the gate and follows its redirects.
func (p *portal) open(ctx context.Context, path string) {
	if err := p.mgr.WaitReady(ctx); err != nil {
		p.printf("loading...\n")
		return
	}
	for i := 0; i <= maxRedirects; i++ {
		d := gate.Navigate(p.mgr.Session(), path)
		switch d.Outcome {
		case gate.Redirect:
			p.printf("-> %s\n", d.Location)
			path = d.Location
			continue
		case gate.Render:
			p.location = path
			p.printf("[%s]\n", d.Page)
		default:
			p.printf("loading...\n")
		}
		return
	}
	p.printf("too many redirects\n")
}

func (p *portal) whoami() {
	s := p.mgr.Session()
	if s.CurrentUser == nil {
		p.printf("anonymous\n")
		return
	}
	u := s.CurrentUser
	p.printf("%s <%s> %s (uid %s)\n", u.DisplayName, u.Email, u.Role(), u.UID)
}

func (p *portal) help() {
	p.printf(`Commands:
  login EMAIL               sign in; the password is prompted
  register EMAIL ROLE NAME  create an account (ROLE: admin, faculty or student)
  logout                    sign out
  forgot EMAIL              send a password reset email
  open PATH                 go to a page, e.g. open /student/grades
  whoami                    show the signed in user
  help                      show this help
  quit                      leave
`)
}
