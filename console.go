// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/classvote/student"
	"github.com/danielhkuo/classvote/teacher"
)

// errQuit ends the process after a QUIT command
var errQuit = errors.New("quit requested")

// parseCommand splits a console line into an upper-cased command and the
// rest of the line
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), strings.TrimSpace(arg)
}

// readLines feeds lines from in until EOF. Reading happens on its own
// goroutine so a blocked stdin never holds up shutdown.
func readLines(ctx context.Context, in io.Reader, handle func(cmd, arg string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			return err
		case line := <-lines:
			cmd, arg := parseCommand(line)
			if cmd == "" {
				continue
			}
			if err := handle(cmd, arg); err != nil {
				return err
			}
		}
	}
}

// printer serializes console output between the command loop and reports
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) list(labels []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(labels) == 0 {
		fmt.Fprintln(p.out, "(no candidates)")
		return
	}
	for i, label := range labels {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, label)
	}
}

type teacherConsole struct {
	printer
	srv *teacher.Server
}

func newTeacherConsole(out io.Writer) *teacherConsole {
	return &teacherConsole{printer: printer{out: out}}
}

// VoteRecorded shows each vote outcome as a status line
func (c *teacherConsole) VoteRecorded(e teacher.VoteEvent) {
	teacher.LogObserver{}.VoteRecorded(e)
	c.printf("* %s\n", e.Message())
}

func (c *teacherConsole) Run(ctx context.Context, in io.Reader) error {
	c.printf("Commands: ADD <label>, LIST, RESULTS, SESSIONS, QUIT\n")
	return readLines(ctx, in, func(cmd, arg string) error {
		switch cmd {
		case "ADD":
			if err := c.srv.AddCandidate(arg); err != nil {
				c.printf("Cannot add %q: %v\n", arg, err)
				return nil
			}
			c.printf("Added %q (%d students)\n", strings.TrimSpace(arg), c.srv.SessionCount())
		case "LIST":
			c.list(c.srv.Candidates())
		case "RESULTS":
			text, delivered, err := c.srv.PublishResults(ctx)
			if err != nil {
				c.printf("Cannot read results: %v\n", err)
				return nil
			}
			c.printf("%sSent to %d students\n", text, delivered)
		case "SESSIONS":
			sessions := c.srv.Sessions()
			c.printf("%d connected\n", len(sessions))
			for _, s := range sessions {
				c.printf("  %s %s connected %s\n", s.ID, s.Remote, humanize.Time(s.ConnectedAt))
			}
		case "QUIT":
			return errQuit
		default:
			c.printf("Unknown command %q\n", cmd)
		}
		return nil
	})
}

// studentConsole is the Display for a student session and its command loop
type studentConsole struct {
	printer
	sess *student.Session
}

func newStudentConsole(out io.Writer) *studentConsole {
	return &studentConsole{printer: printer{out: out}}
}

func (c *studentConsole) ShowCandidates(labels []string) {
	c.printf("Candidates:\n")
	c.list(labels)
}

func (c *studentConsole) ShowResults(text string) {
	c.printf("Results:\n%s", text)
}

func (c *studentConsole) ShowStatus(msg string) {
	c.printf("* %s\n", msg)
}

func (c *studentConsole) Run(ctx context.Context, in io.Reader) error {
	c.printf("Commands: LIST, VOTE <number> <name>, RESULTS, STATUS, QUIT\n")
	return readLines(ctx, in, func(cmd, arg string) error {
		switch cmd {
		case "LIST":
			c.list(c.sess.Candidates())
		case "VOTE":
			c.vote(ctx, arg)
		case "RESULTS":
			if text := c.sess.Results(); text != "" {
				c.ShowResults(text)
			} else {
				c.printf("No results yet\n")
			}
		case "STATUS":
			c.printf("%s\n", c.sess.State())
		case "QUIT":
			return errQuit
		default:
			c.printf("Unknown command %q\n", cmd)
		}
		return nil
	})
}

func (c *studentConsole) vote(ctx context.Context, arg string) {
	numStr, name, _ := strings.Cut(arg, " ")
	n, err := strconv.Atoi(numStr)
	if err != nil {
		c.printf("Usage: VOTE <number> <name>\n")
		return
	}

	candidates := c.sess.Candidates()
	candidate := ""
	if n >= 1 && n <= len(candidates) {
		candidate = candidates[n-1]
	} else if len(candidates) > 0 {
		c.printf("Pick a number from 1 to %d\n", len(candidates))
		return
	}

	if err := c.sess.SubmitVote(ctx, name, candidate); err != nil {
		c.printf("Vote not sent: %v\n", err)
	}
}
