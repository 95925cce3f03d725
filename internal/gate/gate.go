package gate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"osmautolink/internal/osm"
	"osmautolink/internal/records"
)

// Action is the operator's answer.
type Action int

const (
	Proceed Action = iota
	Abort
	Exclude
)

func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Abort:
		return "abort"
	case Exclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// Decision is the result of one confirmation round. Exclude lists the
// records to drop when Action is Exclude.
type Decision struct {
	Action  Action
	Exclude []osm.ObjectID
}

// Confirmer decides what to do with the pending records.
type Confirmer interface {
	Confirm(ctx context.Context, pending []records.Record) (Decision, error)
}

// ErrNotInteractive is returned when stdin cannot prompt the operator.
var ErrNotInteractive = errors.New("confirmation requires an interactive terminal (use --yes to approve without prompting)")

// AutoApprove proceeds without asking.
type AutoApprove struct{}

func (AutoApprove) Confirm(context.Context, []records.Record) (Decision, error) {
	return Decision{Action: Proceed}, nil
}

// Prompt is shown after the pending list.
const Prompt = "Proceed with uploading? (y/n/<ignore-number>) "

// Terminal lists pending records and reads the answer line by line.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal prompts on out and reads answers from in.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// NewStdio returns a Terminal on the process's stdin and stdout, failing
// when stdin is not a terminal.
func NewStdio() (*Terminal, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, ErrNotInteractive
	}
	return NewTerminal(os.Stdin, os.Stdout), nil
}

// Confirm prints every pending record and asks until it gets a valid
// answer. End of input counts as abort.
func (t *Terminal) Confirm(ctx context.Context, pending []records.Record) (Decision, error) {
	for i, rec := range pending {
		fmt.Fprintf(t.out, "🔗 [%d] %s → %s\n", i, rec.ID.PublicURL(), rec.Link)
	}
	for {
		fmt.Fprint(t.out, Prompt)
		line, err := t.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(t.out)
				return Decision{Action: Abort}, nil
			}
			return Decision{}, err
		}
		answer := strings.TrimSpace(line)
		switch strings.ToLower(answer) {
		case "y":
			return Decision{Action: Proceed}, nil
		case "n":
			return Decision{Action: Abort}, nil
		}
		if index, ok := parseIndex(answer, len(pending)); ok {
			return Decision{Action: Exclude, Exclude: []osm.ObjectID{pending[index].ID}}, nil
		}
	}
}

func parseIndex(answer string, n int) (int, bool) {
	if answer == "" || strings.TrimLeft(answer, "0123456789") != "" {
		return 0, false
	}
	index, err := strconv.Atoi(answer)
	if err != nil || index < 0 || index >= n {
		return 0, false
	}
	return index, true
}

type lineResult struct {
	line string
	err  error
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- lineResult{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
