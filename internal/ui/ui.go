// Package ui implements the terminal prompts used by the release and
// sweep flows. Input and output are injectable so tests can script an
// operator session.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Terminal prompts an operator over the given reader/writer pair.
type Terminal struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a Terminal reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Printf writes formatted output to the operator.
func (t *Terminal) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// Confirm asks a yes/no question that defaults to no. A blank answer,
// EOF, or anything other than y/yes declines; releasing or deleting must
// be an explicit opt-in.
func (t *Terminal) Confirm(question string) bool {
	fmt.Fprintf(t.out, "%s [y/N]: ", question)
	line, ok := t.readLine()
	if !ok {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// Choose presents numbered options and returns the index of the one the
// operator picks. It re-prompts on unparseable or out-of-range input and
// returns an error on EOF.
func (t *Terminal) Choose(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("ui: no options to choose from")
	}

	fmt.Fprintln(t.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(t.out, "  %2d) %s\n", i+1, opt)
	}

	for {
		fmt.Fprintf(t.out, "Enter a number (1-%d): ", len(options))
		line, ok := t.readLine()
		if !ok {
			return 0, fmt.Errorf("ui: input closed before a choice was made")
		}

		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintln(t.out, "Invalid choice.")
			continue
		}
		return n - 1, nil
	}
}

func (t *Terminal) readLine() (string, bool) {
	if !t.scanner.Scan() {
		return "", false
	}
	return t.scanner.Text(), true
}
