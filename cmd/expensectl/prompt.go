package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readLine prints the prompt and returns the next trimmed input line.
func (e *env) readLine(prompt string) (string, error) {
	fmt.Fprint(e.stdout, prompt)
	line, err := e.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line for pipes and tests.
func (e *env) readPassword(prompt string) (string, error) {
	if f, ok := e.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.stdout, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.stdout)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := e.readLine(prompt)
	if err != nil {
		return "", err
	}
	return line, nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (e *env) confirm(prompt string) (bool, error) {
	answer, err := e.readLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
