package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompt asks for a line of input on stdin.
func (app *Application) prompt(label string) (string, error) {
	fmt.Fprint(app.io.Err, label)
	return app.readLine()
}

// promptPassword asks for a secret. Echo is disabled when stdin is a terminal;
// otherwise a single line is read, so passwords can be piped in.
func (app *Application) promptPassword(label string) (string, error) {
	fmt.Fprint(app.io.Err, label)

	if f, ok := app.io.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(app.io.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return app.readLine()
}

func (app *Application) readLine() (string, error) {
	if app.stdin == nil {
		app.stdin = bufio.NewReader(app.io.In)
	}
	line, err := app.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
