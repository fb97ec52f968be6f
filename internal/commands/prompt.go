package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks for credentials. Passwords are read without echo when in
// is a terminal.
type prompter struct {
	in  io.Reader
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	if in == nil {
		in = os.Stdin
	}
	return &prompter{in: in, r: bufio.NewReader(in), out: out}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) password(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		return string(b), err
	}
	return p.line(label)
}

// credentials returns email (prompting when empty) and a password.
func (p *prompter) credentials(email string) (string, string, error) {
	var err error
	if strings.TrimSpace(email) == "" {
		if email, err = p.line("Email: "); err != nil {
			return "", "", err
		}
	}
	password, err := p.password("Password: ")
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(email), password, nil
}
