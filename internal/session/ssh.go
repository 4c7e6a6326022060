package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"netaudit/internal/domain"
)

const defaultSSHPort = 22

// promptSettle is how long the shell must stay quiet before the login banner
// is considered fully drained and its last line taken as the prompt.
const promptSettle = 500 * time.Millisecond

// pagerKeystroke is the single-space continuation SendPaged issues. It is
// written to the pty as a raw keypress, not as a command line.
const pagerKeystroke = " "

// SSHDialer opens password-authenticated SSH sessions to network equipment.
type SSHDialer struct {
	// ConnectTimeout bounds dial plus authentication.
	ConnectTimeout time.Duration
	// CommandTimeout bounds each Send on sessions produced by this dialer.
	CommandTimeout time.Duration
	// Port overrides the SSH port (default 22).
	Port int

	Log zerolog.Logger
}

// Dial opens and authenticates an SSH connection to the device, then starts
// one interactive shell with a pty. Every command of the audit runs on that
// shell, so state the device keeps per terminal, pager settings above all,
// persists across commands.
func (d *SSHDialer) Dial(ctx context.Context, device *domain.Device, creds domain.Credentials) (Session, error) {
	if creds.Username == "" {
		return nil, &ConnectError{Addr: device.Address, Reason: "invalid credentials", Err: errNoUsername}
	}

	port := d.Port
	if port == 0 {
		port = defaultSSHPort
	}

	timeout := d.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	cmdTimeout := d.CommandTimeout
	if cmdTimeout == 0 {
		cmdTimeout = 30 * time.Second
	}

	conn := &Conn{
		addr:       device.Address,
		cmdTimeout: cmdTimeout,
		state:      StateDisconnected,
		log:        d.Log.With().Str("device", device.Address).Logger(),
	}

	addr := net.JoinHostPort(device.Address, fmt.Sprintf("%d", port))

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(passwordChallenge(creds.Password)),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
		Config: ssh.Config{
			// Older switch firmware only offers legacy algorithms.
			KeyExchanges: append(defaultKexAlgos(), "diffie-hellman-group14-sha1", "diffie-hellman-group1-sha1"),
			Ciphers:      append(defaultCiphers(), "aes128-cbc", "3des-cbc"),
		},
	}

	dialer := &net.Dialer{Timeout: timeout}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.setState(StateConnecting)

	netConn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		conn.setState(StateFailed)
		return nil, &ConnectError{Addr: device.Address, Reason: "unreachable", Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		conn.setState(StateFailed)
		return nil, &ConnectError{Addr: device.Address, Reason: "authentication failed", Err: err}
	}

	conn.setState(StateAuthenticated)
	conn.client = ssh.NewClient(sshConn, chans, reqs)

	if err := conn.openShell(ctx); err != nil {
		conn.client.Close()
		conn.setState(StateFailed)
		return nil, &ConnectError{Addr: device.Address, Reason: "shell setup failed", Err: err}
	}

	conn.setState(StateReady)
	conn.log.Debug().Str("prompt", conn.prompt).Msg("session established")

	return conn, nil
}

func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}

		return answers, nil
	}
}

func defaultKexAlgos() []string {
	return []string{
		"curve25519-sha256", "curve25519-sha256@libssh.org",
		"ecdh-sha2-nistp256", "ecdh-sha2-nistp384", "ecdh-sha2-nistp521",
		"diffie-hellman-group14-sha256",
	}
}

func defaultCiphers() []string {
	return []string{
		"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
		"chacha20-poly1305@openssh.com",
		"aes128-ctr", "aes192-ctr", "aes256-ctr",
	}
}

// Conn is a live SSH session to one device, backed by a single interactive
// shell channel. Not safe for concurrent use; one audit task owns it
// end-to-end.
type Conn struct {
	addr       string
	client     *ssh.Client
	sess       *ssh.Session
	stdin      io.WriteCloser
	out        chan []byte
	prompt     string
	cmdTimeout time.Duration
	log        zerolog.Logger

	mu        sync.Mutex
	state     State
	closeOnce sync.Once
}

// State reports the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// openShell requests a pty, starts the remote shell and learns the device
// prompt so replies can be delimited.
func (c *Conn) openShell(ctx context.Context) error {
	sess, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}

	if err := sess.RequestPty("vt100", 80, 512, modes); err != nil {
		sess.Close()
		return fmt.Errorf("request pty: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		return fmt.Errorf("start shell: %w", err)
	}

	c.sess = sess
	c.stdin = stdin
	c.out = make(chan []byte, 16)

	go pump(stdout, c.out)

	prompt, err := c.detectPrompt(ctx)
	if err != nil {
		return fmt.Errorf("detect prompt: %w", err)
	}

	c.prompt = prompt

	return nil
}

// pump moves shell output into a channel so reads can be raced against
// timeouts. Closes the channel on EOF.
func pump(r io.Reader, out chan<- []byte) {
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			close(out)
			return
		}
	}
}

// detectPrompt sends a bare newline and waits for the banner to drain. The
// last non-empty line the device prints is its prompt.
func (c *Conn) detectPrompt(ctx context.Context) (string, error) {
	if _, err := io.WriteString(c.stdin, "\n"); err != nil {
		return "", err
	}

	deadline := time.NewTimer(c.cmdTimeout)
	defer deadline.Stop()

	idle := time.NewTimer(promptSettle)
	defer idle.Stop()

	var b strings.Builder

	for {
		select {
		case chunk, ok := <-c.out:
			if !ok {
				return "", io.ErrUnexpectedEOF
			}

			b.Write(chunk)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(promptSettle)
		case <-idle.C:
			if line := lastLine(b.String()); line != "" {
				return line, nil
			}

			idle.Reset(promptSettle)
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", context.DeadlineExceeded
		}
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r", ""), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}

	return ""
}

// Send writes one command to the interactive shell and reads until the device
// prompt returns or the pager pauses. A lone space is written as a raw
// keystroke so SendPaged can feed the pager mid-command.
func (c *Conn) Send(ctx context.Context, command string) (string, error) {
	if c.State() != StateReady {
		return "", &CommandError{Command: command, Err: errClosed}
	}

	if _, err := io.WriteString(c.stdin, payloadFor(command)); err != nil {
		c.setState(StateFailed)
		return "", &CommandError{Command: command, Err: err}
	}

	return c.readReply(ctx, command)
}

// payloadFor frames a command for the pty. Commands get a newline; the pager
// keystroke goes through raw, a trailing newline would scroll past the page.
func payloadFor(command string) string {
	if command == pagerKeystroke {
		return command
	}

	return command + "\n"
}

// readReply accumulates shell output until the prompt or a pager pause marks
// the reply complete, racing the per-command timeout.
func (c *Conn) readReply(ctx context.Context, command string) (string, error) {
	timer := time.NewTimer(c.cmdTimeout)
	defer timer.Stop()

	var b strings.Builder

	for {
		select {
		case chunk, ok := <-c.out:
			if !ok {
				c.setState(StateFailed)
				return "", &CommandError{Command: command, Err: io.ErrUnexpectedEOF}
			}

			b.Write(chunk)

			if reply, done := c.reply(b.String(), command); done {
				return reply, nil
			}
		case <-ctx.Done():
			return "", &CommandError{Command: command, Timeout: true, Err: ctx.Err()}
		case <-timer.C:
			return "", &CommandError{Command: command, Timeout: true, Err: context.DeadlineExceeded}
		}
	}
}

// reply decides whether the accumulated output is a complete reply and trims
// the command echo and the trailing prompt when it is. A pager pause is
// complete too: the More token stays in the output so SendPaged sees it.
func (c *Conn) reply(raw, command string) (string, bool) {
	out := strings.ReplaceAll(raw, "\r", "")
	trimmed := strings.TrimRight(out, " \t\n")

	if pagerPaused(trimmed) {
		return c.stripEcho(out, command), true
	}

	if c.prompt == "" || !strings.HasSuffix(trimmed, c.prompt) {
		return "", false
	}

	out = trimmed[:len(trimmed)-len(c.prompt)]

	return c.stripEcho(out, command), true
}

// stripEcho drops the echoed command line the pty reflects back.
func (c *Conn) stripEcho(out, command string) string {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return out
	}

	head, tail, found := strings.Cut(out, "\n")
	if found && strings.Contains(head, cmd) {
		return tail
	}

	return out
}

// pagerPaused reports whether the shell is waiting at a continuation prompt.
func pagerPaused(trimmed string) bool {
	for _, token := range moreTokens {
		if strings.HasSuffix(trimmed, token) {
			return true
		}
	}

	return false
}

// Close releases the shell and the SSH connection. Safe to call multiple
// times and on every exit path; leaked sessions exhaust remote device session
// limits.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if c.stdin != nil {
			_ = c.stdin.Close()
		}
		if c.sess != nil {
			_ = c.sess.Close()
		}
		if err := c.client.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close")
		}

		c.setState(StateClosed)
	})

	return nil
}
