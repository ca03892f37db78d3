// Package sftpclient fetches files from an SFTP server over SSH.
package sftpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNotFound is returned when the remote file does not exist.
var ErrNotFound = errors.New("sftpclient: file not found")

// DefaultPort is the SSH port used when Config.Port is zero.
const DefaultPort = 22

// dialTimeout bounds the TCP connect and SSH handshake.
const dialTimeout = 20 * time.Second

// Config holds SFTP connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// KnownHostsFile verifies the server key. Required unless
	// InsecureIgnoreHostKey is set.
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

// Client fetches files from one SFTP server. Each Fetch opens its own
// connection; the dataset is read once per process.
type Client struct {
	addr      string
	sshConfig *ssh.ClientConfig
}

// New validates cfg and prepares the SSH client configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return nil, errors.New("sftpclient: host, user and password are required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		sshConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
			HostKeyCallback: hostKey,
			Timeout:         dialTimeout,
		},
	}, nil
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("sftpclient: load known hosts: %w", err)
		}
		return cb, nil
	}
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit opt-in
	}
	return nil, errors.New("sftpclient: known hosts file is required unless host key checking is disabled")
}

// Addr returns the host:port this client connects to.
func (c *Client) Addr() string {
	return c.addr
}

// Fetch downloads the file at path into memory.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	sshClient, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sshClient.Close() }()
	// Closing the connection aborts a transfer stuck past ctx.
	stop := context.AfterFunc(ctx, func() { _ = sshClient.Close() })
	defer stop()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("sftpclient: new client: %w", err)
	}
	defer func() { _ = sftpClient.Close() }()

	return fetchFile(sftpClient, path)
}

func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("sftpclient: dial %s: %w", c.addr, err)
	}

	deadline := time.Now().Add(dialTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, c.addr, c.sshConfig)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sftpclient: handshake %s: %w", c.addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func fetchFile(client *sftp.Client, path string) ([]byte, error) {
	f, err := client.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("sftpclient: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, fmt.Errorf("sftpclient: read %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
