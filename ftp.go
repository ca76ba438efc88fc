package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
)

type FTPConnectorFactory struct{}

func (f *FTPConnectorFactory) Accept(scheme string) bool {
	return scheme == "ftp"
}

func (f *FTPConnectorFactory) Name() string {
	return "ftp"
}

func (f *FTPConnectorFactory) Connect(p ConnectParams) (Connection, error) {
	port := p.Port
	if port == "" {
		port = "21"
	}
	c, err := ftp.Dial(net.JoinHostPort(p.Host, port), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, err
	}
	if err := c.Login(p.User, string(p.Password)); err != nil {
		c.Quit() // Close connection on login failure
		return nil, err
	}
	return &FTPConnection{client: c, registered: p.Registered}, nil
}

// FTPConnection adapts jlaffaye/ftp to the Connection capability set.
type FTPConnection struct {
	client     *ftp.ServerConn
	registered bool
	pwd        string // cached present directory, reset on ChangeDir
}

func (c *FTPConnection) ChangeDir(path string) error {
	if path == "" {
		logger.Warnw("changing to current directory?")
	}
	if err := c.client.ChangeDir(path); err != nil {
		return fmt.Errorf("cd %s: %w", path, err)
	}
	c.pwd = ""
	logger.Debugw("cd", "dir", path)
	return nil
}

func (c *FTPConnection) CurrentDir() (string, error) {
	if c.registered {
		return ".", nil
	}
	if c.pwd != "" {
		return c.pwd, nil
	}
	dir, err := c.client.CurrentDir()
	if err != nil {
		return "", fmt.Errorf("pwd: %w", err)
	}
	c.pwd = dir
	return dir, nil
}

func (c *FTPConnection) List(path string) ([]RemoteEntry, error) {
	raw, err := c.client.List(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	entries := make([]RemoteEntry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		perm := "-"
		isDir := e.Type == ftp.EntryTypeFolder
		if isDir {
			perm = "d"
		}
		entries = append(entries, RemoteEntry{
			Name:  e.Name,
			Line:  fingerprint(perm, int64(e.Size), e.Time, e.Name),
			IsDir: isDir,
		})
	}
	return entries, nil
}

func (c *FTPConnection) Retrieve(name, localPath string, mode TransferMode) error {
	transferType := ftp.TransferTypeBinary
	if mode == ModeASCII {
		transferType = ftp.TransferTypeASCII
	}
	if err := c.client.Type(transferType); err != nil {
		return fmt.Errorf("type %s: %w", mode, err)
	}
	r, err := c.client.Retr(name)
	if err != nil {
		return fmt.Errorf("retr %s: %w", name, err)
	}
	defer r.Close()
	out, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("retr %s: %w", name, err)
	}
	return out.Close()
}

func (c *FTPConnection) Size(name string) (int64, error) {
	size, err := c.client.FileSize(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errSizeUnavailable, name)
	}
	return size, nil
}

func (c *FTPConnection) Close() error {
	return c.client.Quit()
}
