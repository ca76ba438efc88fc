package main

import (
	"fmt"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConnectorFactory struct{}

func (f *SFTPConnectorFactory) Accept(scheme string) bool {
	return scheme == "sftp"
}

func (f *SFTPConnectorFactory) Name() string {
	return "sftp"
}

func (f *SFTPConnectorFactory) Connect(p ConnectParams) (Connection, error) {
	var auth []ssh.AuthMethod
	if p.PrivateKey != "" {
		keyBytes, err := os.ReadFile(p.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(p.Password) > 0 {
		auth = append(auth, ssh.Password(string(p.Password)))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("sftp: no password or private key configured")
	}

	config := &ssh.ClientConfig{
		User:            p.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}
	port := p.Port
	if port == "" {
		port = "22"
	}
	sshClient, err := ssh.Dial("tcp", net.JoinHostPort(p.Host, port), config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to open sftp session: %w", err)
	}
	return &SFTPConnection{ssh: sshClient, client: client, registered: p.Registered}, nil
}

// SFTPConnection adapts pkg/sftp to the Connection capability set. SFTP has
// no server-side working directory, so cwd is tracked client-side and
// relative names are resolved against it.
type SFTPConnection struct {
	ssh        *ssh.Client
	client     *sftp.Client
	registered bool
	cwd        string
}

func (c *SFTPConnection) resolve(name string) string {
	if name == "" || name == "." {
		if c.cwd != "" {
			return c.cwd
		}
		return "."
	}
	if path.IsAbs(name) || c.cwd == "" {
		return name
	}
	return path.Join(c.cwd, name)
}

func (c *SFTPConnection) ChangeDir(dir string) error {
	if dir == "" {
		logger.Warnw("changing to current directory?")
	}
	target := c.resolve(dir)
	fi, err := c.client.Stat(target)
	if err != nil {
		return fmt.Errorf("cd %s: %w", target, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("cd %s: not a directory", target)
	}
	c.cwd = target
	logger.Debugw("cd", "dir", target)
	return nil
}

func (c *SFTPConnection) CurrentDir() (string, error) {
	if c.registered {
		return ".", nil
	}
	if c.cwd == "" {
		dir, err := c.client.Getwd()
		if err != nil {
			return "", fmt.Errorf("pwd: %w", err)
		}
		c.cwd = dir
	}
	return c.cwd, nil
}

func (c *SFTPConnection) List(dir string) ([]RemoteEntry, error) {
	infos, err := c.client.ReadDir(c.resolve(dir))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	entries := make([]RemoteEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, RemoteEntry{
			Name:  info.Name(),
			Line:  fingerprint(info.Mode().String(), info.Size(), info.ModTime(), info.Name()),
			IsDir: info.IsDir(),
		})
	}
	return entries, nil
}

// Retrieve copies a remote file to localPath. SFTP transfers are always
// binary; the mode argument only matters for FTP.
func (c *SFTPConnection) Retrieve(name, localPath string, _ TransferMode) error {
	remoteFile, err := c.client.Open(c.resolve(name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer remoteFile.Close()
	localFile, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := remoteFile.WriteTo(localFile); err != nil {
		localFile.Close()
		return fmt.Errorf("get %s: %w", name, err)
	}
	return localFile.Close()
}

func (c *SFTPConnection) Size(name string) (int64, error) {
	fi, err := c.client.Lstat(c.resolve(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errSizeUnavailable, name)
	}
	return fi.Size(), nil
}

func (c *SFTPConnection) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	if c.ssh != nil {
		return c.ssh.Close()
	}
	return nil
}
