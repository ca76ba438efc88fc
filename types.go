package main

import "errors"

// errSizeUnavailable reports a failed remote size query. Callers never see a
// stale or undefined value, only this error.
var errSizeUnavailable = errors.New("remote size unavailable")

// TransferMode selects how file contents come off the server.
type TransferMode int

const (
	ModeASCII TransferMode = iota
	ModeBinary
)

func (m TransferMode) String() string {
	if m == ModeBinary {
		return "binary"
	}
	return "ascii"
}

// RemoteEntry is one row of a remote directory listing. Line is the
// synthesized listing line used as the change-detection fingerprint; it is
// only valid for the session that produced it.
type RemoteEntry struct {
	Name  string
	Line  string
	IsDir bool
}

// Connection is the capability set the engine needs from a protocol session.
// FTP and SFTP variants are interchangeable behind it.
type Connection interface {
	ChangeDir(path string) error
	CurrentDir() (string, error)
	List(path string) ([]RemoteEntry, error)
	Retrieve(name, localPath string, mode TransferMode) error
	Size(name string) (int64, error)
	Close() error
}

// ConnectParams carries everything a factory needs to open and authenticate
// a session.
type ConnectParams struct {
	Host       string
	Port       string
	User       string
	Password   []byte
	PrivateKey string // path to a PEM private key (sftp only)
	Registered bool   // short-circuit pwd to "." on registered servers
}

// ConnectorFactory creates protocol-specific connections.
type ConnectorFactory interface {
	Accept(scheme string) bool
	Connect(p ConnectParams) (Connection, error)
	Name() string
}
