package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// DefaultFTPTimeout bounds the FTP dial when FTPOptions.Timeout is zero.
const DefaultFTPTimeout = 30 * time.Second

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	// Timeout bounds connecting to the server.
	Timeout time.Duration
}

// FTPFetcher retrieves ftp:// links. Credentials embedded in the URL are
// used when present, anonymous login otherwise.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFTPTimeout
	}
	return &FTPFetcher{opts: opts}
}

// ftpTarget is a parsed ftp:// link.
type ftpTarget struct {
	addr string // host:port
	path string
	user string
	pass string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return ftpTarget{}, eris.Errorf("missing host in %q", rawURL)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.Errorf("no file path in %q", rawURL)
	}

	t := ftpTarget{addr: u.Host, path: u.Path, user: "anonymous", pass: "anonymous@"}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		t.addr = net.JoinHostPort(u.Host, "21")
	}
	if u.User != nil && u.User.Username() != "" {
		t.user = u.User.Username()
		t.pass, _ = u.User.Password()
	}
	return t, nil
}

// ftpBody streams one RETR transfer. Closing it ends the session, and so
// does cancelling the context the transfer was started with.
type ftpBody struct {
	resp *ftp.Response
	conn *ftp.ServerConn
	stop func() bool
}

func (b *ftpBody) Read(p []byte) (int, error) {
	return b.resp.Read(p)
}

func (b *ftpBody) Close() error {
	b.stop()
	respErr := b.resp.Close()
	quitErr := b.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp transfer")
	}
	return eris.Wrap(quitErr, "quit ftp session")
}

// Download logs in, starts retrieving the file and returns its content.
// The caller must close the body to end the FTP session.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	t, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, model.FetchError("ftp url", 0, err)
	}
	log := zap.L().With(zap.String("component", "fetcher.ftp"), zap.String("addr", t.addr))
	log.Debug("ftp: connecting", zap.String("path", t.path), zap.String("user", t.user))

	conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, model.FetchError("ftp dial "+t.addr, 0, err)
	}

	if err := conn.Login(t.user, t.pass); err != nil {
		_ = conn.Quit()
		return nil, model.FetchError("ftp login "+t.addr, 0, err)
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		_ = conn.Quit()
		return nil, model.FetchError("ftp retrieve "+t.path, 0, err)
	}

	stop := context.AfterFunc(ctx, func() {
		log.Debug("ftp: context done, closing session")
		_ = conn.Quit()
	})
	return &ftpBody{resp: resp, conn: conn, stop: stop}, nil
}

// DownloadToFile saves the file behind rawURL at path and returns the bytes
// written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return writeStream(body, path)
}
