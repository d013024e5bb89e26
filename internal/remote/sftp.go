package remote

import (
	"context"
	"io"
	"path"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
)

var ErrUpload = errors.New("sftp upload error")

// Upload writes the contents of src to remotePath on the DUT, parent directories are created as required.
func (s *SSH) Upload(ctx context.Context, src io.Reader, remotePath string) error {
	s.mu.Lock()
	client, err := s.connect(ctx)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	sc, err := sftp.NewClient(client)
	if err != nil {
		s.reset()
		return errors.Wrap(ErrUpload, "client: "+err.Error())
	}

	defer sc.Close()

	if err := sc.MkdirAll(path.Dir(remotePath)); err != nil {
		return errors.Wrap(ErrUpload, "mkdir: "+err.Error())
	}

	dst, err := sc.Create(remotePath)
	if err != nil {
		return errors.Wrap(ErrUpload, "create: "+err.Error())
	}

	defer dst.Close()

	copied := make(chan error, 1)

	var n int64

	go func() {
		var errCopy error
		n, errCopy = io.Copy(dst, src)
		copied <- errCopy
	}()

	select {
	case <-ctx.Done():
		sc.Close()
		return ctx.Err()
	case err = <-copied:
	}

	if err != nil {
		// remove partially uploaded file
		_ = sc.Remove(remotePath)

		return errors.Wrap(ErrUpload, "copy: "+err.Error())
	}

	s.logger.WithFields(logrus.Fields{
		"path":  remotePath,
		"bytes": n,
	}).Debug("file uploaded")

	return nil
}
