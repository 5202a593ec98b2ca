package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
)

// Pack writes the members as a gzip compressed tar stream.
//
// Headers carry no user or group names, no access or change times, and the gzip
// header carries neither a name nor a timestamp: two runs over an unchanged tree
// produce the same bytes.
func Pack(ctx context.Context, w io.Writer, members []Member, opts ...Option) (err error) {
	s := defaultSettings(opts)

	gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	// a zero time would still be encoded, as a date in 2042
	gz.ModTime = time.Unix(0, 0)
	tw := tar.NewWriter(gz)
	defer func() {
		err = multierr.Combine(err, tw.Close(), gz.Close())
	}()

	for _, m := range members {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = writeMember(tw, m); err != nil {
			return err
		}
		s.onEntry(m.Name)
	}
	return nil
}

func writeMember(tw *tar.Writer, m Member) error {
	var link string
	if m.Info.Mode()&os.ModeSymlink != 0 {
		l, err := os.Readlink(m.Path)
		if err != nil {
			return ErrUnreadablePath.Detail("%s", m.Path).Wrap(err)
		}
		link = l
	}

	hdr, err := tar.FileInfoHeader(m.Info, link)
	if err != nil {
		return ErrUnreadablePath.Detail("%s", m.Path).Wrap(err)
	}
	hdr.Name = m.Name
	if m.Info.IsDir() && !strings.HasSuffix(hdr.Name, "/") {
		hdr.Name += "/"
	}
	hdr.Uname, hdr.Gname = "", ""
	hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}
	hdr.ModTime = m.Info.ModTime().Truncate(time.Second)

	if err = tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !m.Info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(m.Path)
	if err != nil {
		return ErrUnreadablePath.Detail("%s", m.Path).Wrap(err)
	}
	defer func() {
		_ = f.Close()
	}()
	// a file growing while archived is truncated to its size at enumeration time
	if _, err = io.CopyN(tw, f, hdr.Size); err != nil {
		return ErrUnreadablePath.Detail("%s", m.Path).Wrap(err)
	}
	return nil
}
