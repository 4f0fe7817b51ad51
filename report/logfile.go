package report

// logfile.go contains the --log-file sink. Progress output mirrored
// there has ANSI styling removed so the file stays grep friendly.

import (
	"io"

	"github.com/acarl005/stripansi"
)

// StripWriter forwards writes to the underlying writer with ANSI
// escapes removed. On success it reports the full input length so it
// composes with io.MultiWriter.
type StripWriter struct {
	w io.Writer
}

func NewStripWriter(w io.Writer) *StripWriter {
	return &StripWriter{w: w}
}

func (s *StripWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(s.w, stripansi.Strip(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
